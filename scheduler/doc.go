// Package scheduler implements the pluggable group-selection policies a
// workservice.Service uses to decide which contract.Group a worker should
// draw from next.
//
// A Strategy only ever sees *contract.Group pointers and the four
// notification calls a Service makes around them; it never touches a
// group's slots directly. All implementations here tolerate groups being
// added and removed concurrently with selection.
package scheduler
