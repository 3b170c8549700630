// Package contract implements the work execution core's contract group: a
// fixed-capacity, lock-free pool of schedulable work slots, grounded on
// WorkContractGroup.cpp, the stamped (owner, index, generation) handles that
// reference them, grounded on WorkContractHandle.h, and the three-layer
// ready-bit clearing discipline that keeps the signaltree.Tree consistent
// under concurrent selection and release.
//
// A Group is created with a fixed capacity; contracts (closures) are
// allocated from it, scheduled for execution, and selected by worker threads
// (see package workservice) or the main-thread pump. Freeing a slot happens
// before its closure runs, not after, so a closure may itself create and
// schedule new contracts -- including ones that reuse the very slot it is
// running from (see Group.ExecuteContract).
package contract
