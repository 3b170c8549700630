// Package entlog provides the package-level, swappable structured logging
// interface shared by every EntropyCore service (workservice, workgraph,
// timerservice, vfs).
//
// Design mirrors the teacher's own eventloop/logging.go: a minimal Logger
// interface, a global default instance (a zerolog adapter writing
// warn-and-above to stderr, swappable via SetDefault), and per-service
// Logger config fields layered on top, so embedding applications can run
// multiple independently-logged instances side by side or silence a single
// component with NoOp.
package entlog
