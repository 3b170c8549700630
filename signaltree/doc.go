// Package signaltree implements a lock-free bitmap over a fixed number of
// slots, supporting atomic set/clear and fair biased selection of a set bit.
//
// A Tree is a perfect binary tree of 64-bit atomic words over L leaves,
// where L is the smallest power of two >= ceil(capacity/64), with L >= 2.
// Each leaf bit represents one slot; each internal node holds the popcount
// of its subtree. Set and Clear adjust a leaf and propagate count deltas
// upward. Select descends from the root, choosing at each internal node
// between a nonzero left or right subtree (hashing a caller-supplied bias
// with the current depth when both are nonzero), and atomically clears the
// bit it lands on.
//
// All operations are lock-free; Select is wait-free modulo a bounded number
// of CAS retries against concurrent selectors racing for the same bit.
package signaltree
