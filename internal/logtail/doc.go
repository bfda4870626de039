// Package logtail maintains a byte cursor into a growing remote log
// object and turns repeated open-ended range reads into a stable,
// deduplicated line buffer.
//
// # Overview
//
// A Window polls a remote.Source. On a fresh tail it reads a bounded
// window back from the object's current end; on steady-state polls it
// re-reads a small byte overlap before the cursor so a line split across
// the previous read boundary is recovered whole. The overlapping portion
// of each read is removed by an exact suffix/prefix line match before the
// remainder is appended to the buffer.
//
// # Rotation
//
// When a read reports an end offset smaller than the begin offset it was
// asked for, the remote object was truncated or rotated. The window
// discards its buffer and re-tails once from the new end; a second
// shrink in the same fetch is surfaced as an error rather than retried,
// bounding the recursion.
//
// # Bounding
//
// The buffer is capped at MaxLines with FIFO eviction from the front:
// tail semantics, the most recent lines matter most.
//
// # What this package does not do
//
// No decoding, no filtering, no retry: read failures surface unmodified
// and scheduling/backoff is the session's responsibility.
package logtail
