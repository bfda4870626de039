// Package session orchestrates the live-tail pipeline: one tail window
// and one transaction assembler per target, driven by a cancellable poll
// loop with exponential backoff.
//
// Each poll runs fetch, overlap merge, decode, and assembly strictly in
// sequence, and a new poll is only scheduled after the previous one
// returns, so a single fetch is in flight per session at any time.
// Stop cancels the loop and waits for the in-flight poll, guaranteeing no
// buffer mutation after it returns.
//
// The session retains two independently bounded buffers: raw text lines
// and decoded items rendered as display strings. Views apply limit,
// ordering, and substring filtering at render time over copies; a failed
// poll never clears the last good view, it only annotates it with the
// error and a consecutive-failure count.
//
// Schema edits are detected by revision: when the backing store has moved,
// the session re-snapshots the tree and resets its decode and pairing
// state, since entries decoded under different revisions must not be
// paired with each other.
package session
