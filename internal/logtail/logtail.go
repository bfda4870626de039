package logtail

import (
	"context"
	"fmt"
	"log"

	"github.com/klamm/tracetail/internal/remote"
)

// Defaults for a tail window. WindowBytes bounds the initial read on a
// fresh tail; OverlapBytes is re-read on every steady-state poll so lines
// split across a previous read boundary can be recovered.
const (
	DefaultWindowBytes  = 256 * 1024
	DefaultOverlapBytes = 4 * 1024
	DefaultLookback     = 12
	DefaultMaxLines     = 2000
)

// Config identifies the tailed object and tunes the window.
type Config struct {
	Category     string
	Object       string
	WindowBytes  int64
	OverlapBytes int64
	// Lookback caps how many trailing buffer lines are compared against
	// the head of a new read during overlap merge.
	Lookback int
	// MaxLines caps the retained buffer; oldest lines are evicted first.
	MaxLines int
}

func (c Config) withDefaults() Config {
	if c.WindowBytes <= 0 {
		c.WindowBytes = DefaultWindowBytes
	}
	if c.OverlapBytes <= 0 {
		c.OverlapBytes = DefaultOverlapBytes
	}
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	return c
}

// FetchResult reports one poll's outcome.
type FetchResult struct {
	// NewLines are the lines appended to the buffer by this fetch, after
	// overlap dedup.
	NewLines []string
	// Rotated is set when the remote object shrank underneath the cursor
	// and the window re-tailed from the new end.
	Rotated bool
	// Cursor is the byte offset consumed through.
	Cursor int64
}

// Window tails one growing remote log object. It owns the byte cursor, the
// last known remote size, and the bounded line buffer. Cursor and size only
// advance on a successful read, so a failed poll never corrupts the tail
// position.
type Window struct {
	cfg    Config
	cursor int64 // -1 means no successful read yet
	size   int64
	lines  []string
}

// NewWindow builds a window positioned for a fresh tail.
func NewWindow(cfg Config) *Window {
	return &Window{cfg: cfg.withDefaults(), cursor: -1}
}

// Lines returns a copy of the retained buffer.
func (w *Window) Lines() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// Cursor returns the consumed byte offset, -1 before the first successful
// fetch.
func (w *Window) Cursor() int64 { return w.cursor }

// Size returns the last known remote size.
func (w *Window) Size() int64 { return w.size }

// Reset discards the buffer and forces the next fetch to tail fresh from
// the remote end.
func (w *Window) Reset() {
	w.cursor = -1
	w.size = 0
	w.lines = nil
}

// Fetch reads the next window of the object and merges it into the buffer.
// Read failures are surfaced unmodified; retry and backoff belong to the
// enclosing poll loop.
func (w *Window) Fetch(ctx context.Context, src remote.Source) (FetchResult, error) {
	return w.fetchOnce(ctx, src, false)
}

func (w *Window) fetchOnce(ctx context.Context, src remote.Source, isRetry bool) (FetchResult, error) {
	begin, err := w.beginOffset(ctx, src)
	if err != nil {
		return FetchResult{}, err
	}

	read, err := src.ReadRange(ctx, w.cfg.Category, w.cfg.Object, begin, remote.ReadToEnd)
	if err != nil {
		return FetchResult{}, err
	}

	if read.EndOffset < begin {
		// The object shrank underneath us: truncation or rotation. Discard
		// the stale buffer and re-tail once from the new end.
		if isRetry {
			return FetchResult{}, fmt.Errorf("tail %s/%s: object still shrinking after re-tail (end %d < begin %d)",
				w.cfg.Category, w.cfg.Object, read.EndOffset, begin)
		}
		log.Printf("rotation detected on %s/%s: end %d < begin %d, re-tailing",
			w.cfg.Category, w.cfg.Object, read.EndOffset, begin)
		w.Reset()
		res, err := w.fetchOnce(ctx, src, true)
		if err != nil {
			return FetchResult{}, err
		}
		res.Rotated = true
		return res, nil
	}

	appended := w.merge(read.Lines)
	w.cursor = read.EndOffset
	w.size = read.EndOffset
	return FetchResult{NewLines: appended, Cursor: w.cursor}, nil
}

// beginOffset computes the inclusive start of the next read: a bounded
// window back from the remote end on a fresh tail, or the cursor minus the
// re-read overlap on steady-state polls.
func (w *Window) beginOffset(ctx context.Context, src remote.Source) (int64, error) {
	if w.cursor < 0 {
		meta, err := src.GetMetadata(ctx, w.cfg.Category, w.cfg.Object)
		if err != nil {
			return 0, fmt.Errorf("tail %s/%s metadata: %w", w.cfg.Category, w.cfg.Object, err)
		}
		w.size = meta.SizeInBytes
		return max64(0, meta.SizeInBytes-w.cfg.WindowBytes), nil
	}
	return max64(0, w.cursor-w.cfg.OverlapBytes), nil
}

// merge appends newLines to the buffer, dropping the longest prefix of
// newLines that exactly matches a suffix of the buffer within the lookback
// window. No match means the overlap was ambiguous; the conservative
// fallback appends everything, preferring a few duplicate lines over lost
// data. Returns the lines actually appended.
func (w *Window) merge(newLines []string) []string {
	k := overlapLen(w.lines, newLines, w.cfg.Lookback)
	appended := newLines[k:]
	if len(appended) == 0 {
		return nil
	}
	w.lines = append(w.lines, appended...)
	if overflow := len(w.lines) - w.cfg.MaxLines; overflow > 0 {
		w.lines = append([]string(nil), w.lines[overflow:]...)
	}
	out := make([]string, len(appended))
	copy(out, appended)
	return out
}

// overlapLen finds the largest k such that the last k lines of old equal
// the first k lines of new, with k bounded by lookback and both lengths.
// This is a plain suffix/prefix equality search: consecutive polls of an
// append-only log see stable line order, so a diff algorithm is overkill.
func overlapLen(old, new []string, lookback int) int {
	maxK := lookback
	if len(old) < maxK {
		maxK = len(old)
	}
	if len(new) < maxK {
		maxK = len(new)
	}
	for k := maxK; k > 0; k-- {
		if equalRange(old[len(old)-k:], new[:k]) {
			return k
		}
	}
	return 0
}

func equalRange(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
