package session

import (
	"sort"
	"strings"
	"time"
)

// ViewOptions shape one render of the retained buffers. All three knobs
// are presentation-only: the retained buffers are never mutated by a view.
type ViewOptions struct {
	// Parsed selects the decoded-item buffer instead of raw lines.
	Parsed bool
	// Limit caps the number of lines; zero uses the session display limit.
	Limit int
	// Descending renders newest-first.
	Descending bool
	// Filter keeps lines containing the substring, case-insensitively.
	Filter string
}

// View is one rendered snapshot plus session health, in the last-good-view
// discipline: a failed poll leaves Lines intact and surfaces the error
// alongside it.
type View struct {
	Lines               []string
	Total               int
	Cursor              int64
	Rotated             bool
	LastError           error
	ConsecutiveFailures int
	LastPoll            time.Time
}

// Offline reports whether the source has been unreachable for multiple
// consecutive polls.
func (v View) Offline() bool {
	return v.ConsecutiveFailures >= 2
}

// View renders the retained buffer with the requested limit, order, and
// filter applied over a copy.
func (s *Session) View(opts ViewOptions) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	if opts.Parsed {
		items := s.parsed
		if sorted := sortedByTime(items); sorted != nil {
			items = sorted
		}
		lines = make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, item.Text)
		}
	} else {
		lines = make([]string, len(s.raw))
		copy(lines, s.raw)
	}

	total := len(lines)
	lines = filterLines(lines, opts.Filter)

	limit := opts.Limit
	if limit <= 0 {
		limit = s.opts.DisplayLimit
	}
	// Tail semantics: the limit keeps the most recent lines.
	if len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	if opts.Descending {
		reverse(lines)
	}

	return View{
		Lines:               lines,
		Total:               total,
		Cursor:              s.cursor,
		Rotated:             s.rotated,
		LastError:           s.lastErr,
		ConsecutiveFailures: s.failures,
		LastPoll:            s.lastPoll,
	}
}

// sortedByTime returns a time-ordered copy when any item carries a
// timestamp, nil when arrival order is all there is. Multi-node logs
// interleave, so decoded views present by timestamp like the sorted log
// output of a batch analysis.
func sortedByTime(items []Item) []Item {
	timed := false
	for _, item := range items {
		if !item.Time.IsZero() {
			timed = true
			break
		}
	}
	if !timed {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Time, out[j].Time
		if ti.IsZero() || tj.IsZero() {
			return false
		}
		return ti.Before(tj)
	})
	return out
}

func filterLines(lines []string, filter string) []string {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return lines
	}
	out := lines[:0:0]
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			out = append(out, line)
		}
	}
	return out
}

func reverse(lines []string) {
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
}
