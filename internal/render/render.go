// Package render formats decoded entries and transactions into
// display-ready lines and applies terminal styling.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/klamm/tracetail/internal/record"
)

const timestampLayout = "02.01.06 15:04:05.000"

// FormatEntry renders one decoded entry as a single display line:
// timestamp, direction, node, message type, then the decoded segments.
// Discriminant segments (ts/node/dir/msg_type) are folded into the prefix
// and not repeated in the field list.
func FormatEntry(e record.Entry) string {
	var b strings.Builder
	b.WriteString(formatPrefix(e.Timestamp, e.Direction, e.Node))
	b.WriteString(e.MessageType)
	if e.Version != "" {
		b.WriteString("/")
		b.WriteString(e.Version)
	}
	fields := formatSegments(e.Segments)
	if fields != "" {
		b.WriteString(" – ")
		b.WriteString(fields)
	}
	return b.String()
}

// FormatTransaction renders a completed transaction as a request line and
// an indented response line, with the round-trip duration when known.
func FormatTransaction(t record.Transaction) string {
	var b strings.Builder
	if t.LatestRequest != nil {
		b.WriteString(FormatEntry(*t.LatestRequest))
	} else {
		b.WriteString(formatPrefix(t.StartTime, "", t.Node))
		b.WriteString("tx ")
		b.WriteString(t.TransactionID)
	}
	if t.Response != nil {
		b.WriteString("\n    ")
		b.WriteString(FormatEntry(*t.Response))
		if dur, ok := t.Duration(); ok {
			fmt.Fprintf(&b, " [%dms", dur.Milliseconds())
			if t.TimedOut {
				fmt.Fprintf(&b, ", over %dms threshold", t.ThresholdMS)
			}
			b.WriteString("]")
		}
	}
	return b.String()
}

func formatPrefix(ts time.Time, direction, node string) string {
	stamp := strings.Repeat(" ", len(timestampLayout))
	if !ts.IsZero() {
		stamp = ts.Format(timestampLayout)
	}
	return fmt.Sprintf("%s %-6s %3s: ", stamp, direction, node)
}

func formatSegments(segments []record.DecodedField) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind != record.KindField {
			continue
		}
		if seg.Escaped {
			parts = append(parts, fmt.Sprintf("%s=%s(%s)", seg.Name, seg.Raw, seg.Value))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", seg.Name, seg.Value))
	}
	return strings.Join(parts, ", ")
}

// Styles groups the lipgloss styles used when colorizing display lines.
type Styles struct {
	Timestamp lipgloss.Style
	Request   lipgloss.Style
	Response  lipgloss.Style
	Node      lipgloss.Style
	Escape    lipgloss.Style
	Timeout   lipgloss.Style
	Text      lipgloss.Style
}

// DefaultStyles is tuned for dark terminal backgrounds.
func DefaultStyles() Styles {
	return Styles{
		Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
		Request:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		Response:  lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		Node:      lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AFFF")),
		Escape:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		Timeout:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Text:      lipgloss.NewStyle(),
	}
}

// Renderer colorizes formatted display lines.
type Renderer struct {
	styles Styles
}

// NewRenderer builds a Renderer; zero-value Styles fields render plain.
func NewRenderer(styles Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Entry formats and colorizes one entry.
func (r *Renderer) Entry(e record.Entry) string {
	prefix := r.styles.Timestamp.Render(stampOf(e.Timestamp))
	dir := r.directionStyle(e.Direction).Render(fmt.Sprintf("%-6s", e.Direction))
	node := r.styles.Node.Render(fmt.Sprintf("%3s", e.Node))
	body := e.MessageType
	if e.Version != "" {
		body += "/" + e.Version
	}
	if fields := r.colorSegments(e.Segments); fields != "" {
		body += " – " + fields
	}
	return prefix + " " + dir + " " + node + ": " + r.styles.Text.Render(body)
}

// Transaction formats and colorizes a completed transaction.
func (r *Renderer) Transaction(t record.Transaction) string {
	var b strings.Builder
	if t.LatestRequest != nil {
		b.WriteString(r.Entry(*t.LatestRequest))
	}
	if t.Response != nil {
		b.WriteString("\n    ")
		b.WriteString(r.Entry(*t.Response))
		if dur, ok := t.Duration(); ok {
			tag := fmt.Sprintf(" [%dms]", dur.Milliseconds())
			if t.TimedOut {
				b.WriteString(r.styles.Timeout.Render(tag))
			} else {
				b.WriteString(r.styles.Timestamp.Render(tag))
			}
		}
	}
	return b.String()
}

func (r *Renderer) colorSegments(segments []record.DecodedField) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind != record.KindField {
			continue
		}
		if seg.Escaped {
			parts = append(parts, r.styles.Escape.Render(fmt.Sprintf("%s=%s(%s)", seg.Name, seg.Raw, seg.Value)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", seg.Name, seg.Value))
	}
	return strings.Join(parts, ", ")
}

func (r *Renderer) directionStyle(direction string) lipgloss.Style {
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case "A", "RSP", "OUTPUT":
		return r.styles.Response
	default:
		return r.styles.Request
	}
}

func stampOf(ts time.Time) string {
	if ts.IsZero() {
		return strings.Repeat(" ", len(timestampLayout))
	}
	return ts.Format(timestampLayout)
}
