package record

import (
	"strings"
	"time"
)

// FieldKind is the semantic tag attached to a decoded field. Downstream
// components (classifier, assembler, renderer) match on the tag instead of
// re-deriving meaning from operator-chosen field names.
type FieldKind string

const (
	KindTimestamp   FieldKind = "ts"
	KindNode        FieldKind = "node"
	KindDirection   FieldKind = "dir"
	KindMessageType FieldKind = "msg_type"
	KindField       FieldKind = "field"
)

// KindForName maps a schema field name onto its semantic kind. Matching is
// case-insensitive so operators are free to name fields "TS", "Dir", etc.
func KindForName(name string) FieldKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ts", "timestamp":
		return KindTimestamp
	case "node":
		return KindNode
	case "dir", "direction":
		return KindDirection
	case "msg_type", "message_type":
		return KindMessageType
	default:
		return KindField
	}
}

// DecodedField is one named slice extracted from a log line.
type DecodedField struct {
	Name  string    `json:"name"`
	Raw   string    `json:"raw"`
	Value string    `json:"value"`
	Kind  FieldKind `json:"kind"`
	// Escaped is true when the raw value exactly matched an escape key and
	// Value carries the substitution.
	Escaped bool `json:"escaped,omitempty"`
}

// Entry is one decoded standalone log line.
type Entry struct {
	Timestamp   time.Time      `json:"timestamp"`
	Node        string         `json:"node"`
	Direction   string         `json:"direction"`
	MessageType string         `json:"messageType"`
	Version     string         `json:"version"`
	Raw         string         `json:"raw"`
	Segments    []DecodedField `json:"segments"`
}

// Field returns the first segment whose name matches, case-insensitively.
func (e Entry) Field(name string) (DecodedField, bool) {
	for _, seg := range e.Segments {
		if strings.EqualFold(seg.Name, name) {
			return seg, true
		}
	}
	return DecodedField{}, false
}

// EscapeHits returns the segments whose raw value matched an escape key.
func (e Entry) EscapeHits() []DecodedField {
	var hits []DecodedField
	for _, seg := range e.Segments {
		if seg.Escaped {
			hits = append(hits, seg)
		}
	}
	return hits
}

// Transaction pairs a request entry with its response. Transaction ids are
// only unique per node, so the identity is the (Node, TransactionID) pair.
type Transaction struct {
	Node          string    `json:"node"`
	TransactionID string    `json:"transactionId"`
	StartTime     time.Time `json:"startTime"`
	LatestRequest *Entry    `json:"latestRequest"`
	Response      *Entry    `json:"response"`
	// TimedOut is set when the round trip exceeded the message type's
	// configured threshold.
	TimedOut    bool `json:"timedOut,omitempty"`
	ThresholdMS int  `json:"thresholdMs,omitempty"`
}

// Complete reports whether a response has been paired.
func (t Transaction) Complete() bool {
	return t.Response != nil
}

// Duration returns the request→response round trip, or false when either
// side lacks a usable timestamp.
func (t Transaction) Duration() (time.Duration, bool) {
	if t.Response == nil || t.StartTime.IsZero() || t.Response.Timestamp.IsZero() {
		return 0, false
	}
	return t.Response.Timestamp.Sub(t.StartTime), true
}

// Timestamp layouts seen in device logs, most specific first. The two-digit
// day-first layout is the native tcp_trace format.
var timestampLayouts = []string{
	"02.01.06 15:04:05.000",
	"02.01.06 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a timestamp field value. It returns the zero time
// when no layout matches; callers treat that as "no timestamp" rather than
// an error.
func ParseTimestamp(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
