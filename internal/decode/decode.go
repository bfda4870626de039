// Package decode slices fixed-layout log lines into named fields using a
// schema tree and classifies lines against message type versions.
package decode

import (
	"fmt"
	"strings"

	"github.com/klamm/tracetail/internal/record"
	"github.com/klamm/tracetail/internal/schema"
)

// Fields extracts every field of a version from one line, in declaration
// order. It is a pure function of (version, line): no hidden state, no
// errors. Short lines yield empty values; the decoder never rejects a line.
//
// Offsets are character offsets. Callers decode raw bytes to text before
// this step; multi-byte encodings are their concern, not this function's.
func Fields(line string, version *schema.Version) []record.DecodedField {
	if version == nil {
		return nil
	}
	runes := []rune(line)
	out := make([]record.DecodedField, 0, len(version.Fields))
	for _, spec := range version.Fields {
		out = append(out, extract(runes, spec))
	}
	return out
}

func extract(runes []rune, spec schema.FieldSpec) record.DecodedField {
	field := record.DecodedField{Name: spec.Name, Kind: spec.Kind()}

	start := spec.Start
	if start < 0 || start >= len(runes) {
		// Short or truncated line: empty value, deliberately not an error.
		return field
	}
	end := len(runes)
	if spec.Length != nil {
		if e := start + *spec.Length; e < end {
			end = e
		}
	}
	field.Raw = string(runes[start:end])
	field.Value = strings.TrimSpace(field.Raw)

	// Escape substitution is exact-match and wholesale: a value merely
	// containing an escape key passes through unchanged.
	if replacement, ok := spec.Escapes[field.Value]; ok {
		field.Value = replacement
		field.Escaped = true
	}
	return field
}

// Classifier selects which (message type, version) layout applies to a
// line by decoding each candidate's msg_type-kind slice and comparing it
// with the type's discriminant. The last successful pair is memoized and
// tried first; schemas are small (tens of versions) so the full scan on
// miss stays cheap.
type Classifier struct {
	lastType    string
	lastVersion string
}

// Classify returns the matching (message type, version) names.
func (c *Classifier) Classify(line string, tree *schema.Tree) (string, string, bool) {
	if tree == nil {
		return "", "", false
	}
	runes := []rune(line)

	if c.lastType != "" {
		if mt, ok := tree.Get(c.lastType); ok {
			if ver, ok := mt.Version(c.lastVersion); ok && matches(runes, mt, ver) {
				return c.lastType, c.lastVersion, true
			}
		}
	}

	for i := range tree.MessageTypes {
		mt := &tree.MessageTypes[i]
		for j := range mt.Versions {
			ver := &mt.Versions[j]
			if matches(runes, mt, ver) {
				c.lastType = mt.Name
				c.lastVersion = ver.Name
				return mt.Name, ver.Name, true
			}
		}
	}
	return "", "", false
}

func matches(runes []rune, mt *schema.MessageType, ver *schema.Version) bool {
	for _, spec := range ver.Fields {
		if spec.Kind() != record.KindMessageType {
			continue
		}
		got := extract(runes, spec)
		return got.Value == mt.Discriminant()
	}
	return false
}

// Decoder turns raw lines into entries against one schema snapshot. The
// snapshot is immutable for the decoder's lifetime; swap in a new Decoder
// after a schema edit.
type Decoder struct {
	tree       *schema.Tree
	classifier Classifier
}

// NewDecoder wraps a schema snapshot.
func NewDecoder(tree *schema.Tree) *Decoder {
	return &Decoder{tree: tree}
}

// Line classifies and decodes one raw line. Unclassifiable lines return a
// schema.ErrNotFound-wrapped error; callers drop them from structured
// decoding but keep them in the raw view.
func (d *Decoder) Line(line string) (record.Entry, error) {
	mtName, verName, ok := d.classifier.Classify(line, d.tree)
	if !ok {
		return record.Entry{}, fmt.Errorf("classify line: %w", schema.ErrNotFound)
	}
	mt, _ := d.tree.Get(mtName)
	ver, _ := mt.Version(verName)

	entry := record.Entry{
		MessageType: mtName,
		Version:     verName,
		Raw:         line,
		Segments:    Fields(line, ver),
	}
	for _, seg := range entry.Segments {
		switch seg.Kind {
		case record.KindTimestamp:
			if entry.Timestamp.IsZero() {
				entry.Timestamp = record.ParseTimestamp(seg.Value)
			}
		case record.KindNode:
			if entry.Node == "" {
				entry.Node = seg.Value
			}
		case record.KindDirection:
			if entry.Direction == "" {
				entry.Direction = seg.Value
			}
		}
	}
	return entry, nil
}

// Lines decodes a batch, silently dropping unclassifiable lines, and
// reports how many were dropped.
func (d *Decoder) Lines(lines []string) ([]record.Entry, int) {
	entries := make([]record.Entry, 0, len(lines))
	dropped := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := d.Line(line)
		if err != nil {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, dropped
}
