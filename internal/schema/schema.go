package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klamm/tracetail/internal/record"
)

var (
	// ErrNotFound reports a missing message type, version, or field.
	// Callers classifying lines treat it as "cannot classify", not as a
	// fatal condition.
	ErrNotFound = errors.New("schema: not found")
	// ErrMalformedFieldSpec reports a nonsensical slice definition. It is
	// only produced by edit-time validation; decoding never raises it.
	ErrMalformedFieldSpec = errors.New("schema: malformed field spec")
	// ErrExists reports a duplicate name within the same scope.
	ErrExists = errors.New("schema: already exists")
)

// FieldSpec describes how to slice one named field out of a line.
// Offsets are character offsets into the decoded text, not byte offsets.
type FieldSpec struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	// Length is nil for "to end of line".
	Length *int `json:"length,omitempty"`
	// Escapes maps an exact raw value to its replacement.
	Escapes map[string]string `json:"escapes,omitempty"`
}

// Kind returns the semantic tag derived from the field name.
func (f FieldSpec) Kind() record.FieldKind {
	return record.KindForName(f.Name)
}

// Validate checks the slice definition. Overlapping fields are allowed; a
// line may be sliced multiple independent ways.
func (f FieldSpec) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: empty field name", ErrMalformedFieldSpec)
	}
	if f.Start < 0 {
		return fmt.Errorf("%w: field %q has negative start %d", ErrMalformedFieldSpec, f.Name, f.Start)
	}
	if f.Length != nil && *f.Length <= 0 {
		return fmt.Errorf("%w: field %q has non-positive length %d", ErrMalformedFieldSpec, f.Name, *f.Length)
	}
	return nil
}

// Version is one field-layout revision of a message type. Fields keep
// declaration order; decode emits them in this order.
type Version struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// Field returns the named field spec.
func (v *Version) Field(name string) (FieldSpec, bool) {
	for _, f := range v.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// MessageType groups the versions of one log line family.
type MessageType struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Identifier is the discriminant value a line's msg_type field must
	// carry to classify as this type. Empty means "use Name".
	Identifier string `json:"identifier,omitempty"`
	// TimeoutThresholdMS flags transactions slower than this. Zero uses
	// the assembler default.
	TimeoutThresholdMS int       `json:"timeoutThresholdMs,omitempty"`
	Versions           []Version `json:"versions"`
}

// Discriminant returns the value used to classify lines as this type.
func (m *MessageType) Discriminant() string {
	if m.Identifier != "" {
		return m.Identifier
	}
	return m.Name
}

// Version returns the named layout revision.
func (m *MessageType) Version(name string) (*Version, bool) {
	for i := range m.Versions {
		if m.Versions[i].Name == name {
			return &m.Versions[i], true
		}
	}
	return nil, false
}

// Tree is the full schema for one (factory, system) pair. A Tree handed to
// a decode batch is treated as an immutable value; edits go through Store
// and produce a fresh Tree.
type Tree struct {
	Factory      string        `json:"factory,omitempty"`
	System       string        `json:"system,omitempty"`
	MessageTypes []MessageType `json:"messageTypes"`
}

// Get returns the named message type.
func (t *Tree) Get(messageType string) (*MessageType, bool) {
	for i := range t.MessageTypes {
		if t.MessageTypes[i].Name == messageType {
			return &t.MessageTypes[i], true
		}
	}
	return nil, false
}

// ListVersions returns the versions of a message type in display order.
func (t *Tree) ListVersions(messageType string) ([]Version, error) {
	mt, ok := t.Get(messageType)
	if !ok {
		return nil, fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	out := make([]Version, len(mt.Versions))
	copy(out, mt.Versions)
	return out, nil
}

// GetFieldSpec returns one field spec by (message type, version, field).
func (t *Tree) GetFieldSpec(messageType, version, field string) (FieldSpec, error) {
	mt, ok := t.Get(messageType)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	spec, ok := ver.Field(field)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: field %q of %s/%s", ErrNotFound, field, messageType, version)
	}
	return spec, nil
}

// Clone deep-copies the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	dup := &Tree{Factory: t.Factory, System: t.System}
	dup.MessageTypes = make([]MessageType, len(t.MessageTypes))
	for i, mt := range t.MessageTypes {
		cp := mt
		cp.Versions = make([]Version, len(mt.Versions))
		for j, v := range mt.Versions {
			vc := v
			vc.Fields = make([]FieldSpec, len(v.Fields))
			for k, f := range v.Fields {
				fc := f
				if f.Length != nil {
					l := *f.Length
					fc.Length = &l
				}
				if f.Escapes != nil {
					fc.Escapes = make(map[string]string, len(f.Escapes))
					for ek, ev := range f.Escapes {
						fc.Escapes[ek] = ev
					}
				}
				vc.Fields[k] = fc
			}
			cp.Versions[j] = vc
		}
		dup.MessageTypes[i] = cp
	}
	return dup
}

// Validate checks every field spec and name-uniqueness invariant.
func (t *Tree) Validate() error {
	seenTypes := make(map[string]bool, len(t.MessageTypes))
	for _, mt := range t.MessageTypes {
		if seenTypes[mt.Name] {
			return fmt.Errorf("%w: message type %q", ErrExists, mt.Name)
		}
		seenTypes[mt.Name] = true
		seenVersions := make(map[string]bool, len(mt.Versions))
		for _, v := range mt.Versions {
			if seenVersions[v.Name] {
				return fmt.Errorf("%w: version %q of %q", ErrExists, v.Name, mt.Name)
			}
			seenVersions[v.Name] = true
			seenFields := make(map[string]bool, len(v.Fields))
			for _, f := range v.Fields {
				if err := f.Validate(); err != nil {
					return fmt.Errorf("%s/%s: %w", mt.Name, v.Name, err)
				}
				lower := strings.ToLower(f.Name)
				if seenFields[lower] {
					return fmt.Errorf("%w: field %q of %s/%s", ErrExists, f.Name, mt.Name, v.Name)
				}
				seenFields[lower] = true
			}
		}
	}
	return nil
}
