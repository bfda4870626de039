package schema

import (
	"fmt"
	"strings"
)

// Edit operations mutate a Tree in place. They are meant to run inside
// Store.Apply, which hands them a private clone, so in-flight decode
// batches never observe a partially edited tree.

// AddMessageType appends an empty message type.
func (t *Tree) AddMessageType(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty message type name", ErrMalformedFieldSpec)
	}
	if _, ok := t.Get(name); ok {
		return fmt.Errorf("%w: message type %q", ErrExists, name)
	}
	t.MessageTypes = append(t.MessageTypes, MessageType{Name: name, Description: description})
	return nil
}

// RenameMessageType renames a message type, keeping its versions.
func (t *Tree) RenameMessageType(oldName, newName string) error {
	if _, ok := t.Get(newName); ok {
		return fmt.Errorf("%w: message type %q", ErrExists, newName)
	}
	mt, ok := t.Get(oldName)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, oldName)
	}
	mt.Name = newName
	return nil
}

// DeleteMessageType removes a message type and all its versions.
func (t *Tree) DeleteMessageType(name string) error {
	for i := range t.MessageTypes {
		if t.MessageTypes[i].Name == name {
			t.MessageTypes = append(t.MessageTypes[:i], t.MessageTypes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: message type %q", ErrNotFound, name)
}

// AddVersion appends an empty layout revision to a message type.
func (t *Tree) AddVersion(messageType, version string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	if _, ok := mt.Version(version); ok {
		return fmt.Errorf("%w: version %q of %q", ErrExists, version, messageType)
	}
	mt.Versions = append(mt.Versions, Version{Name: version})
	return nil
}

// RenameVersion renames a layout revision.
func (t *Tree) RenameVersion(messageType, oldName, newName string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	if _, ok := mt.Version(newName); ok {
		return fmt.Errorf("%w: version %q of %q", ErrExists, newName, messageType)
	}
	ver, ok := mt.Version(oldName)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, oldName, messageType)
	}
	ver.Name = newName
	return nil
}

// DeleteVersion removes a layout revision.
func (t *Tree) DeleteVersion(messageType, version string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	for i := range mt.Versions {
		if mt.Versions[i].Name == version {
			mt.Versions = append(mt.Versions[:i], mt.Versions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
}

// SetField adds or replaces a field spec, validating the slice definition.
func (t *Tree) SetField(messageType, version string, spec FieldSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	for i := range ver.Fields {
		if strings.EqualFold(ver.Fields[i].Name, spec.Name) {
			ver.Fields[i] = spec
			return nil
		}
	}
	ver.Fields = append(ver.Fields, spec)
	return nil
}

// RenameField renames a field, keeping its slice definition and escapes.
func (t *Tree) RenameField(messageType, version, oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("%w: empty field name", ErrMalformedFieldSpec)
	}
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	if _, ok := ver.Field(newName); ok {
		return fmt.Errorf("%w: field %q of %s/%s", ErrExists, newName, messageType, version)
	}
	for i := range ver.Fields {
		if strings.EqualFold(ver.Fields[i].Name, oldName) {
			ver.Fields[i].Name = newName
			return nil
		}
	}
	return fmt.Errorf("%w: field %q of %s/%s", ErrNotFound, oldName, messageType, version)
}

// DeleteField removes a field spec from a version.
func (t *Tree) DeleteField(messageType, version, field string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	for i := range ver.Fields {
		if strings.EqualFold(ver.Fields[i].Name, field) {
			ver.Fields = append(ver.Fields[:i], ver.Fields[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: field %q of %s/%s", ErrNotFound, field, messageType, version)
}

// SetEscape adds or replaces one escape mapping on a field.
func (t *Tree) SetEscape(messageType, version, field, raw, replacement string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	for i := range ver.Fields {
		if strings.EqualFold(ver.Fields[i].Name, field) {
			if ver.Fields[i].Escapes == nil {
				ver.Fields[i].Escapes = make(map[string]string)
			}
			ver.Fields[i].Escapes[raw] = replacement
			return nil
		}
	}
	return fmt.Errorf("%w: field %q of %s/%s", ErrNotFound, field, messageType, version)
}

// DeleteEscape removes one escape mapping from a field.
func (t *Tree) DeleteEscape(messageType, version, field, raw string) error {
	mt, ok := t.Get(messageType)
	if !ok {
		return fmt.Errorf("%w: message type %q", ErrNotFound, messageType)
	}
	ver, ok := mt.Version(version)
	if !ok {
		return fmt.Errorf("%w: version %q of %q", ErrNotFound, version, messageType)
	}
	for i := range ver.Fields {
		if strings.EqualFold(ver.Fields[i].Name, field) {
			if _, present := ver.Fields[i].Escapes[raw]; !present {
				return fmt.Errorf("%w: escape %q on field %q", ErrNotFound, raw, field)
			}
			delete(ver.Fields[i].Escapes, raw)
			return nil
		}
	}
	return fmt.Errorf("%w: field %q of %s/%s", ErrNotFound, field, messageType, version)
}
