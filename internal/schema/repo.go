package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Repository persists schema trees as JSON files, one per
// (factory, system) pair, under a single directory.
type Repository struct {
	dir string
}

// NewRepository creates the directory if needed.
func NewRepository(dir string) (*Repository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("schema repository dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create schema dir: %w", err)
	}
	return &Repository{dir: dir}, nil
}

var unsafePart = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func safePart(s string) string {
	return strings.Trim(unsafePart.ReplaceAllString(s, "_"), "._-")
}

// Path returns the file backing one (factory, system) tree.
func (r *Repository) Path(factory, system string) string {
	name := fmt.Sprintf("%s__%s.json", safePart(factory), safePart(system))
	return filepath.Join(r.dir, name)
}

// LoadTree reads the tree for a (factory, system) pair. A missing file
// yields an empty tree rather than an error so a fresh deployment can
// start editing immediately.
func (r *Repository) LoadTree(factory, system string) (*Tree, error) {
	data, err := os.ReadFile(r.Path(factory, system))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Tree{Factory: factory, System: system}, nil
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	tree.Factory = factory
	tree.System = system
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return &tree, nil
}

// SaveTree writes the tree atomically: marshal to a temp file in the same
// directory, then rename over the destination.
func (r *Repository) SaveTree(factory, system string, tree *Tree) error {
	if tree == nil {
		return fmt.Errorf("save schema: nil tree")
	}
	if err := tree.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	dest := r.Path(factory, system)
	tmp, err := os.CreateTemp(r.dir, ".schema-*.json")
	if err != nil {
		return fmt.Errorf("create temp schema: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp schema: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
