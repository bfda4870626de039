package schema

import "sync"

// Store hands out immutable tree snapshots and serializes edits against
// them. Decode batches read a snapshot; edits clone the current tree,
// mutate the clone, and swap it in, so a batch never observes a partial
// edit and no lock is held across a decode.
type Store struct {
	mu       sync.RWMutex
	tree     *Tree
	revision uint64
}

// NewStore wraps an initial tree. A nil tree starts empty.
func NewStore(tree *Tree) *Store {
	if tree == nil {
		tree = &Tree{}
	}
	return &Store{tree: tree, revision: 1}
}

// Snapshot returns the current tree and its revision. The returned tree
// must be treated as read-only; all mutation goes through Apply or Replace.
func (s *Store) Snapshot() (*Tree, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree, s.revision
}

// Revision returns the current revision without the tree. Sessions compare
// it against their snapshot's revision to detect external edits.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Apply runs an edit against a private clone and publishes the result when
// the edit and full-tree validation both succeed. On error the published
// tree is unchanged.
func (s *Store) Apply(edit func(*Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.tree.Clone()
	if err := edit(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.tree = next
	s.revision++
	return nil
}

// Replace swaps in a fully materialized tree, for example one freshly
// loaded from the repository.
func (s *Store) Replace(tree *Tree) error {
	if tree == nil {
		tree = &Tree{}
	}
	if err := tree.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.revision++
	return nil
}
