package treemodel

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-datatree/pkg/tree"
)

// Position places a new node relative to a target.
type Position int

const (
	Before Position = iota
	After
	Inside
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "inside"
	}
}

// Location is a destination for an insertion. A nil Parent denotes the model root, in
// which case Index is a position among the roots.
type Location struct {
	Parent *tree.Node
	Index  int
}

// IsModelRoot reports whether the location is among the roots.
func (l Location) IsModelRoot() bool { return l.Parent == nil }

// GetInsertionLocation computes where a node placed at pos relative to target belongs.
// Before and After on a root resolve to the model root.
func (m *Model) GetInsertionLocation(target *tree.Node, pos Position) (Location, error) {
	if target == nil {
		return Location{}, fmt.Errorf("%w: nil target", tree.ErrInvalidArgument)
	}
	offset := 0
	switch pos {
	case Inside:
		return Location{Parent: target, Index: len(target.Children())}, nil
	case After:
		offset = 1
	case Before:
	default:
		return Location{}, fmt.Errorf("%w: position %d", tree.ErrInvalidArgument, pos)
	}

	if p := target.Parent(); p != nil {
		return Location{Parent: p, Index: p.IndexOf(target) + offset}, nil
	}
	if i := m.rootIndex(target); i >= 0 {
		return Location{Index: i + offset}, nil
	}
	return Location{}, fmt.Errorf("insert %s %q: %w", pos, target.Key(), ErrNotInModel)
}

// Insert places a detached node at loc. Roots of the model are not detached; use Move
// to place them elsewhere.
func (m *Model) Insert(loc Location, n *tree.Node) error {
	if m.rootIndex(n) >= 0 {
		return fmt.Errorf("%w: %q is already a root, move it instead", tree.ErrInvalidState, n.Key())
	}
	if loc.IsModelRoot() {
		return m.InsertRoot(loc.Index, n)
	}
	return loc.Parent.InsertChild(loc.Index, n)
}

// Move takes n out of its parent or the root list and places it at loc. The index is
// read against the destination as it is before n is removed, which is what
// GetInsertionLocation returns.
func (m *Model) Move(n *tree.Node, loc Location) error {
	if !m.Contains(n) {
		return fmt.Errorf("move %q: %w", n.Key(), ErrNotInModel)
	}
	index := loc.Index

	if !loc.IsModelRoot() {
		if n.IsAncestorOf(loc.Parent) {
			return fmt.Errorf("%w: cannot move a node under itself", tree.ErrInvalidArgument)
		}
		if p := n.Parent(); p != nil {
			if p == loc.Parent && p.IndexOf(n) < index {
				index--
			}
			return n.MoveTo(loc.Parent, index)
		}
		i := m.rootIndex(n)
		if err := m.RemoveRoot(n); err != nil {
			return err
		}
		if err := loc.Parent.InsertChild(index, n); err != nil {
			if rerr := m.InsertRoot(i, n); rerr != nil {
				return errors.Join(err, fmt.Errorf("restore root %q: %w", n.Key(), rerr))
			}
			return err
		}
		return nil
	}

	if n.Kind() == tree.KindValue {
		return fmt.Errorf("%w: values cannot become roots", tree.ErrInvalidArgument)
	}
	if p := n.Parent(); p != nil && p.Kind() == tree.KindRegion {
		return fmt.Errorf("%w: a region chunk cannot leave its region", tree.ErrInvalidArgument)
	}
	if i := m.rootIndex(n); i >= 0 {
		if i < index {
			index--
		}
		if index < 0 || index > len(m.roots)-1 {
			return fmt.Errorf("%w: root index %d, have %d roots", tree.ErrIndexOutOfRange, index, len(m.roots)-1)
		}
		if index == i {
			return nil
		}
		if err := m.RemoveRoot(n); err != nil {
			return err
		}
		return m.InsertRoot(index, n)
	}
	if index < 0 || index > len(m.roots) {
		return fmt.Errorf("%w: root index %d, have %d roots", tree.ErrIndexOutOfRange, index, len(m.roots))
	}
	if err := n.Detach(); err != nil {
		return err
	}
	return m.InsertRoot(index, n)
}
