package tree

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/scan"
)

var (
	// ErrInvalidArgument is returned for sources or nodes the operation cannot accept.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when a node is already attached somewhere else.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotContainer is returned when inserting under a node that cannot hold children.
	ErrNotContainer = errors.New("node cannot hold children")
	// ErrIndexOutOfRange is returned for insertion indices outside the child list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Env is the handle shared by every node of a tree: the dirty registry and the scanner
// used to re-read backing sources.
type Env struct {
	Dirty   *DirtyRegistry
	Scanner *scan.Scanner
}

// NewEnv creates an environment. A nil scanner gets a quiet default one.
func NewEnv(scanner *scan.Scanner) *Env {
	if scanner == nil {
		scanner = scan.New(nil, nil)
	}
	return &Env{Dirty: NewDirtyRegistry(), Scanner: scanner}
}

// MakeNode builds the node variant matching the source descriptor.
func MakeNode(env *Env, src any) (*Node, error) {
	switch s := src.(type) {
	case *scan.Folder:
		if s != nil {
			return NewFolderNode(env, s), nil
		}
	case *format.Document:
		if s != nil {
			return NewFileNode(env, s), nil
		}
	case *format.Region:
		if s != nil {
			return NewRegionNode(env, s), nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported source %T", ErrInvalidArgument, src)
}
