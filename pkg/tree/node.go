package tree

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/scan"
)

// Kind categorizes the different variants of nodes in the tree.
type Kind int

const (
	KindFolder Kind = iota // A scanned directory
	KindFile               // A single structured document, or one chunk of a region
	KindRegion             // A file holding several documents
	KindValue              // A value inside a document
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	case KindRegion:
		return "region"
	default:
		return "value"
	}
}

// Node is a single element of the tree wrapping one data source. It owns its children;
// the parent pointer is a back-reference for navigation only and is cleared on detach.
type Node struct {
	kind Kind
	env  *Env

	parent   *Node
	children []*Node
	built    bool

	folder *scan.Folder
	doc    *format.Document
	region *format.Region
	value  *format.Value

	listeners Listeners[ChangeReport]
}

// NewFolderNode wraps a scanned folder.
func NewFolderNode(env *Env, folder *scan.Folder) *Node {
	return &Node{kind: KindFolder, env: env, folder: folder}
}

// NewFileNode wraps a single document.
func NewFileNode(env *Env, doc *format.Document) *Node {
	return &Node{kind: KindFile, env: env, doc: doc}
}

// NewRegionNode wraps a multi-document file.
func NewRegionNode(env *Env, region *format.Region) *Node {
	return &Node{kind: KindRegion, env: env, region: region}
}

// NewValueNode wraps a value. The node is detached until inserted under a container.
func NewValueNode(env *Env, value *format.Value) *Node {
	return &Node{kind: KindValue, env: env, value: value}
}

// Kind returns the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// Folder returns the wrapped folder for folder nodes.
func (n *Node) Folder() *scan.Folder { return n.folder }

// Document returns the wrapped document for file nodes.
func (n *Node) Document() *format.Document { return n.doc }

// Region returns the wrapped region for region nodes.
func (n *Node) Region() *format.Region { return n.region }

// Value returns the payload of a value node, or the root value of a file node.
func (n *Node) Value() *format.Value {
	switch n.kind {
	case KindValue:
		return n.value
	case KindFile:
		return n.doc.Root
	}
	return nil
}

// Key identifies the node among its siblings: the backing path for folders, files and
// regions, the mapping key or sequence index for values.
func (n *Node) Key() string {
	switch n.kind {
	case KindFolder:
		return n.folder.Path
	case KindFile:
		return n.doc.SourcePath()
	case KindRegion:
		return n.region.Path
	default:
		return n.value.Key
	}
}

// Label is the short display name.
func (n *Node) Label() string {
	switch n.kind {
	case KindFolder, KindRegion:
		return filepath.Base(n.Key())
	case KindFile:
		if n.doc.Region() != nil {
			key := n.doc.SourcePath()
			return "chunk " + key[strings.LastIndex(key, "#")+1:]
		}
		return filepath.Base(n.doc.Path)
	default:
		return n.value.Key
	}
}

// Parent returns the parent node, or nil for roots and detached nodes.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Path returns the nodes from the root down to this node.
func (n *Node) Path() TreePath {
	var path TreePath
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) IsAncestorOf(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// HasChildren reports whether the variant can hold children, regardless of whether it
// currently does.
func (n *Node) HasChildren() bool {
	switch n.kind {
	case KindFolder, KindRegion:
		return true
	case KindFile:
		return n.doc.Root.IsContainer()
	default:
		return n.value.IsContainer()
	}
}

// Children returns the ordered children, building them from the payload on first use.
// The returned slice must not be modified.
func (n *Node) Children() []*Node {
	if !n.built {
		n.children = n.buildChildren()
		n.built = true
	}
	return n.children
}

// IndexOf returns the position of child among the children, or -1.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.Children() {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) buildChildren() []*Node {
	var children []*Node
	switch n.kind {
	case KindFolder:
		for _, sub := range n.folder.Subfolders {
			children = append(children, NewFolderNode(n.env, sub))
		}
		for _, src := range n.folder.Files {
			if child := sourceNode(n.env, src); child != nil {
				children = append(children, child)
			}
		}
	case KindRegion:
		for _, chunk := range n.region.Chunks {
			children = append(children, NewFileNode(n.env, chunk))
		}
	default:
		if v := n.Value(); v.IsContainer() {
			for _, item := range v.Items {
				children = append(children, NewValueNode(n.env, item))
			}
		}
	}
	for _, c := range children {
		c.parent = n
	}
	return children
}

// resetChildren drops the cached children so they are rebuilt from the payload.
func (n *Node) resetChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
	n.built = false
}

func sourceNode(env *Env, src format.Source) *Node {
	switch s := src.(type) {
	case *format.Document:
		return NewFileNode(env, s)
	case *format.Region:
		return NewRegionNode(env, s)
	}
	return nil
}

// IsFolder reports whether the node wraps a folder.
func (n *Node) IsFolder() bool { return n.kind == KindFolder }

// WrapsFile reports whether the node wraps a document or region on disk.
func (n *Node) WrapsFile() bool { return n.kind == KindFile || n.kind == KindRegion }

// OwnerDocument returns the document a file or value node belongs to.
func (n *Node) OwnerDocument() *format.Document {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.kind == KindFile {
			return cur.doc
		}
	}
	return nil
}

// HasUnsavedChanges reports whether the wrapped file has edits not yet saved.
func (n *Node) HasUnsavedChanges() bool {
	switch n.kind {
	case KindFile:
		return n.doc.HasUnsavedChanges()
	case KindRegion:
		return n.region.HasUnsavedChanges()
	}
	return false
}

// Save writes the wrapped file, or the file owning this value, back to disk.
func (n *Node) Save() error {
	if n.kind == KindRegion {
		return format.Save(n.region)
	}
	doc := n.OwnerDocument()
	if doc == nil {
		return fmt.Errorf("%w: %s node has no document to save", ErrInvalidArgument, n.kind)
	}
	return format.Save(doc)
}

// Subscribe registers a listener for reports raised by this node or its descendants.
func (n *Node) Subscribe(fn func(ChangeReport)) Subscription {
	return n.listeners.Add(fn)
}

// Unsubscribe removes a listener. Removing an unknown subscription is a no-op.
func (n *Node) Unsubscribe(sub Subscription) {
	n.listeners.Remove(sub)
}

// notify delivers the report to this node's listeners and then to every ancestor's.
func (n *Node) notify(r ChangeReport) {
	if r.IsEmpty() {
		return
	}
	for cur := n; cur != nil; cur = cur.parent {
		cur.listeners.Emit(r)
	}
}

// MarkDirty flags the node for re-synchronization on the next refresh.
func (n *Node) MarkDirty() {
	n.env.Dirty.Mark(n)
}

// IsDirty reports whether the node is waiting for a refresh.
func (n *Node) IsDirty() bool {
	return n.env.Dirty.Contains(n)
}

// Env returns the shared environment the node was created with.
func (n *Node) Env() *Env { return n.env }
