package tree

import (
	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/scan"
)

// freshChild is one child of a re-read source, matched against the cached children by
// variant and key.
type freshChild struct {
	kind  Kind
	key   string
	build func() *Node
	// equal reports whether a retained node's payload is unchanged.
	equal func(old *Node) bool
	// sync brings a retained node's own children up to date once this level is applied.
	sync func(old *Node) ChangeReport
}

func identity(kind Kind, key string) string {
	return kind.String() + "\x00" + key
}

// RefreshChildren re-reads the node's backing source and brings the cached children in
// line with it. Listeners are not notified of the returned report; the caller forwards it.
// Reports for retained descendants are raised on those descendants as the merge proceeds.
func (n *Node) RefreshChildren() ChangeReport {
	switch n.kind {
	case KindFolder:
		fresh, err := n.env.Scanner.Scan(n.folder.Path, n.folder.Recursive)
		if err != nil {
			n.env.Scanner.Logger.WithError(err).WithField("path", n.folder.Path).Debug("folder unreadable, dropping its children")
			fresh = &scan.Folder{Path: n.folder.Path, Recursive: n.folder.Recursive}
		}
		return n.syncFolder(fresh)
	case KindFile:
		root, ok := n.reloadRoot()
		if !ok {
			return n.replaceStructure(func() { n.doc.Replace(format.NewMapping("")) })
		}
		return n.syncRoot(root)
	case KindRegion:
		src, _ := n.env.Scanner.Load(n.region.Path)
		region, ok := src.(*format.Region)
		if !ok {
			return n.replaceStructure(func() { n.region.SetChunkRoots(nil) })
		}
		return n.syncRegion(region.Roots())
	default:
		return n.syncValue(n.value)
	}
}

// reloadRoot loads the document's current root from disk. Region chunks are picked out of
// the reloaded region by index.
func (n *Node) reloadRoot() (*format.Value, bool) {
	src, ok := n.env.Scanner.Load(n.doc.Path)
	if !ok {
		return nil, false
	}
	chunk := n.doc.Chunk()
	switch s := src.(type) {
	case *format.Document:
		if chunk < 0 {
			return s.Root, true
		}
	case *format.Region:
		if chunk >= 0 && chunk < len(s.Chunks) {
			return s.Chunks[chunk].Root, true
		}
	}
	return nil, false
}

func (n *Node) replaceStructure(apply func()) ChangeReport {
	apply()
	n.resetChildren()
	return ChangeReport{StructureChanged: &StructureChange{Path: n.Path()}}
}

func (n *Node) syncRoot(root *format.Value) ChangeReport {
	prev := n.doc.Root
	if format.Equal(prev, root) {
		return ChangeReport{}
	}
	n.doc.Replace(root)
	return n.syncDocChildren(prev)
}

// syncDocChildren matches a file node's children against its current root, given the
// root it was built from.
func (n *Node) syncDocChildren(prev *format.Value) ChangeReport {
	root := n.doc.Root
	if prev != nil && prev.Kind != root.Kind {
		return n.replaceStructure(func() {})
	}
	return n.syncItems(root.Items)
}

func (n *Node) syncValue(v *format.Value) ChangeReport {
	if n.value != v {
		prev := n.value
		if prev.Kind != v.Kind && (prev.IsContainer() || v.IsContainer()) {
			return n.replaceStructure(func() { n.value = v })
		}
		n.value = v
	}
	if !v.IsContainer() {
		return ChangeReport{}
	}
	return n.syncItems(v.Items)
}

func (n *Node) syncItems(items []*format.Value) ChangeReport {
	fresh := make([]freshChild, len(items))
	for i, item := range items {
		fresh[i] = freshChild{
			kind:  KindValue,
			key:   item.Key,
			build: func() *Node { return NewValueNode(n.env, item) },
			equal: func(old *Node) bool { return format.Equal(old.value, item) },
			sync:  func(old *Node) ChangeReport { return old.syncValue(item) },
		}
	}
	return n.applyDiff(fresh)
}

func (n *Node) syncRegion(roots []*format.Value) ChangeReport {
	prev := n.region.Roots()
	if rootsEqual(prev, roots) {
		return ChangeReport{}
	}
	n.region.SetChunkRoots(roots)

	fresh := make([]freshChild, len(roots))
	for i, chunk := range n.region.Chunks {
		var before *format.Value
		if i < len(prev) {
			before = prev[i]
		}
		fresh[i] = freshChild{
			kind:  KindFile,
			key:   chunk.SourcePath(),
			build: func() *Node { return NewFileNode(n.env, chunk) },
			equal: func(*Node) bool { return format.Equal(before, chunk.Root) },
			sync: func(old *Node) ChangeReport {
				if format.Equal(before, chunk.Root) {
					return ChangeReport{}
				}
				return old.syncDocChildren(before)
			},
		}
	}
	return n.applyDiff(fresh)
}

// syncFolder merges a fresh scan into the cached subtree. Retained subfolders are merged
// recursively; retained files with unsaved edits are left alone.
func (n *Node) syncFolder(fresh *scan.Folder) ChangeReport {
	n.folder = fresh

	var entries []freshChild
	for _, sub := range fresh.Subfolders {
		entries = append(entries, freshChild{
			kind:  KindFolder,
			key:   sub.Path,
			build: func() *Node { return NewFolderNode(n.env, sub) },
			equal: func(*Node) bool { return true },
			sync:  func(old *Node) ChangeReport { return old.syncFolder(sub) },
		})
	}
	for _, src := range fresh.Files {
		switch s := src.(type) {
		case *format.Document:
			entries = append(entries, freshChild{
				kind:  KindFile,
				key:   s.SourcePath(),
				build: func() *Node { return NewFileNode(n.env, s) },
				equal: func(old *Node) bool {
					return old.HasUnsavedChanges() || format.Equal(old.doc.Root, s.Root)
				},
				sync: func(old *Node) ChangeReport {
					if old.HasUnsavedChanges() {
						return ChangeReport{}
					}
					return old.syncRoot(s.Root)
				},
			})
		case *format.Region:
			entries = append(entries, freshChild{
				kind:  KindRegion,
				key:   s.Path,
				build: func() *Node { return NewRegionNode(n.env, s) },
				equal: func(old *Node) bool {
					return old.HasUnsavedChanges() || rootsEqual(old.region.Roots(), s.Roots())
				},
				sync: func(old *Node) ChangeReport {
					if old.HasUnsavedChanges() {
						return ChangeReport{}
					}
					return old.syncRegion(s.Roots())
				},
			})
		}
	}

	report := n.applyDiff(entries)
	if n.built {
		n.syncDescriptor()
	}
	return report
}

// applyDiff replaces the cached children with the fresh list. Children present on both
// sides keep their node identity. When retained children changed relative order, or keys
// are not unique, the whole level is rebuilt and reported as a structure change.
func (n *Node) applyDiff(fresh []freshChild) ChangeReport {
	if !n.built {
		return ChangeReport{}
	}
	old := n.children

	oldByID := make(map[string]int, len(old))
	for i, c := range old {
		oldByID[identity(c.kind, c.Key())] = i
	}
	freshIDs := make(map[string]bool, len(fresh))
	for _, f := range fresh {
		freshIDs[identity(f.kind, f.key)] = true
	}
	if len(oldByID) != len(old) || len(freshIDs) != len(fresh) {
		return n.rebuild(fresh)
	}

	var retainedOld []*Node
	for _, c := range old {
		if freshIDs[identity(c.kind, c.Key())] {
			retainedOld = append(retainedOld, c)
		}
	}
	k := 0
	for _, f := range fresh {
		if i, ok := oldByID[identity(f.kind, f.key)]; ok {
			if old[i] != retainedOld[k] {
				return n.rebuild(fresh)
			}
			k++
		}
	}

	var removedIdx, insertedIdx, changedIdx []int
	var removedNodes, insertedNodes, changedNodes []*Node
	for i, c := range old {
		if !freshIDs[identity(c.kind, c.Key())] {
			removedIdx = append(removedIdx, i)
			removedNodes = append(removedNodes, c)
		}
	}

	type pending struct {
		node *Node
		sync func(*Node) ChangeReport
	}
	var retained []pending
	children := make([]*Node, len(fresh))
	for j, f := range fresh {
		if i, ok := oldByID[identity(f.kind, f.key)]; ok {
			c := old[i]
			if !f.equal(c) {
				changedIdx = append(changedIdx, j)
				changedNodes = append(changedNodes, c)
			}
			children[j] = c
			if f.sync != nil {
				retained = append(retained, pending{node: c, sync: f.sync})
			}
			continue
		}
		c := f.build()
		c.parent = n
		children[j] = c
		insertedIdx = append(insertedIdx, j)
		insertedNodes = append(insertedNodes, c)
	}

	for _, c := range removedNodes {
		c.parent = nil
	}
	n.children = children

	for _, r := range retained {
		if nested := r.sync(r.node); !nested.IsEmpty() {
			r.node.notify(nested)
		}
	}

	path := n.Path()
	return ChangeReport{
		Removed:  itemsChange(path, removedIdx, removedNodes),
		Inserted: itemsChange(path, insertedIdx, insertedNodes),
		Changed:  itemsChange(path, changedIdx, changedNodes),
	}
}

func (n *Node) rebuild(fresh []freshChild) ChangeReport {
	for _, c := range n.children {
		c.parent = nil
	}
	children := make([]*Node, len(fresh))
	for j, f := range fresh {
		c := f.build()
		c.parent = n
		children[j] = c
	}
	n.children = children
	n.built = true
	return ChangeReport{StructureChanged: &StructureChange{Path: n.Path()}}
}

// syncDescriptor rewrites a folder's descriptor from its current children.
func (n *Node) syncDescriptor() {
	var subs []*scan.Folder
	var files []format.Source
	for _, c := range n.children {
		switch c.kind {
		case KindFolder:
			subs = append(subs, c.folder)
		case KindFile:
			files = append(files, c.doc)
		case KindRegion:
			files = append(files, c.region)
		}
	}
	n.folder.Subfolders, n.folder.Files = subs, files
}

func rootsEqual(a, b []*format.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !format.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
