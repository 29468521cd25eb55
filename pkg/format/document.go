// Package format loads and saves the structured YAML documents that the tree wraps.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExtensions are the file extensions TryLoad considers.
var DefaultExtensions = []string{".yaml", ".yml"}

var errScalarRoot = errors.New("document root is not a mapping or sequence")

// Source is anything backed by a path on disk.
type Source interface {
	SourcePath() string
}

// Document is a single structured document. Chunks of a region point back to it.
type Document struct {
	Path string
	Root *Value

	region  *Region
	chunk   int
	unsaved bool
}

// SourcePath returns the file path, suffixed with #index for region chunks.
func (d *Document) SourcePath() string {
	if d.region != nil {
		return d.Path + "#" + strconv.Itoa(d.chunk)
	}
	return d.Path
}

// Region returns the region this document belongs to, if any.
func (d *Document) Region() *Region {
	return d.region
}

// Chunk returns the document's index within its region, or -1 for standalone documents.
func (d *Document) Chunk() int {
	if d.region == nil {
		return -1
	}
	return d.chunk
}

// HasUnsavedChanges reports whether the document was edited since it was loaded or saved.
func (d *Document) HasUnsavedChanges() bool {
	return d.unsaved
}

// MarkUnsaved flags the document as edited.
func (d *Document) MarkUnsaved() {
	d.unsaved = true
}

// Replace swaps in a freshly loaded root and clears the unsaved state.
func (d *Document) Replace(root *Value) {
	d.Root = root
	d.unsaved = false
}

// Region is a file whose YAML stream holds several documents.
type Region struct {
	Path   string
	Chunks []*Document

	unsaved bool
}

// SourcePath returns the region file path.
func (r *Region) SourcePath() string {
	return r.Path
}

// HasUnsavedChanges reports whether any chunk was edited or removed.
func (r *Region) HasUnsavedChanges() bool {
	if r.unsaved {
		return true
	}
	for _, c := range r.Chunks {
		if c.unsaved {
			return true
		}
	}
	return false
}

// NewRegion builds a region from decoded roots.
func NewRegion(path string, roots []*Value) *Region {
	r := &Region{Path: path}
	for i, root := range roots {
		r.Chunks = append(r.Chunks, &Document{Path: path, Root: root, region: r, chunk: i})
	}
	return r
}

// Roots returns the root value of every chunk, in order.
func (r *Region) Roots() []*Value {
	roots := make([]*Value, len(r.Chunks))
	for i, c := range r.Chunks {
		roots[i] = c.Root
	}
	return roots
}

// SetChunkRoots replaces the chunk contents with freshly loaded roots. Existing chunk
// documents are reused by position so references to them stay valid.
func (r *Region) SetChunkRoots(roots []*Value) {
	for i, root := range roots {
		if i < len(r.Chunks) {
			r.Chunks[i].Replace(root)
			continue
		}
		r.Chunks = append(r.Chunks, &Document{Path: r.Path, Root: root, region: r, chunk: i})
	}
	for _, c := range r.Chunks[len(roots):] {
		c.region = nil
	}
	r.Chunks = r.Chunks[:len(roots)]
	r.unsaved = false
}

// RemoveChunk drops the chunk at index and renumbers the rest.
func (r *Region) RemoveChunk(index int) (*Document, error) {
	if index < 0 || index >= len(r.Chunks) {
		return nil, fmt.Errorf("remove chunk %d out of range [0,%d)", index, len(r.Chunks))
	}
	removed := r.Chunks[index]
	r.Chunks = append(r.Chunks[:index], r.Chunks[index+1:]...)
	for i, c := range r.Chunks {
		c.chunk = i
	}
	removed.region = nil
	r.unsaved = true
	return removed, nil
}

// Loader decides which files are structured documents.
type Loader struct {
	Extensions []string
}

// Accepts reports whether the path carries one of the loader's extensions.
func (l Loader) Accepts(path string) bool {
	exts := l.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// TryLoad reads path and returns a *Document or *Region. It returns false instead of an
// error when the file is unreadable or not a structured document.
func (l Loader) TryLoad(path string) (Source, bool) {
	if !l.Accepts(path) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	roots, err := Decode(data)
	if err != nil || len(roots) == 0 {
		return nil, false
	}
	if len(roots) == 1 {
		return &Document{Path: path, Root: roots[0]}, true
	}
	return NewRegion(path, roots), true
}

// TryLoad loads path using the default extensions.
func TryLoad(path string) (Source, bool) {
	return Loader{}.TryLoad(path)
}

// Decode parses every document in a YAML stream. Each root must be a container.
func Decode(data []byte) ([]*Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var roots []*Value
	for {
		var n yaml.Node
		err := dec.Decode(&n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(roots), err)
		}
		node := &n
		if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
			node = node.Content[0]
		}
		v := fromNode("", node)
		if !v.IsContainer() {
			return nil, fmt.Errorf("document %d: %w", len(roots), errScalarRoot)
		}
		roots = append(roots, v)
	}
	return roots, nil
}

func fromNode(key string, n *yaml.Node) *Value {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		v := NewMapping(key)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v.Items = append(v.Items, fromNode(n.Content[i].Value, n.Content[i+1]))
		}
		return v
	case yaml.SequenceNode:
		v := NewSequence(key)
		for i, c := range n.Content {
			v.Items = append(v.Items, fromNode(strconv.Itoa(i), c))
		}
		return v
	default:
		return &Value{Key: key, Kind: KindScalar, Tag: n.ShortTag(), Text: n.Value}
	}
}

func toNode(v *Value) *yaml.Node {
	switch v.Kind {
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, item := range v.Items {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item.Key},
				toNode(item))
		}
		return n
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			n.Content = append(n.Content, toNode(item))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: v.Tag, Value: v.Text}
	}
}

// Encode writes the roots as one YAML stream.
func Encode(roots []*Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for i, root := range roots {
		if err := enc.Encode(toNode(root)); err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes a document or region back to disk and clears its unsaved state.
// Saving a region chunk saves the whole region.
func Save(src Source) error {
	switch s := src.(type) {
	case *Document:
		if s.region != nil {
			return Save(s.region)
		}
		data, err := Encode([]*Value{s.Root})
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.Path, data, 0644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		s.unsaved = false
		return nil
	case *Region:
		data, err := Encode(s.Roots())
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.Path, data, 0644); err != nil {
			return fmt.Errorf("write region: %w", err)
		}
		for _, c := range s.Chunks {
			c.unsaved = false
		}
		s.unsaved = false
		return nil
	default:
		return fmt.Errorf("cannot save source of type %T", src)
	}
}
