package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

// NotFoundError reports a key path that does not exist, with the closest sibling keys.
type NotFoundError struct {
	File        string
	Path        []string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s: no value at %q", e.File, strings.Join(e.Path, "."))
	if len(e.Suggestions) > 0 {
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = strconv.Quote(s)
		}
		msg += "; did you mean " + strings.Join(quoted, ", ") + "?"
	}
	return msg
}

// ParseKeyPath splits a dot-separated key path. The empty string is the document root.
func ParseKeyPath(s string) []string {
	if s == "" || s == "." {
		return nil
	}
	return strings.Split(s, ".")
}

// Lookup finds the node at keyPath below the file, region or folder at path. For regions
// the first key selects a chunk by index.
func (s *Service) Lookup(path string, keyPath []string) (*tree.Node, error) {
	n := s.Model.FindByKey(sourceKey(path))
	if n == nil {
		return nil, fmt.Errorf("%s: %w", path, treemodel.ErrNotInModel)
	}
	cur := n
	for i, k := range keyPath {
		next := childByKey(cur, k)
		if next == nil {
			keys := make([]string, 0, len(cur.Children()))
			for _, c := range cur.Children() {
				keys = append(keys, childKey(c))
			}
			return nil, &NotFoundError{File: path, Path: keyPath[:i+1], Suggestions: Suggest(k, keys, 3)}
		}
		cur = next
	}
	return cur, nil
}

func childByKey(n *tree.Node, key string) *tree.Node {
	for _, c := range n.Children() {
		if childKey(c) == key {
			return c
		}
	}
	return nil
}

func childKey(c *tree.Node) string {
	switch c.Kind() {
	case tree.KindValue:
		return c.Key()
	case tree.KindFile:
		if i := c.Document().Chunk(); i >= 0 {
			return strconv.Itoa(i)
		}
	}
	return c.Label()
}

// Suggest returns up to n candidates close to word, nearest first.
func Suggest(word string, candidates []string, n int) []string {
	type scored struct {
		key  string
		dist int
	}
	limit := len(word) / 2
	if limit < 2 {
		limit = 2
	}
	var matches []scored
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(word), strings.ToLower(c))
		if d <= limit {
			matches = append(matches, scored{key: c, dist: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].key < matches[j].key
	})
	var out []string
	for i := 0; i < len(matches) && i < n; i++ {
		out = append(out, matches[i].key)
	}
	return out
}
