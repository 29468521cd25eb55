package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/scan"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestFlatten(t *testing.T) {
	roots, err := format.Decode([]byte("name: demo\ntags: [a, b]\nempty: {}\nnested:\n  deep: x\n"))
	require.NoError(t, err)

	entries := Flatten("f.yaml", roots[0])
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.KeyPath)
	}
	assert.Equal(t, []string{"name", "tags.0", "tags.1", "empty", "nested.deep"}, paths)
	assert.Equal(t, "mapping", entries[3].Kind)
	assert.Equal(t, "demo", entries[0].Text)
}

func TestIndexModelAndSearch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: alpha\nowner: carol\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.yaml"), []byte("name: beta\n---\nname: gamma\n"), 0644))

	folder, err := scan.New(nil, nil).Scan(dir, true)
	require.NoError(t, err)
	m := treemodel.New(nil, nil)
	require.NoError(t, m.Import(folder))

	idx := newIndex(t)
	files, err := idx.IndexModel(m)
	require.NoError(t, err)
	assert.Equal(t, 3, files, "one file and two region chunks")

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	results, err := idx.Search("gamma", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "r.yaml")+"#1", results[0].File)
	assert.Equal(t, "name", results[0].KeyPath)

	results, err = idx.Search("carol", &Options{File: filepath.Join(dir, "a.yaml")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "owner", results[0].KeyPath)

	results, err = idx.Search("carol", &Options{File: "elsewhere.yaml"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReindexAndRemove(t *testing.T) {
	idx := newIndex(t)
	roots, err := format.Decode([]byte("k: first\n"))
	require.NoError(t, err)
	require.NoError(t, idx.IndexFile("f.yaml", roots[0]))

	roots, err = format.Decode([]byte("k: second\n"))
	require.NoError(t, err)
	require.NoError(t, idx.IndexFile("f.yaml", roots[0]))

	results, err := idx.Search("first", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	results, err = idx.Search("second", nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	require.NoError(t, idx.RemoveFile("f.yaml"))
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
