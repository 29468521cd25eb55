package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/pkg/format"
)

func TestRefreshUnchangedFolderIsEmpty(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a: 1\n")
	writeFile(t, dir, "sub/b.yaml", "b: 1\n")

	root := folderNode(t, env, dir)
	before := root.Children()
	child(t, child(t, root, "sub"), "b.yaml").Children()

	report := root.RefreshChildren()
	assert.True(t, report.IsEmpty())
	assert.Equal(t, before, root.Children())
}

func TestRefreshFolderInsertedAndRemoved(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a: 1\n")
	writeFile(t, dir, "c.yaml", "c: 1\n")

	root := folderNode(t, env, dir)
	a := child(t, root, "a.yaml")
	c := child(t, root, "c.yaml")

	writeFile(t, dir, "b.yaml", "b: 1\n")
	report := root.RefreshChildren()
	require.NotNil(t, report.Inserted)
	assert.Nil(t, report.Removed)
	assert.Nil(t, report.Changed)
	assert.Equal(t, TreePath{root}, report.Inserted.Path)
	assert.Equal(t, []int{1}, report.Inserted.Indices)
	assert.Equal(t, "b.yaml", report.Inserted.Nodes[0].Label())
	assert.Equal(t, []string{"a.yaml", "b.yaml", "c.yaml"}, labels(root.Children()))
	assert.Same(t, a, root.Children()[0], "retained nodes keep their identity")
	assert.Same(t, c, root.Children()[2])

	require.NoError(t, removeFile(dir, "a.yaml"))
	report = root.RefreshChildren()
	require.NotNil(t, report.Removed)
	assert.Nil(t, report.Inserted)
	assert.Equal(t, []int{0}, report.Removed.Indices)
	assert.Same(t, a, report.Removed.Nodes[0])
	assert.Nil(t, a.Parent())
	assert.Equal(t, []string{"b.yaml", "c.yaml"}, labels(root.Children()))
	assert.Len(t, root.Folder().Files, 2)
}

func TestRefreshFolderMergesChangedFiles(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a: 1\nb: 2\n")
	writeFile(t, dir, "z.yaml", "z: 1\n")

	root := folderNode(t, env, dir)
	file := child(t, root, "a.yaml")
	a := child(t, file, "a")
	rec := record(root)

	writeFile(t, dir, "a.yaml", "a: 5\nb: 2\n")
	report := root.RefreshChildren()

	require.NotNil(t, report.Changed)
	assert.Equal(t, []int{0}, report.Changed.Indices)
	assert.Same(t, file, report.Changed.Nodes[0])

	require.Len(t, rec.reports, 1, "the file's own change is raised on the file")
	nested := rec.reports[0].Changed
	require.NotNil(t, nested)
	assert.Equal(t, TreePath{root, file}, nested.Path)
	assert.Equal(t, []int{0}, nested.Indices)

	assert.Same(t, a, child(t, file, "a"))
	assert.Equal(t, "5", a.Value().Text)
}

func TestRefreshFolderKeepsUnsavedEdits(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a: 1\n")

	root := folderNode(t, env, dir)
	file := child(t, root, "a.yaml")
	require.NoError(t, child(t, file, "a").SetScalar("edited"))

	writeFile(t, dir, "a.yaml", "a: 2\n")
	writeFile(t, dir, "b.yaml", "b: 1\n")
	report := root.RefreshChildren()

	assert.NotNil(t, report.Inserted)
	assert.Nil(t, report.Changed)
	assert.Equal(t, "edited", child(t, file, "a").Value().Text)
	assert.True(t, file.HasUnsavedChanges())
}

func TestRefreshVanishedFolderDropsChildren(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	writeFile(t, dir, "sub/a.yaml", "a: 1\n")

	root := folderNode(t, env, dir)
	sub := child(t, root, "sub")
	require.Len(t, sub.Children(), 1)

	require.NoError(t, removeAll(dir, "sub"))
	report := sub.RefreshChildren()
	require.NotNil(t, report.Removed)
	assert.Equal(t, []int{0}, report.Removed.Indices)
	assert.Empty(t, sub.Children())
}

func TestRefreshFileChangedValue(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "a: 1\nb: 2\n")

	file := fileNode(t, env, path)
	file.Children()

	writeFile(t, dir, "a.yaml", "a: 1\nb: 3\nc: 4\n")
	report := file.RefreshChildren()

	require.NotNil(t, report.Changed)
	assert.Equal(t, []int{1}, report.Changed.Indices)
	require.NotNil(t, report.Inserted)
	assert.Equal(t, []int{2}, report.Inserted.Indices)
	assert.Equal(t, []string{"a", "b", "c"}, labels(file.Children()))
	assert.False(t, file.HasUnsavedChanges())
}

func TestRefreshFileReorderIsStructureChange(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "a: 1\nb: 2\n")

	file := fileNode(t, env, path)
	old := file.Children()

	writeFile(t, dir, "a.yaml", "b: 2\na: 1\n")
	report := file.RefreshChildren()

	require.NotNil(t, report.StructureChanged)
	assert.Equal(t, TreePath{file}, report.StructureChanged.Path)
	assert.Nil(t, report.Inserted)
	assert.Equal(t, []string{"b", "a"}, labels(file.Children()))
	for _, c := range old {
		assert.Nil(t, c.Parent())
	}
}

func TestRefreshUnloadableFileIsStructureChange(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "a: 1\n")

	file := fileNode(t, env, path)
	file.Children()

	writeFile(t, dir, "a.yaml", "a: [unterminated\n")
	report := file.RefreshChildren()
	require.NotNil(t, report.StructureChanged)
	assert.Empty(t, file.Children())
}

func TestRefreshUnbuiltNodeSwapsPayloadQuietly(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "a: 1\n")

	file := fileNode(t, env, path)
	writeFile(t, dir, "a.yaml", "a: 1\nb: 2\n")

	report := file.RefreshChildren()
	assert.True(t, report.IsEmpty())
	assert.Equal(t, []string{"a", "b"}, labels(file.Children()))
}

func TestRefreshRegion(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "x: 1\n---\ny: 2\n")

	region := fileNode(t, env, path)
	require.Equal(t, KindRegion, region.Kind())
	first := region.Children()[0]
	first.Children()
	rec := record(region)

	writeFile(t, dir, "c.yaml", "x: 9\n---\ny: 2\n---\nz: 3\n")
	report := region.RefreshChildren()

	require.NotNil(t, report.Inserted)
	assert.Equal(t, []int{2}, report.Inserted.Indices)
	assert.Equal(t, path+"#2", report.Inserted.Nodes[0].Key())
	require.NotNil(t, report.Changed)
	assert.Equal(t, []int{0}, report.Changed.Indices)
	assert.Same(t, first, region.Children()[0])

	require.Len(t, rec.reports, 1)
	assert.Equal(t, TreePath{region, first}, rec.reports[0].Changed.Path)
	assert.Equal(t, "9", child(t, first, "x").Value().Text)

	writeFile(t, dir, "c.yaml", "x: 9\n")
	report = region.RefreshChildren()
	require.NotNil(t, report.StructureChanged)
	assert.Empty(t, region.Children())
}

func TestRefreshRegionChunk(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "x: 1\n---\ny: 2\n")

	region := fileNode(t, env, path)
	second := region.Children()[1]
	second.Children()

	writeFile(t, dir, "c.yaml", "x: 1\n---\ny: 5\n")
	report := second.RefreshChildren()
	require.NotNil(t, report.Changed)
	assert.Equal(t, "5", region.Region().Chunks[1].Root.Items[0].Text)
}

func TestRefreshValueAgainstPayload(t *testing.T) {
	env := NewEnv(nil)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "list:\n  - x\n  - y\n")

	file := fileNode(t, env, path)
	list := child(t, file, "list")
	list.Children()

	v := list.Value()
	v.Items = append(v.Items, format.NewScalar("2", "z"))
	report := list.RefreshChildren()
	require.NotNil(t, report.Inserted)
	assert.Equal(t, []int{2}, report.Inserted.Indices)

	assert.True(t, list.RefreshChildren().IsEmpty())
}
