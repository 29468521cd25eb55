package browser

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/service"
)

func setup(t *testing.T) (Model, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("x: 1\ny: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("z: 3\n"), 0644))

	svc, err := service.New(&service.Config{
		DataDir:    t.TempDir(),
		Extensions: []string{".yaml"},
		Recursive:  true,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Open(dir))
	return New(svc), dir
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	for _, r := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func rowLabels(m Model) []string {
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.node.Label()
	}
	return out
}

func TestExpandAndCollapse(t *testing.T) {
	m, dir := setup(t)
	root := filepath.Base(dir)
	assert.Equal(t, []string{root, "a.yaml", "b.yaml"}, rowLabels(m))

	m.cursor = 1
	m = press(t, m, "l")
	assert.Equal(t, []string{root, "a.yaml", "x", "y", "b.yaml"}, rowLabels(m))

	m.cursor = 3
	m = press(t, m, "h")
	assert.Equal(t, 1, m.cursor, "collapsed leaf jumps to its parent")
	m = press(t, m, "h")
	assert.Equal(t, []string{root, "a.yaml", "b.yaml"}, rowLabels(m))
	assert.Equal(t, "a.yaml", m.Selected().Label())
}

func TestMoveEditAndSave(t *testing.T) {
	m, dir := setup(t)
	m.cursor = 1
	m = press(t, m, "l")

	m.cursor = 2
	m = press(t, m, "J")
	assert.Equal(t, "x", m.Selected().Label(), "cursor follows the moved node")
	assert.Equal(t, []string{filepath.Base(dir), "a.yaml", "y", "x", "b.yaml"}, rowLabels(m))
	assert.True(t, m.model.HasUnsavedChanges())

	m = press(t, m, "e")
	require.True(t, m.input.Focused())
	m.input.SetValue("5")
	m.commitEdit()
	assert.Equal(t, "5", m.Selected().Value().Text)
	assert.False(t, m.input.Focused())

	m = press(t, m, "w")
	assert.Equal(t, "Saved 1 file(s)", m.statusMessage)
	assert.False(t, m.model.HasUnsavedChanges())

	src, ok := format.TryLoad(filepath.Join(dir, "a.yaml"))
	require.True(t, ok)
	doc := src.(*format.Document)
	require.Len(t, doc.Root.Items, 2)
	assert.Equal(t, "y", doc.Root.Items[0].Key)
	assert.Equal(t, "x", doc.Root.Items[1].Key)
	assert.Equal(t, "5", doc.Root.Items[1].Text)
}

func TestEditRejectsContainers(t *testing.T) {
	m, _ := setup(t)
	m.cursor = 1
	m = press(t, m, "e")
	assert.False(t, m.input.Focused())
	assert.Equal(t, "Only scalar values can be edited", m.statusMessage)
}

func TestDeleteAsksFirst(t *testing.T) {
	m, _ := setup(t)
	m.cursor = 2
	m = press(t, m, "x")
	require.True(t, m.confirm.Active())

	next, _ := m.Update(confirm.AnsweredMsg{Action: confirm.ActionDelete, Confirmed: true})
	m = next.(Model)
	assert.Len(t, m.rows, 2)
	assert.Equal(t, "Deleted b.yaml", m.statusMessage)
}

func TestReloadAllReportsChanges(t *testing.T) {
	m, dir := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("z: 4\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("w: 1\n"), 0644))

	m = press(t, m, "R")
	assert.Contains(t, m.statusMessage, "1 inserted")
	assert.Contains(t, m.statusMessage, "1 changed")
	assert.Len(t, m.rows, 4)

	m = press(t, m, "R")
	assert.Contains(t, m.statusMessage, "no changes")
}

func TestQuitWithUnsavedChangesAsks(t *testing.T) {
	m, _ := setup(t)
	m.cursor = 1
	m = press(t, m, "l")
	m.cursor = 2
	m = press(t, m, "J")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.True(t, m.confirm.Active())
}
