package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/pkg/search"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("server:\n  port: 8080\n  host: localhost\nname: demo\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "multi.yaml"), []byte("a: 1\n---\nb: 2\n"), 0644))

	svc, err := New(&Config{
		DataDir:    filepath.Join(t.TempDir(), "data"),
		Extensions: []string{".yaml", ".yml"},
		Recursive:  true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{DataDir: "/tmp/x", Extensions: []string{".yaml"}, Debounce: time.Second}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Config{Extensions: []string{".yaml"}}).Validate())
	assert.Error(t, (&Config{DataDir: "/tmp/x"}).Validate())
	assert.Error(t, (&Config{DataDir: "/tmp/x", Extensions: []string{"yaml"}}).Validate())
	assert.Error(t, (&Config{DataDir: "/tmp/x", Extensions: []string{".yaml"}, Debounce: -time.Second}).Validate())

	_, err := New(&Config{}, nil)
	assert.Error(t, err)
}

func TestOpenAndLookup(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, svc.Open(dir))
	require.Len(t, svc.Model.RootNodes(), 1)

	app := filepath.Join(dir, "app.yaml")
	n, err := svc.Lookup(app, ParseKeyPath("server.port"))
	require.NoError(t, err)
	assert.Equal(t, "8080", n.Value().Text)

	n, err = svc.Lookup(filepath.Join(dir, "multi.yaml"), ParseKeyPath("1.b"))
	require.NoError(t, err)
	assert.Equal(t, "2", n.Value().Text)

	_, err = svc.Lookup(app, ParseKeyPath("server.prot"))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"port"}, nf.Suggestions)
	assert.Contains(t, err.Error(), `did you mean "port"?`)

	_, err = svc.Lookup(filepath.Join(t.TempDir(), "x.yaml"), nil)
	assert.ErrorIs(t, err, treemodel.ErrNotInModel)
}

func TestOpenRejectsNonDocuments(t *testing.T) {
	svc, dir := newTestService(t)
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain"), 0644))

	assert.Error(t, svc.Open(txt))
	assert.Error(t, svc.Open(filepath.Join(dir, "missing")))
	assert.Empty(t, svc.Model.RootNodes())

	require.NoError(t, svc.Open(filepath.Join(dir, "app.yaml")))
	require.NoError(t, svc.Reopen(filepath.Join(dir, "multi.yaml")))
	require.Len(t, svc.Model.RootNodes(), 1)
	assert.Equal(t, filepath.Join(dir, "multi.yaml"), svc.Model.RootNodes()[0].Key())
}

func TestSetSavesAndReindexes(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, svc.Open(dir))

	count, err := svc.Reindex()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	app := filepath.Join(dir, "app.yaml")
	_, err = svc.Set(app, ParseKeyPath("server.host"), "example.org")
	require.NoError(t, err)
	assert.False(t, svc.Model.HasUnsavedChanges())

	data, err := os.ReadFile(app)
	require.NoError(t, err)
	assert.Contains(t, string(data), "host: example.org")

	results, err := svc.Search("example", &search.Options{File: app})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "server.host", results[0].KeyPath)

	_, err = svc.Set(app, ParseKeyPath("server"), "flat")
	assert.Error(t, err)
}

func TestSaveAll(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, svc.Open(dir))

	n, err := svc.Lookup(filepath.Join(dir, "multi.yaml"), ParseKeyPath("0.a"))
	require.NoError(t, err)
	require.NoError(t, n.SetScalar("9"))
	assert.True(t, svc.Model.HasUnsavedChanges())

	require.NoError(t, svc.SaveAll())
	assert.False(t, svc.Model.HasUnsavedChanges())
	data, err := os.ReadFile(filepath.Join(dir, "multi.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "a: 9\n---\nb: 2\n", string(data))
}

func TestSuggest(t *testing.T) {
	keys := []string{"port", "host", "name", "ports"}
	assert.Equal(t, []string{"port"}, Suggest("prot", keys, 3))
	assert.Equal(t, []string{"ports", "port"}, Suggest("pots", keys, 3))
	assert.Equal(t, []string{"port"}, Suggest("PORT", keys, 1))
	assert.Empty(t, Suggest("zzzzzzzz", keys, 3))
}
