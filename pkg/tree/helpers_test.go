package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-datatree/pkg/format"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func folderNode(t *testing.T, env *Env, dir string) *Node {
	t.Helper()
	folder, err := env.Scanner.Scan(dir, true)
	require.NoError(t, err)
	return NewFolderNode(env, folder)
}

func fileNode(t *testing.T, env *Env, path string) *Node {
	t.Helper()
	src, ok := env.Scanner.Load(path)
	require.True(t, ok, "load %s", path)
	n, err := MakeNode(env, src)
	require.NoError(t, err)
	return n
}

func child(t *testing.T, n *Node, label string) *Node {
	t.Helper()
	for _, c := range n.Children() {
		if c.Label() == label {
			return c
		}
	}
	t.Fatalf("%s has no child %q", n.Label(), label)
	return nil
}

func labels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label()
	}
	return out
}

// recorder collects every report a node's listeners receive.
type recorder struct {
	reports []ChangeReport
}

func record(n *Node) *recorder {
	r := &recorder{}
	n.Subscribe(func(report ChangeReport) { r.reports = append(r.reports, report) })
	return r
}

func scalars(v *format.Value) []string {
	out := make([]string, len(v.Items))
	for i, item := range v.Items {
		out[i] = item.Text
	}
	return out
}

func removeFile(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}

func removeAll(dir, name string) error {
	return os.RemoveAll(filepath.Join(dir, name))
}
