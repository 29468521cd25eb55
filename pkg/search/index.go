// Package search keeps a sqlite index of the values held by the files in a tree model.
package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-datatree/pkg/format"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

// Entry is one indexed value.
type Entry struct {
	File    string // Source path of the file or region chunk
	KeyPath string // Dot-separated keys from the document root
	Kind    string
	Text    string
}

// Index manages the search index
type Index struct {
	db     *sql.DB
	useFTS bool
}

// NewIndex opens or creates the index at dbPath. ":memory:" keeps it in memory.
func NewIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// A memory database is private to its connection.
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}
	return idx, nil
}

func (idx *Index) init() error {
	idx.useFTS = idx.checkFTS5Support()

	metaSchema := `
	CREATE TABLE IF NOT EXISTS values_meta (
		file TEXT NOT NULL,
		key_path TEXT NOT NULL,
		kind TEXT,
		text TEXT,
		PRIMARY KEY (file, key_path)
	);

	CREATE INDEX IF NOT EXISTS idx_values_meta_text ON values_meta(text);
	`
	if _, err := idx.db.Exec(metaSchema); err != nil {
		return err
	}

	if idx.useFTS {
		ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS values_fts USING fts5(
			file UNINDEXED,
			key_path,
			text,
			tokenize = 'unicode61'
		);
		`
		if _, err := idx.db.Exec(ftsSchema); err != nil {
			// If FTS creation fails, disable FTS and continue
			idx.useFTS = false
		}
	}
	return nil
}

// checkFTS5Support checks if FTS5 module is available
func (idx *Index) checkFTS5Support() bool {
	_, err := idx.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS fts5_test USING fts5(content)")
	if err != nil {
		return false
	}
	_, _ = idx.db.Exec("DROP TABLE IF EXISTS fts5_test")
	return true
}

// UsesFTS reports whether full-text search is available.
func (idx *Index) UsesFTS() bool { return idx.useFTS }

// Flatten lists every scalar of a document, plus one entry per empty container, with
// the dot-separated key path leading to it.
func Flatten(file string, root *format.Value) []Entry {
	var entries []Entry
	var walk func(prefix string, v *format.Value)
	walk = func(prefix string, v *format.Value) {
		if v.IsContainer() && len(v.Items) > 0 {
			for _, item := range v.Items {
				key := item.Key
				if prefix != "" {
					key = prefix + "." + key
				}
				walk(key, item)
			}
			return
		}
		if prefix == "" {
			return
		}
		entries = append(entries, Entry{File: file, KeyPath: prefix, Kind: v.Kind.String(), Text: v.Text})
	}
	walk("", root)
	return entries
}

// IndexFile replaces the entries of one file.
func (idx *Index) IndexFile(file string, root *format.Value) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := idx.deleteFile(tx, file); err != nil {
		return err
	}
	for _, e := range Flatten(file, root) {
		if idx.useFTS {
			_, err = tx.Exec(`INSERT INTO values_fts (file, key_path, text) VALUES (?, ?, ?)`,
				e.File, e.KeyPath, e.Text)
			if err != nil {
				return err
			}
		}
		_, err = tx.Exec(`INSERT INTO values_meta (file, key_path, kind, text) VALUES (?, ?, ?, ?)`,
			e.File, e.KeyPath, e.Kind, e.Text)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// IndexModel indexes every file and region chunk reachable through the model. It returns
// the number of files indexed.
func (idx *Index) IndexModel(m *treemodel.Model) (int, error) {
	count := 0
	for n := range m.GetFiles() {
		if n.Kind() != tree.KindFile {
			continue
		}
		if err := idx.IndexFile(n.Key(), n.Value()); err != nil {
			return count, fmt.Errorf("index %s: %w", n.Key(), err)
		}
		count++
	}
	return count, nil
}

// Options for searching
type Options struct {
	File  string // Restrict results to one file
	Limit int
}

// Search looks up values whose key path or text matches query.
func (idx *Index) Search(query string, opts *Options) ([]Entry, error) {
	if opts == nil {
		opts = &Options{Limit: 50}
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}
	if idx.useFTS {
		return idx.searchWithFTS(query, opts)
	}
	return idx.searchWithoutFTS(query, opts)
}

func (idx *Index) searchWithFTS(query string, opts *Options) ([]Entry, error) {
	where := "WHERE values_fts MATCH ?"
	args := []any{ftsQuery(query)}
	if opts.File != "" {
		where += " AND f.file = ?"
		args = append(args, opts.File)
	}

	searchQuery := fmt.Sprintf(`
		SELECT f.file, f.key_path, m.kind, m.text
		FROM values_fts f
		JOIN values_meta m ON f.file = m.file AND f.key_path = m.key_path
		%s
		ORDER BY rank
		LIMIT ?
	`, where)
	args = append(args, opts.Limit)

	return idx.query(searchQuery, args...)
}

// ftsQuery quotes every term so punctuation in values is not read as query syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func (idx *Index) searchWithoutFTS(query string, opts *Options) ([]Entry, error) {
	searchPattern := "%" + strings.ReplaceAll(query, " ", "%") + "%"
	conditions := []string{"(key_path LIKE ? OR text LIKE ?)"}
	args := []any{searchPattern, searchPattern}
	if opts.File != "" {
		conditions = append(conditions, "file = ?")
		args = append(args, opts.File)
	}

	searchQuery := fmt.Sprintf(`
		SELECT file, key_path, kind, text
		FROM values_meta
		WHERE %s
		ORDER BY file, key_path
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	return idx.query(searchQuery, args...)
}

func (idx *Index) query(q string, args ...any) ([]Entry, error) {
	rows, err := idx.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.File, &e.KeyPath, &e.Kind, &e.Text); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// RemoveFile drops a file from the index.
func (idx *Index) RemoveFile(file string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := idx.deleteFile(tx, file); err != nil {
		return err
	}
	return tx.Commit()
}

func (idx *Index) deleteFile(tx *sql.Tx, file string) error {
	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM values_fts WHERE file = ?", file); err != nil {
			return err
		}
	}
	_, err := tx.Exec("DELETE FROM values_meta WHERE file = ?", file)
	return err
}

// Count returns the number of indexed values.
func (idx *Index) Count() (int, error) {
	var n int
	err := idx.db.QueryRow("SELECT COUNT(*) FROM values_meta").Scan(&n)
	return n, err
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}
