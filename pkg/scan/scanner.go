// Package scan enumerates folders and wraps the structured documents it finds.
package scan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-datatree/pkg/format"
)

// Folder is a scanned directory: its loadable files and, for recursive scans, its subfolders.
type Folder struct {
	Path       string
	Recursive  bool // Whether subfolders were scanned; refreshes rescan the same way
	Subfolders []*Folder
	Files      []format.Source // *format.Document or *format.Region
}

// SourcePath returns the folder path.
func (f *Folder) SourcePath() string {
	return f.Path
}

// Count returns the number of descendants (subfolders and files, at every depth).
func (f *Folder) Count() int {
	n := len(f.Files)
	for _, sub := range f.Subfolders {
		n += 1 + sub.Count()
	}
	return n
}

// Scanner builds Folder trees from the filesystem.
type Scanner struct {
	Logger *logrus.Logger
	Loader format.Loader
}

// New creates a scanner accepting the given extensions (defaults when empty).
func New(logger *logrus.Logger, extensions []string) *Scanner {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Scanner{
		Logger: logger,
		Loader: format.Loader{Extensions: extensions},
	}
}

// Load tries to load a single file as a document or region.
func (s *Scanner) Load(path string) (format.Source, bool) {
	return s.Loader.TryLoad(path)
}

// Scan reads the folder at path. Files that are not structured documents are skipped,
// as are unreadable subfolders; only an unreadable root is an error.
func (s *Scanner) Scan(path string, recursive bool) (*Folder, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", path, err)
	}

	folder := &Folder{Path: path, Recursive: recursive}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			if !recursive {
				continue
			}
			sub, err := s.Scan(child, true)
			if err != nil {
				s.Logger.WithError(err).WithField("path", child).Debug("skipping unreadable folder")
				continue
			}
			folder.Subfolders = append(folder.Subfolders, sub)
			continue
		}
		if !entry.Type().IsRegular() && entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		src, ok := s.Load(child)
		if !ok {
			s.Logger.WithField("path", child).Debug("skipping file that is not a structured document")
			continue
		}
		folder.Files = append(folder.Files, src)
	}

	s.Logger.WithFields(logrus.Fields{
		"path":       path,
		"subfolders": len(folder.Subfolders),
		"files":      len(folder.Files),
	}).Debug("scanned folder")
	return folder, nil
}
