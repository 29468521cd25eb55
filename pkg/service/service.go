package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-datatree/pkg/scan"
	"github.com/mattsolo1/grove-datatree/pkg/search"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

// Service ties the scanner, the tree model and the search index together for one session.
type Service struct {
	Config  *Config
	Logger  *logrus.Logger
	Scanner *scan.Scanner
	Model   *treemodel.Model

	index *search.Index
}

// Config holds service configuration
type Config struct {
	DataDir    string
	Extensions []string
	Recursive  bool
	Debounce   time.Duration
}

var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9_-]+$`)

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Match(extensionPattern))),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// New creates a service with an empty model.
func New(config *Config, logger *logrus.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	scanner := scan.New(logger, config.Extensions)
	return &Service{
		Config:  config,
		Logger:  logger,
		Scanner: scanner,
		Model:   treemodel.New(tree.NewEnv(scanner), logger),
	}, nil
}

// Sources resolves paths to folder, document or region descriptors.
func (s *Service) Sources(paths ...string) ([]any, error) {
	sources := make([]any, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			folder, err := s.Scanner.Scan(abs, s.Config.Recursive)
			if err != nil {
				return nil, err
			}
			sources = append(sources, folder)
			continue
		}
		src, ok := s.Scanner.Load(abs)
		if !ok {
			return nil, fmt.Errorf("%s is not a structured document", p)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Open imports the given folders and files as roots of the model.
func (s *Service) Open(paths ...string) error {
	sources, err := s.Sources(paths...)
	if err != nil {
		return err
	}
	if err := s.Model.Import(sources...); err != nil {
		return err
	}
	s.Logger.WithField("roots", len(s.Model.RootNodes())).Debug("opened paths")
	return nil
}

// Reopen replaces the model's roots with the given folders and files.
func (s *Service) Reopen(paths ...string) error {
	sources, err := s.Sources(paths...)
	if err != nil {
		return err
	}
	return s.Model.Replace(sources...)
}

// Index opens the search index under the data directory on first use.
func (s *Service) Index() (*search.Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	if err := os.MkdirAll(s.Config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	index, err := search.NewIndex(filepath.Join(s.Config.DataDir, "index.db"))
	if err != nil {
		return nil, err
	}
	s.index = index
	return index, nil
}

// Reindex indexes every file in the model and returns how many were indexed.
func (s *Service) Reindex() (int, error) {
	index, err := s.Index()
	if err != nil {
		return 0, err
	}
	return index.IndexModel(s.Model)
}

// Search queries the index.
func (s *Service) Search(query string, opts *search.Options) ([]search.Entry, error) {
	index, err := s.Index()
	if err != nil {
		return nil, err
	}
	return index.Search(query, opts)
}

// Set replaces the scalar at keyPath in file and saves the file.
func (s *Service) Set(file string, keyPath []string, text string) (*tree.Node, error) {
	n, err := s.Lookup(file, keyPath)
	if err != nil {
		return nil, err
	}
	if err := n.SetScalar(text); err != nil {
		return nil, err
	}
	if err := n.Save(); err != nil {
		return nil, fmt.Errorf("save %s: %w", file, err)
	}
	if s.index != nil {
		if owner := n.OwnerDocument(); owner != nil {
			if err := s.index.IndexFile(owner.SourcePath(), owner.Root); err != nil {
				s.Logger.WithError(err).Warn("could not update search index")
			}
		}
	}
	return n, nil
}

// SaveAll writes every file with unsaved edits.
func (s *Service) SaveAll() error {
	var errs []error
	for _, n := range s.Model.UnsavedFiles() {
		if err := n.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", n.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the search index.
func (s *Service) Close() error {
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// sourceKey normalizes a file argument to the key form the model uses.
func sourceKey(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return filepath.Clean(file)
}
