package cmd

import (
	"path/filepath"

	"github.com/mattsolo1/grove-datatree/pkg/service"
)

// openArgs imports the argument paths into the model, defaulting to the working directory.
func openArgs(s *service.Service, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	return s.Open(args...)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
