package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/notes/pkg/library"
)

// FindRoot looks upwards from startDir for a library root, marked by a
// system directory or a config file, and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, library.SystemDir) || hasFile(dir, DefaultConfigFile) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
