package generator

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
)

// ImportPath returns the import path of the package in dir, derived from
// the module path in the nearest go.mod above it.
func ImportPath(fs afero.Fs, dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	root := abs
	for {
		gomod := filepath.Join(root, "go.mod")
		if ok, _ := afero.Exists(fs, gomod); ok {
			data, err := afero.ReadFile(fs, gomod)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", gomod, err)
			}

			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", fmt.Errorf("%s has no module directive", gomod)
			}

			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return "", err
			}

			if rel == "." {
				return modPath, nil
			}

			return path.Join(modPath, filepath.ToSlash(rel)), nil
		}

		parent := filepath.Dir(root)
		if parent == root {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}

		root = parent
	}
}
