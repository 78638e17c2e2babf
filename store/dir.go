package store

import (
	"errors"
	"os"
	"path/filepath"
)

// Names of the files and directories the store uses.
const (
	// EnvDir overrides the directory holding the counter and lock files.
	EnvDir = "TYPEID_DIR"

	// EnvModuleRoot overrides module root discovery.
	EnvModuleRoot = "TYPEID_MODULE_ROOT"

	// DirName is joined to the module root when EnvDir is not set.
	DirName = ".typeid"

	CounterFile = "counter"
	LockFile    = "counter.lock"
)

// Env is the process environment seen by ResolveDir.
type Env struct {
	Lookup func(key string) (string, bool)
	Getwd  func() (string, error)
}

// OSEnv returns the environment of the running process.
func OSEnv() Env {
	return Env{Lookup: os.LookupEnv, Getwd: os.Getwd}
}

// ResolveDir finds the directory holding the counter. EnvDir wins when set.
// Otherwise the module root (EnvModuleRoot, or the nearest directory above
// the working directory that holds a go.mod) is joined with DirName.
func ResolveDir(env Env) (string, error) {
	if dir, ok := lookup(env, EnvDir); ok {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", &Error{Kind: KindConfig, Op: "resolve " + EnvDir, Path: dir, Err: err}
		}

		return abs, nil
	}

	if root, ok := lookup(env, EnvModuleRoot); ok {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", &Error{Kind: KindConfig, Op: "resolve module root", Path: root, Err: err}
		}

		return filepath.Join(abs, DirName), nil
	}

	if env.Getwd == nil {
		return "", &Error{Kind: KindConfig, Op: "resolve directory",
			Err: errors.New("no working directory available")}
	}

	wd, err := env.Getwd()
	if err != nil {
		return "", &Error{Kind: KindConfig, Op: "resolve directory", Err: err}
	}

	root, err := FindModuleRoot(wd)
	if err != nil {
		return "", err
	}

	return filepath.Join(root, DirName), nil
}

// FindModuleRoot walks up from start to the first directory containing a
// go.mod file.
func FindModuleRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", &Error{Kind: KindConfig, Op: "find go.mod", Path: start, Err: err}
	}

	for {
		info, err := os.Stat(filepath.Join(dir, "go.mod"))
		if err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &Error{
				Kind: KindConfig,
				Op:   "find go.mod",
				Path: start,
				Err:  errors.New("no go.mod in any parent directory"),
			}
		}

		dir = parent
	}
}

func lookup(env Env, key string) (string, bool) {
	if env.Lookup == nil {
		return "", false
	}

	v, ok := env.Lookup(key)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}
