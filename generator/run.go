// Package generator implements typeidgen: it finds type declarations
// annotated with the typeid:generate directive, reserves a base for each
// and writes the TypeIdentity methods that make them typeid.Identified.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/sarchlab/typeid/idgen"
	"github.com/sarchlab/typeid/store/journal"
)

// Recorder receives one entry per allocation after the generated file has
// been written.
type Recorder interface {
	Record(e journal.Entry) error
}

// Config configures one generator run over one package directory.
type Config struct {
	// Fs defaults to the OS file system.
	Fs afero.Fs

	// Dir is the package directory. Defaults to the working directory.
	Dir string

	// Output is the generated file name inside Dir.
	Output string

	// Reserver hands out bases. Required.
	Reserver idgen.Reserver

	// Recorder, when set, is told about every allocation.
	Recorder Recorder

	Strict bool

	// DryRun renders the file into Result.Source without writing it.
	DryRun bool

	Logger hclog.Logger
}

// Result describes what a run did.
type Result struct {
	Package     string
	ImportPath  string
	OutputPath  string
	Allocations []Allocation
	Source      []byte

	// Removed is set when a stale generated file was deleted because the
	// package no longer has annotated declarations.
	Removed bool
}

// Run scans the package, reserves a base per annotated declaration and
// writes the generated file. Nothing is written unless every reservation
// succeeded.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Reserver == nil {
		return nil, errors.New("generator: no reserver configured")
	}

	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	if cfg.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		cfg.Dir = wd
	}

	logger := cfg.Logger.With("dir", cfg.Dir)

	pkg, err := Scan(cfg.Fs, cfg.Dir, ScanOptions{Output: cfg.Output, Strict: cfg.Strict})
	if err != nil {
		return nil, err
	}

	if !cfg.Strict {
		warnUnconstrained(pkg, logger)
	}

	importPath, err := ImportPath(cfg.Fs, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve import path: %w", err)
	}

	result := &Result{
		Package:    pkg.Name,
		ImportPath: importPath,
		OutputPath: filepath.Join(cfg.Dir, cfg.Output),
	}

	if len(pkg.Decls) == 0 {
		return result, removeStale(cfg, result, logger)
	}

	allocations, err := NewAllocator(cfg.Reserver, logger).Allocate(ctx, pkg.Decls)
	if err != nil {
		return nil, err
	}

	result.Allocations = allocations

	result.Source, err = Render(File{
		Package:     pkg.Name,
		ImportPath:  importPath,
		Allocations: allocations,
	})
	if err != nil {
		return nil, err
	}

	if cfg.DryRun {
		return result, nil
	}

	if err := writeAtomic(cfg.Fs, result.OutputPath, result.Source); err != nil {
		return nil, fmt.Errorf("write %s: %w", result.OutputPath, err)
	}

	logger.Info("generated type identities",
		"package", importPath,
		"types", len(allocations),
		"first_base", allocations[0].Base,
		"last_base", allocations[len(allocations)-1].Base)

	record(cfg.Recorder, importPath, allocations, logger)

	return result, nil
}

// warnUnconstrained flags type parameters that accept arguments without an
// identity; such instantiations panic when their identity is computed.
func warnUnconstrained(pkg *Package, logger hclog.Logger) {
	for _, d := range pkg.Decls {
		for _, p := range d.TypeParams {
			if p.Identified {
				continue
			}

			logger.Warn("type parameter is not constrained by typeid.Identified",
				"type", d.Name,
				"param", p.Name,
				"constraint", p.Constraint,
				"pos", d.Pos.String())
		}
	}
}

func removeStale(cfg Config, result *Result, logger hclog.Logger) error {
	if cfg.DryRun {
		return nil
	}

	exists, err := afero.Exists(cfg.Fs, result.OutputPath)
	if err != nil || !exists {
		return err
	}

	if err := cfg.Fs.Remove(result.OutputPath); err != nil {
		return fmt.Errorf("remove stale %s: %w", result.OutputPath, err)
	}

	result.Removed = true
	logger.Info("removed stale generated file", "path", result.OutputPath)

	return nil
}

func record(r Recorder, importPath string, allocations []Allocation, logger hclog.Logger) {
	if r == nil {
		return
	}

	for _, a := range allocations {
		err := r.Record(journal.Entry{
			Base:       a.Base,
			ImportPath: importPath,
			TypeName:   a.Decl.Name,
			Generic:    a.Decl.Generic(),
		})
		if err != nil {
			logger.Warn("cannot record allocation in journal", "type", a.Decl.Name, "error", err)
		}
	}
}

func writeAtomic(fs afero.Fs, path string, data []byte) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return err
	}

	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return err
	}

	return fs.Chmod(path, 0o644)
}
