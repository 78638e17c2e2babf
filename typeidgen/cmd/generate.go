package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/typeid/generator"
	"github.com/sarchlab/typeid/idgen"
	"github.com/sarchlab/typeid/store"
	"github.com/sarchlab/typeid/store/journal"
)

type generateOptions struct {
	root *rootOptions

	counterDir string
	output     string
	strict     bool
	dryRun     bool
	journal    bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{root: root}

	cmd := &cobra.Command{
		Use:   "generate [package dir]",
		Short: "Generate identities for the annotated types of a package",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.run,
	}

	opts.addFlags(cmd)

	return cmd
}

func (o *generateOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.counterDir, "dir", "",
		"directory holding the counter (default $"+store.EnvDir+" or <module root>/"+store.DirName+")")
	flags.StringVarP(&o.output, "output", "o", generator.DefaultOutput, "name of the generated file")
	flags.BoolVar(&o.strict, "strict", false,
		"require type parameter constraints to mention typeid.Identified")
	flags.BoolVar(&o.dryRun, "dry-run", false,
		"print the generated file instead of writing it and leave the counter untouched")
	flags.BoolVar(&o.journal, "journal", os.Getenv("TYPEID_JOURNAL") != "",
		"record every reservation in "+journal.FileName)
}

func (o *generateOptions) run(cmd *cobra.Command, args []string) error {
	pkgDir, err := packageDir(args)
	if err != nil {
		return err
	}

	logger := o.root.logger
	if pkg := os.Getenv("GOPACKAGE"); pkg != "" {
		logger = logger.With("gopackage", pkg, "gofile", os.Getenv("GOFILE"))
	}

	s, err := openStore(o.counterDir, pkgDir, logger)
	if err != nil {
		return err
	}

	cfg := generator.Config{
		Dir:      pkgDir,
		Output:   o.output,
		Reserver: s,
		Strict:   o.strict,
		DryRun:   o.dryRun,
		Logger:   logger,
	}

	if o.dryRun {
		current, err := s.Current(cmd.Context())
		if err != nil {
			return err
		}

		cfg.Reserver = idgen.NewFrom(current)
	}

	if o.journal && !o.dryRun {
		j, err := openJournal(s, logger)
		if err != nil {
			logger.Warn("journal unavailable", "error", err)
		} else {
			defer j.Close()
			cfg.Recorder = j
		}
	}

	result, err := generator.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if o.dryRun {
		_, err := cmd.OutOrStdout().Write(result.Source)
		return err
	}

	if len(result.Allocations) == 0 && !result.Removed {
		logger.Info("no annotated types", "package", result.ImportPath)
	}

	return nil
}

func openJournal(s *store.Store, logger hclog.Logger) (*journal.Journal, error) {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return nil, err
	}

	return journal.Open(filepath.Join(s.Dir(), journal.FileName), journal.WithLogger(logger))
}

func packageDir(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Abs(args[0])
	}

	return os.Getwd()
}

// openStore opens the counter directory given by flag, falling back to the
// environment and then to the module root above the package directory.
func openStore(flagDir, pkgDir string, logger hclog.Logger) (*store.Store, error) {
	dir := flagDir
	if dir == "" {
		resolved, err := store.ResolveDir(store.Env{
			Lookup: os.LookupEnv,
			Getwd:  func() (string, error) { return pkgDir, nil },
		})
		if err != nil {
			return nil, err
		}

		dir = resolved
	}

	s, err := store.Open(dir, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open counter directory: %w", err)
	}

	return s, nil
}
