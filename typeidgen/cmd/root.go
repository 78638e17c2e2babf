// Package cmd provides the command-line interface of typeidgen.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/typeid/logging"
)

type rootOptions struct {
	logLevel string
	logJSON  bool
	envFile  string

	logger hclog.Logger
}

// NewRootCmd builds the typeidgen command tree. Running it without a
// subcommand generates identities for the package in the working directory,
// which is what go generate does.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	gen := &generateOptions{root: opts}

	rootCmd := &cobra.Command{
		Use:   "typeidgen [package dir]",
		Short: "typeidgen assigns unique identities to annotated Go types.",
		Long: `typeidgen finds type declarations marked with //typeid:generate, ` +
			`reserves a base for each from the counter in the module's .typeid ` +
			`directory and writes typeid_gen.go with their TypeIdentity methods.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.run(cmd, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "",
		"log level: trace, debug, info, warn or error (default $"+logging.EnvLevel+" or info)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log in JSON")
	flags.StringVar(&opts.envFile, "env-file", ".env",
		"file with environment defaults; variables already set win")

	gen.addFlags(rootCmd)

	rootCmd.AddCommand(newGenerateCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))

	return rootCmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.envFile != "" {
		err := godotenv.Load(o.envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if !cmd.Flags().Changed("log-level") {
		if level := os.Getenv(logging.EnvLevel); level != "" {
			o.logLevel = level
		}
	}

	o.logger = logging.New(logging.Options{
		Level:  o.logLevel,
		JSON:   o.logJSON,
		Output: cmd.ErrOrStderr(),
	})

	return nil
}

// Execute runs the command line and exits with status 1 on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logging.New(logging.Options{}).Error("typeidgen failed", "error", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
