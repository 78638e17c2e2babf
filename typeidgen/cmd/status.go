package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var counterDir string

	cmd := &cobra.Command{
		Use:   "status [package dir]",
		Short: "Show the counter directory and the last reserved base",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgDir, err := packageDir(args)
			if err != nil {
				return err
			}

			s, err := openStore(counterDir, pkgDir, root.logger)
			if err != nil {
				return err
			}

			current, err := s.Current(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "directory: %s\n", s.Dir())
			fmt.Fprintf(out, "counter:   %d\n", current)
			fmt.Fprintf(out, "lock:      %s\n", s.LockPath())

			return nil
		},
	}

	cmd.Flags().StringVar(&counterDir, "dir", "", "directory holding the counter")

	return cmd
}
