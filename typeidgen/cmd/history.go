package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var counterDir string

	cmd := &cobra.Command{
		Use:   "history [package dir]",
		Short: "List the reservations recorded in the journal",
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

			j, err := openJournal(s, root.logger)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Entries(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BASE\tTYPE\tGENERIC\tSESSION\tPID\tTIME")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s.%s\t%t\t%s\t%d\t%s\n",
					e.Base, e.ImportPath, e.TypeName, e.Generic, e.Session, e.PID,
					e.Time.Format(time.RFC3339))
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&counterDir, "dir", "", "directory holding the counter")

	return cmd
}
