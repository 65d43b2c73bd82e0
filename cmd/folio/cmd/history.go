/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history <note-id> <paragraph-id>",
		Short: "List the archived revisions of a paragraph",
		Long: `List every saved revision of a paragraph, oldest first. Requires
storage.history to be enabled in the configuration.

Example:
  folio history note1 p1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")

			nb, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer nb.Close()

			revs, err := nb.History(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if output == outputJSON {
				return writeJSON(cmd, revs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REVISION\tSAVED\tPARAGRAPH")
			for _, rev := range revs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rev.ID, rev.Time.Format(time.RFC3339), rev.Paragraph)
			}
			return w.Flush()
		},
	}

	historyCmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	return historyCmd
}
