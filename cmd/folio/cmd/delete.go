/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id> <paragraph-id>",
		Short: "Delete a paragraph",
		Long: `Delete a paragraph from the notebook. Archived revisions are kept.

Example:
  folio delete note1 p1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			nb, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer nb.Close()

			if err := nb.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("Deleted paragraph '%s' from note '%s'\n", args[1], args[0])
			return nil
		},
	}
}
