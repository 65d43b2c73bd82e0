/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/paragraph"
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list [note-id]",
		Short: "List notes or the paragraphs of a note",
		Long: `Without arguments list the ids of all notes. With a note id list its
paragraphs in order. --match selects paragraphs across notes with a glob
over "<note-id>/<paragraph-id>".

Examples:
  folio list
  folio list note1 --output json
  folio list --match "note*/paragraph_*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			pattern, _ := cmd.Flags().GetString("match")
			output, _ := cmd.Flags().GetString("output")

			nb, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer nb.Close()

			ctx := cmd.Context()
			var infos []*paragraph.Info
			switch {
			case pattern != "":
				infos, err = nb.Match(ctx, pattern)
			case len(args) == 1:
				infos, err = nb.List(ctx, args[0])
			default:
				notes, err := nb.Notes(ctx)
				if err != nil {
					return err
				}
				if output == outputJSON {
					return writeJSON(cmd, notes)
				}
				for _, note := range notes {
					cmd.Println(note)
				}
				return nil
			}
			if err != nil {
				return err
			}

			if output == outputJSON {
				return writeJSON(cmd, infos)
			}
			for _, info := range infos {
				cmd.Println(info)
			}
			return nil
		},
	}

	listCmd.Flags().String("match", "", "Glob over <note-id>/<paragraph-id>")
	listCmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	return listCmd
}
