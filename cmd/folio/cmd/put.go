/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/notebook"
	"github.com/ssargent/folio/pkg/paragraph"
)

func newPutCmd() *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put <note-id> [paragraph-id]",
		Short: "Create or update a paragraph",
		Long: `Create or update a paragraph. An existing paragraph keeps the fields
not named on the command line. Without a paragraph id a new one is generated.

Examples:
  folio put note1 p1 --title Intro --text "print(1)"
  folio put note1 --text "a new paragraph"
  folio put note1 p1 --unset-title
  cat cell.py | folio put note1 p2 --text -`,
		Args: cobra.RangeArgs(1, 2),
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

			ctx := cmd.Context()
			info := &paragraph.Info{NoteID: paragraph.Some(args[0])}
			if len(args) == 2 {
				existing, err := nb.Get(ctx, args[0], args[1])
				switch {
				case err == nil:
					info = existing
				case errors.Is(err, notebook.ErrNotFound):
					info.ParagraphID = paragraph.Some(args[1])
				default:
					return err
				}
			}

			if err := applyFieldFlags(cmd, info); err != nil {
				return err
			}

			saved, err := nb.Save(ctx, info)
			if err != nil {
				return err
			}
			cmd.Printf("Saved %s\n", saved)
			return nil
		},
	}

	putCmd.Flags().String("title", "", "Paragraph title")
	putCmd.Flags().String("text", "", `Paragraph text ("-" reads stdin)`)
	putCmd.Flags().Bool("unset-title", false, "Clear the paragraph title")
	putCmd.Flags().Bool("unset-text", false, "Clear the paragraph text")
	putCmd.MarkFlagsMutuallyExclusive("title", "unset-title")
	putCmd.MarkFlagsMutuallyExclusive("text", "unset-text")
	return putCmd
}

// applyFieldFlags sets the title and text fields the user named and leaves
// the rest untouched.
func applyFieldFlags(cmd *cobra.Command, info *paragraph.Info) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		info.ParagraphTitle.Set(title)
	}
	if flags.Changed("text") {
		text, _ := flags.GetString("text")
		if text == "-" {
			data, err := readInput(cmd, "-")
			if err != nil {
				return err
			}
			text = strings.TrimSuffix(string(data), "\n")
		}
		info.ParagraphText.Set(text)
	}
	if unset, _ := flags.GetBool("unset-title"); unset {
		info.ParagraphTitle.Unset()
	}
	if unset, _ := flags.GetBool("unset-text"); unset {
		info.ParagraphText.Unset()
	}
	return nil
}
