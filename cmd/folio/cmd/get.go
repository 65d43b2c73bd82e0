/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <note-id> <paragraph-id>",
		Short: "Print a paragraph",
		Long: `Print a paragraph as text, JSON, or one of the binary encodings.
Binary output is hex encoded unless --raw is given.

Examples:
  folio get note1 p1
  folio get note1 p1 --output json
  folio get note1 p1 --output tagged --raw > p1.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			raw, _ := cmd.Flags().GetBool("raw")

			nb, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer nb.Close()

			info, err := nb.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			data, err := formatParagraph(a.config, info, output, raw)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	getCmd.Flags().StringP("output", "o", outputText, "Output format (text, json, tagged, positional)")
	getCmd.Flags().Bool("raw", false, "Write binary encodings as raw bytes instead of hex")
	return getCmd
}
