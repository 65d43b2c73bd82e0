/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/paragraph"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a paragraph without storing it",
		Long: `Encode a paragraph built from flags in one of the binary encodings.
Fields whose flag is not given stay unset. Output is hex encoded unless
--raw is given.

Examples:
  folio encode --note n1 --paragraph p1 --text "print(1)"
  folio encode --note n1 --title "" --encoding tagged --raw > record.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			encoding, _ := cmd.Flags().GetString("encoding")
			raw, _ := cmd.Flags().GetBool("raw")

			info := &paragraph.Info{}
			flags := cmd.Flags()
			if flags.Changed("note") {
				v, _ := flags.GetString("note")
				info.NoteID.Set(v)
			}
			if flags.Changed("paragraph") {
				v, _ := flags.GetString("paragraph")
				info.ParagraphID.Set(v)
			}
			if err := applyFieldFlags(cmd, info); err != nil {
				return err
			}

			data, err := formatParagraph(a.config, info, encoding, raw)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	encodeCmd.Flags().String("note", "", "Note id")
	encodeCmd.Flags().String("paragraph", "", "Paragraph id")
	encodeCmd.Flags().String("title", "", "Paragraph title")
	encodeCmd.Flags().String("text", "", `Paragraph text ("-" reads stdin)`)
	encodeCmd.Flags().Bool("unset-title", false, "Leave the title unset")
	encodeCmd.Flags().Bool("unset-text", false, "Leave the text unset")
	encodeCmd.Flags().StringP("encoding", "e", "positional", "Encoding (tagged or positional)")
	encodeCmd.Flags().Bool("raw", false, "Write raw bytes instead of hex")
	return encodeCmd
}
