/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a binary paragraph record",
		Long: `Decode a record in one of the binary encodings from a file or stdin
and print it. The input is read as raw bytes unless --hex is given.

Examples:
  folio decode record.bin --encoding tagged
  folio get note1 p1 --output positional | folio decode --hex --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			encoding, _ := cmd.Flags().GetString("encoding")
			isHex, _ := cmd.Flags().GetBool("hex")
			output, _ := cmd.Flags().GetString("output")

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			if isHex {
				if data, err = decodeHex(data); err != nil {
					return err
				}
			}

			c, err := a.config.CodecByName(encoding)
			if err != nil {
				return err
			}
			info, err := c.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("decode %s record: %w", c.Name(), err)
			}

			out, err := formatParagraph(a.config, info, output, false)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	decodeCmd.Flags().StringP("encoding", "e", "positional", "Encoding of the input (tagged or positional)")
	decodeCmd.Flags().Bool("hex", false, "Input is hex encoded")
	decodeCmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	return decodeCmd
}
