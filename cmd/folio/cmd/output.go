/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/config"
	"github.com/ssargent/folio/pkg/paragraph"
)

// Output formats understood by --output.
const (
	outputText = "text"
	outputJSON = "json"
)

// formatParagraph renders info as text, indented JSON, or one of the binary
// encodings. Binary output is hex encoded unless raw is set.
func formatParagraph(cfg *config.Config, info *paragraph.Info, output string, raw bool) ([]byte, error) {
	switch output {
	case outputText, "":
		return []byte(info.String() + "\n"), nil
	case outputJSON:
		return marshalJSON(info)
	}

	c, err := cfg.CodecByName(output)
	if err != nil {
		return nil, err
	}
	data, err := c.Marshal(info)
	if err != nil {
		return nil, err
	}
	if raw {
		return data, nil
	}
	return []byte(hex.EncodeToString(data) + "\n"), nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// decodeHex accepts hex with surrounding whitespace, as written by get and
// encode.
func decodeHex(data []byte) ([]byte, error) {
	out, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return out, nil
}
