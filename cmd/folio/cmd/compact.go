/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/store"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the log dropping deleted and superseded records",
		Long: `Rewrite the append-only log so it holds only the live record of each
paragraph. Only the log backend needs compaction.

Example:
  folio compact --data-dir ./data`,
		Args: cobra.NoArgs,
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

			kv, ok := nb.Backend.(*store.KVStore)
			if !ok {
				return fmt.Errorf("compaction is not supported by the %s backend", a.config.Storage.Backend)
			}
			result, err := kv.Compact()
			if err != nil {
				return err
			}
			cmd.Printf("Compacted %d keys: %d -> %d bytes in %s\n",
				result.Keys, result.SizeBefore, result.SizeAfter, result.Took)
			return nil
		},
	}
}
