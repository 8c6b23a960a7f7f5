package main

import (
	"io"
	"os"

	"github.com/groblegark/tangle/internal/config"
	"github.com/groblegark/tangle/internal/store/postgres"
	tanglesync "github.com/groblegark/tangle/internal/sync"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export all data as JSONL",
	Long:    "Export every user, tag, task, and tag association as JSONL, in the same format the sync scheduler ships to backup destinations. Connects directly to the database (TANGLE_DATABASE_URL), not to a running server.",
	GroupID: "system",
	// Override PersistentPreRunE so we don't construct an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		var w io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		return tanglesync.ExportJSONL(cmd.Context(), store, w)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
}
