package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/fetcher"
)

var (
	extractPath   string
	extractURL    string
	extractStamps bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract shipment and delivery identifiers from a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		src := fetcher.Source{Path: extractPath, URL: extractURL}
		if err := src.Validate(); err != nil {
			return err
		}

		records, err := env.Service.Extract(ctx, src, extractStamps)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		zap.L().Info("extraction complete",
			zap.Int("pages", len(records)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractPath, "file", "", "local document path")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "document URL (http, https, or ftp)")
	extractCmd.Flags().BoolVar(&extractStamps, "stamps", false, "also detect and identify stamps on each page")
	rootCmd.AddCommand(extractCmd)
}
