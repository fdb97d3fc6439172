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
	verifyPath    string
	verifyURL     string
	verifyCompany string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a document carries the target company's stamp",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		src := fetcher.Source{Path: verifyPath, URL: verifyURL}
		if err := src.Validate(); err != nil {
			return err
		}

		record, err := env.Service.Verify(ctx, src, verifyCompany)
		if err != nil {
			return eris.Wrap(err, "verify")
		}

		zap.L().Info("verification complete",
			zap.String("company", verifyCompany),
			zap.Bool("exists", record.CompanyExists),
			zap.Bool("match", record.CompanyMatch),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPath, "file", "", "local document path")
	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "document URL (http, https, or ftp)")
	verifyCmd.Flags().StringVar(&verifyCompany, "company", "", "company identifier to verify against (required)")
	_ = verifyCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(verifyCmd)
}
