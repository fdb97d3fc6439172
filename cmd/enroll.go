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
	enrollPath    string
	enrollURL     string
	enrollCompany string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register a reference stamp image for a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "enroll")
		if err != nil {
			return err
		}
		defer env.Close()

		src := fetcher.Source{Path: enrollPath, URL: enrollURL}
		if err := src.Validate(); err != nil {
			return err
		}

		enrollment, err := env.Service.Enroll(ctx, src, enrollCompany)
		if err != nil {
			return eris.Wrap(err, "enroll")
		}

		zap.L().Info("stamp enrolled",
			zap.String("stamp_id", enrollment.StampID),
			zap.String("company", enrollment.CompanyID),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(enrollment)
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollPath, "file", "", "local stamp image path")
	enrollCmd.Flags().StringVar(&enrollURL, "url", "", "stamp image URL")
	enrollCmd.Flags().StringVar(&enrollCompany, "company", "", "company identifier to enroll under (required)")
	_ = enrollCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(enrollCmd)
}
