package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareRfpID string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Score and compare all proposals received for an RFP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Comparator.Compare(ctx, compareRfpID)
		if err != nil {
			return eris.Wrap(err, "compare proposals")
		}

		zap.L().Info("comparison complete",
			zap.String("rfp_id", compareRfpID),
			zap.Int("proposals", len(result.Proposals)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareRfpID, "rfp", "", "RFP ID (required)")
	_ = compareCmd.MarkFlagRequired("rfp")
	rootCmd.AddCommand(compareCmd)
}
