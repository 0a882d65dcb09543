package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/model"
)

var generateSave bool

var generateCmd = &cobra.Command{
	Use:   "generate <query>",
	Short: "Generate a structured RFP from a natural language description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return eris.New("query must not be empty")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		generated, err := env.Extract.GenerateRFP(ctx, query)
		if err != nil {
			return eris.Wrap(err, "generate rfp")
		}

		if generateSave {
			rfp := &model.Rfp{
				Title:                generated.Title,
				NaturalLanguageQuery: query,
				Requirements: model.Requirements{
					LineItems:    generated.LineItems,
					Budget:       generated.Budget,
					DeliveryDate: generated.DeliveryDate,
					PaymentTerms: generated.PaymentTerms,
				},
				Budget: generated.Budget,
				Status: model.RfpStatusDraft,
			}
			created, err := env.Store.CreateRfp(ctx, rfp)
			if err != nil {
				return eris.Wrap(err, "save rfp")
			}
			zap.L().Info("rfp saved", zap.String("rfp_id", created.ID))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(created)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(generated)
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "persist the generated RFP as a draft")
	rootCmd.AddCommand(generateCmd)
}
