package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

var (
	sendRfpID     string
	sendVendorIDs []string
	sendAll       bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Email an RFP to vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !sendAll && len(sendVendorIDs) == 0 {
			return eris.New("either --vendor or --all is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rfp, err := env.Store.GetRfp(ctx, sendRfpID)
		if err != nil {
			return eris.Wrap(err, "load rfp")
		}

		var vendors []model.Vendor
		if sendAll {
			vendors, err = env.Store.ListVendors(ctx)
			if err != nil {
				return eris.Wrap(err, "list vendors")
			}
		} else {
			for _, id := range sendVendorIDs {
				v, err := env.Store.GetVendor(ctx, id)
				if err != nil {
					if store.IsNotFound(err) {
						zap.L().Warn("vendor not found, skipping", zap.String("vendor_id", id))
						continue
					}
					return eris.Wrap(err, "load vendor")
				}
				vendors = append(vendors, *v)
			}
		}
		if len(vendors) == 0 {
			return eris.New("no valid vendors to send to")
		}

		report, err := env.Sender.SendRFP(ctx, rfp, vendors)
		if err != nil {
			return eris.Wrap(err, "send rfp")
		}

		if report.TotalSent > 0 {
			if err := env.Store.UpdateRfpStatus(ctx, rfp.ID, model.RfpStatusSent); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
				zap.L().Warn("update rfp status after send", zap.Error(err))
			}
		}

		zap.L().Info("send complete",
			zap.String("rfp_id", rfp.ID),
			zap.Int("sent", report.TotalSent),
			zap.Int("failed", report.TotalFailed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendRfpID, "rfp", "", "RFP ID (required)")
	sendCmd.Flags().StringSliceVar(&sendVendorIDs, "vendor", nil, "vendor ID (repeatable)")
	sendCmd.Flags().BoolVar(&sendAll, "all", false, "send to every registered vendor")
	_ = sendCmd.MarkFlagRequired("rfp")
	rootCmd.AddCommand(sendCmd)
}
