// Package enrich handles the merchant extraction and tagging command.
package enrich

import (
	"fmt"

	"dkowalski/mbank-ledger/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the enrich command.
var Cmd = &cobra.Command{
	Use:   "enrich",
	Short: "Extract merchants and suggest tags for imported transactions",
	Long: `Run merchant extraction and tag suggestion over every transaction of a
tenant that has not been enriched yet. Safe to re-run.`,
	RunE: enrichFunc,
}

func enrichFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tenantID, err := root.TenantID()
	if err != nil {
		return err
	}

	storage, closeStorage, err := root.OpenStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage()

	svc, err := root.NewService(ctx, storage)
	if err != nil {
		return err
	}

	enriched, err := svc.EnrichTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	root.Log.Info(fmt.Sprintf("enriched %d transactions", enriched))
	return nil
}
