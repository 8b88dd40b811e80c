// Package export handles the ledger CSV export command.
package export

import (
	"fmt"
	"io"
	"os"

	"dkowalski/mbank-ledger/cmd/root"
	"dkowalski/mbank-ledger/internal/export"

	"github.com/spf13/cobra"
)

var ingestFirst bool

// Cmd represents the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export a tenant's enriched ledger as CSV",
	Long: `Export every transaction of a tenant as a UTF-8 CSV ledger, including
extracted merchant fields and tag names. With --ingest the statement given
by --input is imported and enriched first, which makes a full
statement-to-ledger run possible without a database.`,
	RunE: exportFunc,
}

func init() {
	Cmd.Flags().BoolVar(&ingestFirst, "ingest", false, "Import and enrich --input before exporting")
}

func exportFunc(cmd *cobra.Command, args []string) error {
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

	if ingestFirst {
		if root.SharedFlags.Input == "" {
			return fmt.Errorf("--ingest requires --input")
		}
		content, err := os.ReadFile(root.SharedFlags.Input)
		if err != nil {
			return fmt.Errorf("error reading statement file: %w", err)
		}
		batch, err := svc.Import(ctx, content, root.SharedFlags.Input, tenantID)
		if err != nil {
			return err
		}
		if _, err := svc.EnrichBatch(ctx, batch.ID); err != nil {
			return err
		}
	}

	txs, err := storage.ListTransactions(ctx, tenantID)
	if err != nil {
		return err
	}
	tagNames, err := storage.TagNamesByTransaction(ctx, tenantID)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if root.SharedFlags.Output != "" {
		f, err := os.Create(root.SharedFlags.Output)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				root.Log.WithError(err).Warn("failed to close output file")
			}
		}()
		out = f
	}

	return export.NewExporter(root.Log).Write(out, txs, tagNames)
}
