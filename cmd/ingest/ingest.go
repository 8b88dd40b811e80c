// Package ingest handles the statement import command.
package ingest

import (
	"errors"
	"fmt"
	"os"

	"dkowalski/mbank-ledger/cmd/root"
	"dkowalski/mbank-ledger/internal/importer"
	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var enrichAfter bool

// Cmd represents the ingest command.
var Cmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Import one or more mBank statement exports",
	Long: `Import mBank operation list exports (Windows-1250 CSV) for a tenant.
Files are given as arguments or via --input. Already imported files and
already known transactions are skipped.`,
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().BoolVar(&enrichAfter, "enrich", false, "Run merchant extraction and tagging after the import")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tenantID, err := root.TenantID()
	if err != nil {
		return err
	}

	files := args
	if root.SharedFlags.Input != "" {
		files = append([]string{root.SharedFlags.Input}, files...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no statement files given, use --input or arguments")
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

	for _, file := range files {
		if err := ingestFile(cmd, svc, file, tenantID); err != nil {
			return err
		}
	}
	return nil
}

func ingestFile(cmd *cobra.Command, svc *importer.Service, file string, tenantID uuid.UUID) error {
	ctx := cmd.Context()
	log := root.Log.WithField(logging.FieldFile, file)

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading statement file: %w", err)
	}

	batch, err := svc.Import(ctx, content, file, tenantID)
	if err != nil {
		var dup *importerror.DuplicateFileError
		if errors.As(err, &dup) {
			log.Info(dup.Error())
			return nil
		}
		return err
	}

	log.Info(fmt.Sprintf("imported %d transactions, skipped %d duplicates",
		batch.TransactionsImported, batch.DuplicatesSkipped))

	if enrichAfter {
		enriched, err := svc.EnrichBatch(ctx, batch.ID)
		if err != nil {
			return err
		}
		log.Info(fmt.Sprintf("enriched %d transactions", enriched))
	}
	return nil
}
