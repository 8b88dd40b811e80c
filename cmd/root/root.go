// Package root contains the root command and the runtime wiring shared
// by all subcommands.
package root

import (
	"context"
	"fmt"
	"time"

	"dkowalski/mbank-ledger/internal/config"
	"dkowalski/mbank-ledger/internal/importer"
	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/merchant"
	"dkowalski/mbank-ledger/internal/store"
	"dkowalski/mbank-ledger/internal/tagging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// CommonFlags holds the flags shared by multiple commands.
type CommonFlags struct {
	Input  string
	Output string
	Tenant string
}

var (
	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the resolved application configuration.
	Cfg *config.Config

	// SharedFlags holds common flag values accessible to all commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "mbank-ledger",
		Short: "Import, enrich and export mBank statement exports.",
		Long: `mbank-ledger ingests mBank operation list exports (Windows-1250 CSV),
deduplicates transactions, extracts merchants from card payment titles,
suggests tags and exports the enriched ledger.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
)

// Init registers the persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input statement file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file (default stdout)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Tenant, "tenant", "t", "", "Tenant UUID (required)")
}

// TenantID parses the --tenant flag.
func TenantID() (uuid.UUID, error) {
	if SharedFlags.Tenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(SharedFlags.Tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id '%s': %w", SharedFlags.Tenant, err)
	}
	return id, nil
}

// OpenStorage connects the configured backend: Postgres when a DSN is
// set, the in-memory store otherwise. The returned func releases the
// backend and must always be called.
func OpenStorage(ctx context.Context) (store.Storage, func(), error) {
	if Cfg.Storage.DSN == "" {
		Log.Warn("no DATABASE_URL set, using in-memory storage for this run")
		return store.NewMemoryStore(), func() {}, nil
	}

	pg, err := store.NewPostgresStore(ctx, Cfg.Storage.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// NewService assembles the import pipeline over the given storage,
// honoring the table overrides and the optional AI suggester.
func NewService(ctx context.Context, storage store.Storage) (*importer.Service, error) {
	extractor := merchant.NewExtractor()
	if Cfg.Tables.BrandsFile != "" {
		brands, err := merchant.LoadBrandTable(Cfg.Tables.BrandsFile)
		if err != nil {
			return nil, err
		}
		extractor = merchant.NewExtractorWithBrands(brands)
	}

	table := tagging.DefaultTagTable()
	if Cfg.Tables.KeywordsFile != "" {
		loaded, err := tagging.LoadTagTable(Cfg.Tables.KeywordsFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	engine := tagging.NewEngine(table, Cfg.Tagging.MajorExpenseThreshold, Cfg.Tagging.SmallPurchaseThreshold)

	var ai importer.AISuggester
	if Cfg.AI.Enabled {
		suggester, err := tagging.NewGeminiSuggester(ctx, Cfg.AI.APIKey, Cfg.AI.Model,
			time.Duration(Cfg.AI.TimeoutSeconds)*time.Second, Log)
		if err != nil {
			return nil, err
		}
		ai = suggester
	}

	return importer.NewService(storage, extractor, engine, ai, Log), nil
}
