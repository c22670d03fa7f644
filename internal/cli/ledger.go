package cli

import (
	"context"
	"fmt"

	"bizledger/internal/backend"
	"bizledger/internal/config"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
)

// OpenLedger builds the configured backend and the ledger adapter on top of
// it, then bootstraps the schema. On error nothing is left open.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, rec metrics.Recorder) (*ledger.Adapter, *backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger, rec).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	adapter := ledger.New(res.Store,
		ledger.WithTables(ledger.Tables{Transactions: cfg.TransactionsSheet, Projects: cfg.ProjectsSheet}),
		ledger.WithPolicy(cfg.Policy()),
		ledger.WithLogger(logger),
	)

	results, err := adapter.Bootstrap(ctx)
	if err != nil {
		_ = res.Cleanup()
		return nil, nil, fmt.Errorf("bootstrap ledger: %w", err)
	}
	for _, r := range results {
		if r.HeaderRewritten || r.RowsRewritten > 0 {
			logger.InfoContext(ctx, "Schema upgraded",
				log.FieldTable, r.Table, "from", r.From, "to", r.To, "rows", r.RowsRewritten)
		}
	}
	return adapter, res, nil
}
