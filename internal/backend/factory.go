// Package backend builds the primary table store selected by DATA_BACKEND.
package backend

import (
	"context"
	"errors"
	"fmt"

	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/sheets"
	gsheet "bizledger/internal/sheets/google"
	"bizledger/internal/sheets/memory"
	"bizledger/internal/storage"
)

// DefaultFactory implements the Factory interface. Every store it returns is
// wrapped with metrics instrumentation.
type DefaultFactory struct {
	logger *log.Logger
	rec    metrics.Recorder
}

// NewFactory creates a new backend factory. A nil recorder disables metrics.
func NewFactory(logger *log.Logger, rec metrics.Recorder) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		rec:    rec,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	res.Store = metrics.Instrument(res.Store, f.rec)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
		Ready:   store.Ping,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		Logger:             f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Store:   cli,
		Cleanup: noCleanup,
		Ready:   probe(cli, config.ProbeTable),
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: noCleanup,
		Ready:   func(context.Context) error { return nil },
	}, nil
}

// OpenMirror opens the SQLite replica the mirror worker writes into.
func OpenMirror(path string, logger *log.Logger) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror store: %w", err)
	}
	return store, nil
}

func noCleanup() error { return nil }

// probe checks reachability by reading a table. A missing table still
// proves the store answers, so only transport errors count.
func probe(store sheets.TableReader, table string) ReadyFunc {
	return func(ctx context.Context) error {
		if table == "" {
			return nil
		}
		_, err := store.ReadAll(ctx, table)
		if err != nil && !errors.Is(err, sheets.ErrNoSuchTable) {
			return err
		}
		return nil
	}
}
