package worker

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"bizledger/internal/amqp"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/sheets"
)

// Consumer delivers ledger change messages until its context ends.
type Consumer interface {
	ConsumeLedgerChanges(ctx context.Context, handler amqp.Handler) error
}

// Mirror copies ledger tables from the primary store into a replica, whole
// table at a time. Copies are idempotent, so redelivered or out-of-order
// messages are harmless.
type Mirror struct {
	source sheets.TableReader
	target sheets.TableReplacer
	tables []string
	rec    metrics.Recorder
	logger *log.Logger
}

func NewMirror(source sheets.TableReader, target sheets.TableReplacer, tables []string, rec metrics.Recorder, logger *log.Logger) *Mirror {
	if rec == nil {
		rec = metrics.Noop{}
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &Mirror{
		source: source,
		target: target,
		tables: tables,
		rec:    rec,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Sync copies every mirrored table. Reads run in parallel; nothing is
// written unless every read succeeded.
func (m *Mirror) Sync(ctx context.Context) error {
	return m.syncTables(ctx, m.tables)
}

func (m *Mirror) syncTables(ctx context.Context, tables []string) error {
	start := time.Now()
	snapshots := make([][][]string, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			rows, err := m.source.ReadAll(gctx, table)
			if err != nil {
				return fmt.Errorf("read %s: %w", table, err)
			}
			snapshots[i] = rows
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		for i, table := range tables {
			if err = m.target.ReplaceTable(ctx, table, snapshots[i]); err != nil {
				err = fmt.Errorf("replace %s: %w", table, err)
				break
			}
		}
	}

	m.rec.ObserveMirror(time.Since(start), err)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Mirrored tables", log.FieldOperation, log.OpMirror,
		"tables", tables, log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// HandleLedgerChange mirrors the table named in msg. Unknown tables fall
// back to a full sync.
func (m *Mirror) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	m.logger.InfoContext(ctx, "Processing ledger change",
		log.NewFields().WithRecord(msg.Table, msg.Row, msg.ID).WithOperation(msg.Op).ToSlice()...)
	if slices.Contains(m.tables, msg.Table) {
		return m.syncTables(ctx, []string{msg.Table})
	}
	return m.Sync(ctx)
}

// Run performs a startup sync, then mirrors on every change message and on
// a periodic interval as a backstop for lost messages. A nil consumer
// leaves only the periodic sync. Run returns when ctx ends.
func (m *Mirror) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := m.Sync(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Startup mirror failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanges(gctx, m.HandleLedgerChange)
		})
	}
	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := m.Sync(gctx); err != nil {
						m.logger.ErrorContext(gctx, "Periodic mirror failed", log.FieldError, err)
					}
				}
			}
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
