// Command ledgerctl runs ledger operations from the shell against the
// configured backend.
package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"bizledger/internal/cli"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	var root ledgerCLI
	kctx := kong.Parse(&root,
		kong.Name("ledgerctl"),
		kong.Description("Operate the bizledger store: bootstrap, reports and record edits."),
		kong.UsageOnError(),
	)

	cfg := cli.LoadAndValidateConfig(logger)
	ctx, cancel := context.WithTimeout(context.Background(), root.Timeout)
	defer cancel()

	adapter, store, err := cli.OpenLedger(ctx, cfg, logger, metrics.Noop{})
	kctx.FatalIfErrorf(err)
	defer store.Cleanup()

	app := &appContext{
		ctx:     ctx,
		adapter: adapter,
		svc:     services.NewLedgerService(adapter, services.WithLogger(logger)),
		out:     os.Stdout,
		now:     time.Now,
	}
	kctx.FatalIfErrorf(kctx.Run(app))
}
