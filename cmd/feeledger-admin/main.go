package main

import (
	"os"
	"time"

	"feeledger/internal/cli"
	applog "feeledger/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentAdmin)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	cmd := &command{
		ledger: res.Service,
		out:    os.Stdout,
		now:    time.Now().In(cfg.Location()),
		logger: logger,
	}
	err := cmd.run(ctx, os.Args[1:])
	if cerr := res.Cleanup(); cerr != nil {
		logger.Error("Backend cleanup failed", "error", cerr)
	}
	if err != nil {
		cli.Fatal(logger, "Admin command failed", err)
	}
}
