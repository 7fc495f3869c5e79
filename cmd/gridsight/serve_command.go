package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gridsight/internal/contract"
	"gridsight/internal/daemon"
	"gridsight/internal/fallback"
	"gridsight/internal/journal"
	"gridsight/internal/logging"
	"gridsight/internal/pipeline"
	"gridsight/internal/pool"
	"gridsight/internal/vision"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the import daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}

			contracts, err := contract.NewRegistry()
			if err != nil {
				_ = store.Close()
				return err
			}
			sched := pool.New(cfg.Pipeline.Workers, cfg.StageTimeout(), logger)
			resolver := fallback.NewResolver(fallback.DefaultStrategies(cfg.Pipeline.MaxStageRetries)...)
			manager := pipeline.NewManager(cfg, sched, contracts, resolver, vision.NewStages, logger, store.Observer(logger))

			d, err := daemon.New(cfg, store, sched, manager, logger)
			if err != nil {
				_ = store.Close()
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				_ = store.Close()
				return err
			}
			<-runCtx.Done()
			return d.Close()
		},
	}
}
