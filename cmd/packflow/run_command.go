package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/daemon"
	"packflow/internal/logging"
	"packflow/internal/pack"
	"packflow/internal/preflight"
	"packflow/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the packflow daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, result := range preflight.RunAll(signalCtx, cfg) {
				if result.Passed {
					continue
				}
				logger.Warn("preflight check failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail))
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog store: %w", err)
			}
			defer store.Close()

			registry, err := buildRegistry(cfg)
			if err != nil {
				return fmt.Errorf("configure platforms: %w", err)
			}

			worker := pack.NewWorker(store, cfg, logger, registry)
			manager := workflow.NewManager(cfg, store, worker, logger)

			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			logger.Info("packflow daemon shutting down")
			return nil
		},
	}
}
