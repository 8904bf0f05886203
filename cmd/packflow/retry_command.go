package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/config"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset errored packages to their resume point",
		Long: "Reset errored packages so the daemon re-runs them from the " +
			"transition that failed. Without arguments every errored package " +
			"is reset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid package id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				count, err := store.RetryErrored(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d package(s) for retry\n", count)
				return nil
			})
		},
	}
}
