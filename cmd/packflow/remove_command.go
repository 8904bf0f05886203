package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/config"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a package record from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid package id %q", args[0])
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				pkg, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if pkg == nil {
					return fmt.Errorf("no package with id %d", id)
				}
				if err := store.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed package #%d (%s)\n", id, pkg.OriginalFileName)
				return nil
			})
		},
	}
}
