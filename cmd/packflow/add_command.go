package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"packflow/internal/fileutil"
	"packflow/internal/pack"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Deposit a package file into the hot folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if _, err := pack.KindFor(info.Name()); err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := filepath.Join(cfg.Paths.IncomingDir, filepath.Base(absPath))
			if absPath == target {
				return fmt.Errorf("%s is already in the hot folder", absPath)
			}
			if err := fileutil.CopyFileVerified(absPath, target); err != nil {
				return fmt.Errorf("deposit file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deposited %s into %s\n",
				filepath.Base(absPath), cfg.Paths.IncomingDir)
			return nil
		},
	}
}
