package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/config"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show package counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog: %s\n", store.Path())
				if len(stats) == 0 {
					fmt.Fprintln(out, "No packages in the catalog")
					return nil
				}

				states := make([]string, 0, len(stats))
				for state := range stats {
					states = append(states, string(state))
				}
				sort.Strings(states)

				colorize := isTerminal(out)
				rows := make([][]string, 0, len(states))
				for _, state := range states {
					label := state
					if colorize {
						switch catalog.State(state) {
						case catalog.StateReady:
							label = ansiGreen + state + ansiReset
						case catalog.StateError:
							label = ansiRed + state + ansiReset
						}
					}
					rows = append(rows, []string{label, strconv.Itoa(stats[catalog.State(state)])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"State", "Packages"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
