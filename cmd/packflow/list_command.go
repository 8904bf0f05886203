package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/services"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				var states []catalog.State
				if trimmed := strings.TrimSpace(stateFlag); trimmed != "" {
					states = append(states, catalog.State(trimmed))
				}
				packages, err := store.List(cmd.Context(), states...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(packages) == 0 {
					fmt.Fprintln(out, "No packages in the catalog")
					return nil
				}

				rows := make([][]string, 0, len(packages))
				for _, pkg := range packages {
					rows = append(rows, []string{
						strconv.FormatInt(pkg.ID, 10),
						pkg.Title,
						pkg.OriginalFileName,
						string(pkg.State),
						strconv.Itoa(len(pkg.MediaIDs)),
						yesNo(pkg.MergeRequired),
						errorCell(pkg.ErrorCode),
						pkg.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				headers := []string{"ID", "Title", "File", "State", "Media", "Merge", "Error", "Created"}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stateFlag, "state", "", "Only show packages in this state")
	return cmd
}

func errorCell(code services.Code) string {
	if code == services.CodeNoError {
		return "-"
	}
	return code.String()
}
