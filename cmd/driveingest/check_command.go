package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driveingest/internal/preflight"
	"driveingest/internal/services"
	"driveingest/internal/store"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks on binaries, directories, credentials and the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var pinger preflight.Pinger
			st, openErr := store.Open(cmd.Context(), cfg)
			if openErr == nil {
				defer st.Close()
				pinger = st
			}

			results := preflight.RunAll(cmd.Context(), cfg, pinger)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Database", Detail: openErr.Error()})
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, passLabel(r.Passed), r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows))

			failed := preflight.Failed(results)
			if len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "check", "preflight",
					fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), nil)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func passLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
