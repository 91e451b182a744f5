package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"driveingest/internal/store"
)

const recentLimit = 10

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ingest store counts and the newest entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			recent, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, struct {
					Stats  store.Stats         `json:"stats"`
					Recent []store.RecentEntry `json:"recent"`
				}{stats, recent})
			}
			fmt.Fprintln(out, renderStats(stats))
			if len(recent) == 0 {
				fmt.Fprintln(out, "No entries ingested yet")
				return nil
			}
			fmt.Fprintln(out, renderRecent(recent))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", recentLimit, "Number of recent entries to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func renderStats(stats store.Stats) string {
	rows := [][]string{
		{"Backend", stats.Backend},
		{"Source files", strconv.Itoa(stats.Sources)},
		{"Entries", strconv.Itoa(stats.Entries)},
		{"Audio entries", strconv.Itoa(stats.AudioEntries)},
		{"Text entries", strconv.Itoa(stats.TextEntries)},
		{"Transcription runs", strconv.Itoa(stats.TranscriptionRuns)},
		{"Total tokens", strconv.FormatInt(stats.TotalTokens, 10)},
		{"Last ingest", formatTimestamp(stats.LastIngestedAt)},
	}
	return renderTable([]string{"Metric", "Value"}, rows, 1)
}

func renderRecent(entries []store.RecentEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		engine := e.Engine
		if engine == "" {
			engine = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.EntryID, 10),
			truncate(e.Title, 48),
			e.Kind,
			engine,
			formatTimestamp(e.IngestedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Kind", "Engine", "Ingested"},
		rows,
		0,
	)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
