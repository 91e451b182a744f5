package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"driveingest/internal/pipeline"
)

// renderTable draws a rounded table. Columns whose zero-based index is in
// rightAligned hold numbers and are right-aligned; short rows are padded.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	for _, col := range rightAligned {
		if col >= 0 && col < len(configs) {
			configs[col].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

// renderSummary draws one row per executed phase, the overall status line,
// and any item errors below the table.
func renderSummary(summary pipeline.Summary) string {
	headers := []string{"Phase", "Status", "OK", "Failed", "Skipped", "Elapsed"}
	rows := make([][]string, 0, len(summary.Phases))
	for _, phase := range summary.Phases {
		rows = append(rows, []string{
			phase.Phase.String(),
			string(phase.Status),
			fmt.Sprintf("%d/%d", phase.Succeeded, phase.Attempted),
			fmt.Sprintf("%d", phase.Failed),
			fmt.Sprintf("%d", phase.Skipped),
			formatElapsed(phase.Elapsed),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(headers, rows, 2, 3, 4, 5))
	b.WriteString("\n")

	status := strings.ToUpper(string(summary.Status))
	if summary.DryRun {
		status += " (dry run)"
	}
	fmt.Fprintf(&b, "Run %s: %s in %s", shortID(summary.RunID), status, formatElapsed(summary.Elapsed))

	for _, phase := range summary.Phases {
		if phase.AdapterError != "" {
			fmt.Fprintf(&b, "\n%s: %s", phase.Phase, phase.AdapterError)
		}
		for _, itemErr := range phase.Errors {
			fmt.Fprintf(&b, "\n%s: %s: %s", phase.Phase, itemErr.Key, itemErr.Reason)
		}
	}
	return b.String()
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
