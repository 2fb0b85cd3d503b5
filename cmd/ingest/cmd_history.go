package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dataingest/internal/history"
	"dataingest/internal/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent ingestion runs",
	Long: `Lists the most recent runs recorded in the --history database, newest first.

Example:
  ingest history --history data/history.db -n 5`,
	Args: cobra.NoArgs,
	RunE: listHistory,
}

func listHistory(cmd *cobra.Command, args []string) error {
	if historyPath == "" {
		return errors.New("no history database: pass --history")
	}
	ctx := cmd.Context()
	h, err := history.Open(ctx, historyPath, logs.Get(logging.CategoryHistory))
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), historyTable(runs).View())
	return nil
}

func historyTable(runs []history.Run) *runTable {
	t := newRunTable("Ingestion runs", []string{"STARTED", "STATUS", "ROWS", "TRAIN", "TEST", "TEST SIZE", "DURATION", "ERROR"})
	for _, r := range runs {
		errText := r.Error
		if r.ErrorKind != "" {
			errText = r.ErrorKind + ": " + r.Error
		}
		t.addRow(
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.TestRows),
			strconv.FormatFloat(r.TestSize, 'g', -1, 64),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			truncate(errText, 60),
		)
	}
	return t
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	sepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	failedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FF5F87"))
)

// runTable renders rows under fixed headers with per-column widths.
type runTable struct {
	title   string
	headers []string
	rows    [][]string
}

func newRunTable(title string, headers []string) *runTable {
	return &runTable{title: title, headers: headers}
}

func (t *runTable) addRow(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *runTable) View() string {
	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(titleStyle.Render(t.title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Width includes the padding.
	total := len(widths) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	sep := sepStyle.Render("|")
	for i, h := range t.headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		if i < len(t.headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		style := cellStyle
		if len(row) > 1 && row[1] == history.StatusFailed {
			style = failedStyle
		}
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
			if i < len(row)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
