package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"archivist/internal/app"
	"archivist/internal/archivist"
	"archivist/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 120
}

func formatStatus(status int) string {
	switch status {
	case 0:
		return "-"
	case model.StatusTransportError:
		return "no response"
	default:
		return strconv.Itoa(status)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func printEntries(w io.Writer, entries []model.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "URL", "Source", "Status", "Checked", "Skip"})

	// ID, status and timestamp columns take roughly 45 cells; the rest is split.
	flex := getTerminalWidth() - 45
	if flex < 40 {
		flex = 40
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "URL", WidthMax: flex * 3 / 5, WidthMaxEnforcer: text.Trim},
		{Name: "Source", WidthMax: flex / 5, WidthMaxEnforcer: text.Trim},
		{Name: "Skip", WidthMax: flex / 5, WidthMaxEnforcer: text.Trim},
	})

	for _, e := range entries {
		t.AppendRow(table.Row{e.ID, e.URL, e.SourceSlug, formatStatus(e.LastStatus), formatTime(e.LastChecked), e.Skip})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d entries", len(entries))})
	t.Render()
}

func printDetails(w io.Writer, d *app.EntryDetails) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	e := d.Entry
	t.AppendRows([]table.Row{
		{"ID", e.ID},
		{"URL", e.URL},
		{"Source", e.SourceSlug},
		{"Original", e.OriginalSlug},
		{"Skip", e.Skip},
		{"Comments", e.Comments},
		{"Last status", formatStatus(e.LastStatus)},
		{"Last checked", formatTime(e.LastChecked)},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Location", d.Location})
	t.AppendRow(table.Row{"Content", d.HasContent})
	if m := d.Metadata; m != nil {
		t.AppendRows([]table.Row{
			{"Last attempt", formatTime(m.LastAttempt)},
			{"Attempt status", formatStatus(m.LastStatus)},
			{"ETag", m.ETag},
			{"Last-Modified", m.LastModified},
			{"Length", m.ContentLength},
			{"SHA-256", m.Digest},
		})
	}
	t.Render()
}

func printHistory(w io.Writer, ops []archivist.OperationRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Operation", "Started", "Status", "Duration", "Summary"})

	for _, op := range ops {
		duration := ""
		if op.FinishedAt != nil {
			duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
		}
		t.AppendRow(table.Row{op.ID, op.Operation, formatTime(op.StartedAt), op.Status, duration, op.Summary})
	}
	t.Render()
}
