package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// TableFormatter renders a report as a console table.
type TableFormatter struct {
	title               string
	showIndividualTests bool
}

// NewTableFormatter creates a table formatter.
func NewTableFormatter(title string, showIndividualTests bool) *TableFormatter {
	return &TableFormatter{title: title, showIndividualTests: showIndividualTests}
}

// Format renders data. A nil report renders an empty table.
func (tf *TableFormatter) Format(data *ReportData) (string, error) {
	if data == nil {
		data = &ReportData{}
	}
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(tf.title)
	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Errored", "Aborted", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 200, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errored", Align: text.AlignRight},
		{Name: "Aborted", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	gate := data.Gate
	if gate == "" {
		gate = "-"
	}
	t.AppendRow(table.Row{
		"Gate", gate, formatDuration(data.Duration), "-",
		data.Stats.Passed, data.Stats.Failed, data.Stats.Errored, data.Stats.Aborted, data.Stats.Skipped,
		data.Stats.Status(),
	})

	for _, suite := range data.Suites {
		t.AppendRow(table.Row{
			"Suite", fmt.Sprintf("├── %s", suite.Name), formatDuration(suite.Duration), "-",
			suite.Stats.Passed, suite.Stats.Failed, suite.Stats.Errored, suite.Stats.Aborted, suite.Stats.Skipped,
			suite.Stats.Status(),
		})
		if !tf.showIndividualTests {
			continue
		}
		for _, test := range suite.Tests {
			duration := "-"
			if test.Status != StatusSkip {
				duration = formatDuration(test.Duration)
			}
			t.AppendRow(table.Row{
				"Test", fmt.Sprintf("│   ├── %s", test.Name), duration, 1,
				boolCount(test.Status == StatusPass), boolCount(test.Status == StatusFail),
				boolCount(test.Status == StatusError), boolCount(test.Status == StatusAbort),
				boolCount(test.Status == StatusSkip),
				test.Status,
			})
		}
	}
	t.AppendSeparator()

	overall := data.Stats.Status()
	switch {
	case data.HasFailures:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
		overall = StatusFail
	case data.Cancelled, data.Stats.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	footerID := ""
	if data.Cancelled {
		footerID = "cancelled"
	}
	t.AppendFooter(table.Row{
		"TOTAL", footerID, formatDuration(data.Duration), data.Stats.Total,
		data.Stats.Passed, data.Stats.Failed, data.Stats.Errored, data.Stats.Aborted, data.Stats.Skipped,
		overall,
	})

	t.Render()
	return buf.String(), nil
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
