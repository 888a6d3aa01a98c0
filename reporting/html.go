package reporting

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// HTMLFileName is the name of the HTML report inside a run directory.
const HTMLFileName = "results.html"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// LogPathFunc returns the path of a test's log file relative to the run
// directory, or "" if the test has none.
type LogPathFunc func(suite string, test TestItem) string

// HTMLFormatter formats reports as HTML
type HTMLFormatter struct {
	template *template.Template
	logPath  LogPathFunc
}

// NewHTMLFormatter parses the embedded results template. logPath may be nil.
func NewHTMLFormatter(logPath LogPathFunc) (*HTMLFormatter, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/results.html.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML template")
	}
	return &HTMLFormatter{template: tmpl, logPath: logPath}, nil
}

type htmlSummaryData struct {
	RunID             string
	Gate              string
	Time              string
	TotalDuration     string
	StatusText        string
	StatusClass       string
	Total             int
	Passed            int
	Failed            int
	Errored           int
	Aborted           int
	Skipped           int
	PassRateFormatted string
	Cancelled         bool
	Suites            []htmlSuiteRow
}

type htmlSuiteRow struct {
	Name              string
	StatusText        string
	StatusClass       string
	DurationFormatted string
	Tests             []htmlTestRow
}

type htmlTestRow struct {
	StatusText        string
	StatusClass       string
	TestName          string
	DurationFormatted string
	Details           string
	LogPath           string
}

// Format formats the report data as HTML
func (hf *HTMLFormatter) Format(data *ReportData) (string, error) {
	if data == nil {
		return "", errors.New("nil report")
	}
	status := overallStatus(data)
	htmlData := &htmlSummaryData{
		RunID:             data.RunID,
		Gate:              data.Gate,
		Time:              data.StartTime.Format(time.RFC3339),
		TotalDuration:     formatDuration(data.Duration),
		StatusText:        string(status),
		StatusClass:       statusClass(status),
		Total:             data.Stats.Total,
		Passed:            data.Stats.Passed,
		Failed:            data.Stats.Failed,
		Errored:           data.Stats.Errored,
		Aborted:           data.Stats.Aborted,
		Skipped:           data.Stats.Skipped,
		PassRateFormatted: passRate(data.Stats),
		Cancelled:         data.Cancelled,
		Suites:            hf.suiteRows(data.Suites),
	}

	var buf bytes.Buffer
	if err := hf.template.Execute(&buf, htmlData); err != nil {
		return "", errors.Wrap(err, "failed to execute HTML template")
	}
	return buf.String(), nil
}

func (hf *HTMLFormatter) suiteRows(suites []*SuiteReport) []htmlSuiteRow {
	rows := make([]htmlSuiteRow, 0, len(suites))
	for _, suite := range suites {
		st := suite.Stats.Status()
		row := htmlSuiteRow{
			Name:              suite.Name,
			StatusText:        string(st),
			StatusClass:       statusClass(st),
			DurationFormatted: formatDuration(suite.Duration),
			Tests:             make([]htmlTestRow, 0, len(suite.Tests)),
		}
		for _, test := range suite.Tests {
			tr := htmlTestRow{
				StatusText:        string(test.Status),
				StatusClass:       statusClass(test.Status),
				TestName:          test.Name,
				DurationFormatted: formatDuration(test.Duration),
				Details:           details(test),
			}
			if hf.logPath != nil && test.Status != StatusSkip {
				tr.LogPath = filepath.ToSlash(hf.logPath(suite.Name, test))
			}
			row.Tests = append(row.Tests, tr)
		}
		rows = append(rows, row)
	}
	return rows
}

func statusClass(s Status) string {
	return strings.ToLower(string(s))
}

func details(t TestItem) string {
	switch {
	case t.Status == StatusSkip:
		return string(t.SkipReason)
	case t.UserMessage != "":
		return t.UserMessage
	case t.Message != "":
		return t.Message
	case t.Error != nil:
		return t.Error.Error()
	}
	return ""
}

func passRate(s Stats) string {
	if s.Total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(s.Passed)*100/float64(s.Total))
}

// HTMLSink writes results.html into the run directory.
type HTMLSink struct {
	baseDir   string
	formatter *HTMLFormatter
}

// NewHTMLSink creates a sink rooted at baseDir.
func NewHTMLSink(baseDir string, logPath LogPathFunc) (*HTMLSink, error) {
	f, err := NewHTMLFormatter(logPath)
	if err != nil {
		return nil, err
	}
	return &HTMLSink{baseDir: baseDir, formatter: f}, nil
}

// Write renders data and writes it to disk, returning the file path.
func (s *HTMLSink) Write(data *ReportData) (string, error) {
	content, err := s.formatter.Format(data)
	if err != nil {
		return "", err
	}
	outputDir := filepath.Join(s.baseDir, "testrun-"+data.RunID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", outputDir)
	}
	path := filepath.Join(outputDir, HTMLFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write HTML report")
	}
	return path, nil
}
