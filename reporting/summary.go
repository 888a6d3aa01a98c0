package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// SummaryFileName is the name of the text summary inside a run directory.
const SummaryFileName = "summary.log"

// TextSummarySink writes a plain-text summary of each run to
// <baseDir>/testrun-<runID>/summary.log.
type TextSummarySink struct {
	baseDir        string
	includeDetails bool
}

// NewTextSummarySink creates a sink rooted at baseDir.
func NewTextSummarySink(baseDir string, includeDetails bool) *TextSummarySink {
	return &TextSummarySink{baseDir: baseDir, includeDetails: includeDetails}
}

// RunDir returns the directory the sink uses for runID.
func (s *TextSummarySink) RunDir(runID string) string {
	return filepath.Join(s.baseDir, "testrun-"+runID)
}

// Write renders data and writes it to disk, returning the file path.
func (s *TextSummarySink) Write(data *ReportData) (string, error) {
	if data == nil {
		return "", errors.New("nil report")
	}
	outputDir := s.RunDir(data.RunID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", outputDir)
	}
	path := filepath.Join(outputDir, SummaryFileName)
	if err := os.WriteFile(path, []byte(s.Format(data)), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write summary file")
	}
	return path, nil
}

// Format renders the summary text. Terminal escape codes in test logs are
// removed.
func (s *TextSummarySink) Format(data *ReportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RUN SUMMARY\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", data.RunID)
	if data.Gate != "" {
		fmt.Fprintf(&b, "Gate:      %s\n", data.Gate)
	}
	fmt.Fprintf(&b, "Started:   %s\n", data.StartTime.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, "Duration:  %s\n", formatDuration(data.Duration))
	fmt.Fprintf(&b, "Status:    %s\n", overallStatus(data))
	fmt.Fprintf(&b, "Tests:     %d total, %d passed, %d failed, %d errored, %d aborted, %d skipped\n",
		data.Stats.Total, data.Stats.Passed, data.Stats.Failed, data.Stats.Errored, data.Stats.Aborted, data.Stats.Skipped)
	if data.Cancelled {
		b.WriteString("The run was cancelled before every test finished.\n")
	}

	for _, suite := range data.Suites {
		fmt.Fprintf(&b, "\n%s [%s] (%s)\n", suite.Name, suite.Stats.Status(), formatDuration(suite.Duration))
		for _, test := range suite.Tests {
			fmt.Fprintf(&b, "  %-5s %s", test.Status, test.Name)
			if test.Status == StatusSkip {
				fmt.Fprintf(&b, " (%s)", test.SkipReason)
			} else {
				fmt.Fprintf(&b, " (%s)", formatDuration(test.Duration))
			}
			b.WriteString("\n")
			if !s.includeDetails {
				continue
			}
			if test.Message != "" {
				fmt.Fprintf(&b, "        message: %s\n", test.Message)
			}
			if test.UserMessage != "" && test.UserMessage != test.Message {
				fmt.Fprintf(&b, "        user message: %s\n", test.UserMessage)
			}
			if test.Error != nil {
				fmt.Fprintf(&b, "        error: %s: %v\n", types.QualifiedTypeName(test.Error), test.Error)
			}
			if test.Log != "" {
				for _, line := range strings.Split(stripansi.Strip(test.Log), "\n") {
					fmt.Fprintf(&b, "        | %s\n", line)
				}
			}
		}
	}
	return b.String()
}

func overallStatus(data *ReportData) Status {
	if data.HasFailures {
		return StatusFail
	}
	return data.Stats.Status()
}
