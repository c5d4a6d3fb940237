package ports

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"

	"github.com/dustin/go-humanize"
)

var (
	_ Reporter   = (*ConsoleReporter)(nil)
	_ Interactor = (*ConsoleReporter)(nil)
)

// ConsoleReporter prints duplicate groups in the classic layout: the hash on
// its own line, then each path tab-indented and quoted, then the group count.
type ConsoleReporter struct {
	out     io.Writer
	errOut  io.Writer
	summary bool
}

// NewConsoleReporter writes the report to out and messages to errOut.
// With summary set a statistics line follows the group count.
func NewConsoleReporter(out, errOut io.Writer, summary bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, errOut: errOut, summary: summary}
}

// Report prints every group in ascending hash order.
func (c *ConsoleReporter) Report(report *types.Report) error {
	for _, group := range report.Groups() {
		if _, err := fmt.Fprintln(c.out, group.HexID); err != nil {
			return err
		}
		for _, path := range group.Paths() {
			if _, err := fmt.Fprintf(c.out, "\t%s\n", strconv.Quote(path)); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(c.out, "Duplicated files: %d\n", report.GroupCount()); err != nil {
		return err
	}
	if !c.summary {
		return nil
	}

	stats := report.Stats
	line := fmt.Sprintf("Hashed %s files (%s read) in %s, %s reclaimable",
		humanize.Comma(stats.FilesHashed),
		humanize.IBytes(uint64(stats.BytesHashed)),
		report.Duration.Round(time.Millisecond),
		humanize.IBytes(uint64(report.Reclaimable())),
	)
	if report.FullCheck {
		line += fmt.Sprintf(", %s verified", humanize.Comma(stats.FilesVerified))
	}
	if n := len(report.Skipped); n > 0 {
		line += fmt.Sprintf(", %d skipped", n)
	}
	_, err := fmt.Fprintln(c.out, line)
	return err
}

// Output prints message to the message stream.
func (c *ConsoleReporter) Output(message string) {
	fmt.Fprintln(c.errOut, message)
}

// Warning prints message as a warning.
func (c *ConsoleReporter) Warning(message string) {
	fmt.Fprintf(c.errOut, "warning: %s\n", message)
}

// Error prints message and err.
func (c *ConsoleReporter) Error(message string, err error) {
	if err == nil {
		fmt.Fprintf(c.errOut, "error: %s\n", message)
		return
	}
	fmt.Fprintf(c.errOut, "error: %s: %v\n", message, err)
}
