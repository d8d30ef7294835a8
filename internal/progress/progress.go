// Package progress wraps terminal progress reporting for pipeline stages.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Stage is a progress bar for one pipeline stage.
type Stage struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewStage creates a progress bar with a known total. A total of -1 renders
// a spinner.
func NewStage(label string, total int) *Stage {
	if total < 0 {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		return &Stage{bar: bar, label: label}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Stage{bar: bar, label: label}
}

// Tick increments progress by 1. Safe for concurrent use.
func (s *Stage) Tick() {
	s.bar.Add(1)
}

// Done clears the bar without trailing output.
func (s *Stage) Done() {
	s.bar.Finish()
	s.bar.Clear()
}

// Fail clears the bar and prints the error to stderr.
func (s *Stage) Fail(err error) {
	s.bar.Finish()
	s.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", s.label, err)
}
