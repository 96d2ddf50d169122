package internal

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger returns the CLI logger. Only warnings and errors are shown unless
// verbose is set.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "moneyline",
		ReportTimestamp: verbose,
		TimeFormat:      "15:04:05.000",
	})
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
