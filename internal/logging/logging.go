// Package logging builds the leveled logger shared by the CLI commands.
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

// New returns a logger writing to w at the named level. Unknown levels fall
// back to info. The "debug" level also reports timestamps and caller.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
		ReportCaller:    lvl == log.DebugLevel,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Success logs msg at info level with a green check prefix.
func Success(l *log.Logger, msg string, keyvals ...any) {
	l.Info(successStyle.Render("success")+" "+msg, keyvals...)
}

// Notice logs msg at info level with a highlighted prefix.
func Notice(l *log.Logger, msg string, keyvals ...any) {
	l.Info(noticeStyle.Render("notice")+" "+msg, keyvals...)
}
