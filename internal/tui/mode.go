package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeBar uses bubbletea for an interactive progress bar.
	ModeBar OutputMode = iota
	// ModePlain writes progress as plain text lines.
	ModePlain
	// ModeNone suppresses progress output.
	ModeNone
)

// DetectMode resolves a configured progress setting ("auto", "bar", "plain"
// or "none") against the writer. "auto" selects the bar only for real
// terminals.
func DetectMode(out io.Writer, setting string, noProgress bool) OutputMode {
	if noProgress {
		return ModeNone
	}
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "none":
		return ModeNone
	case "plain":
		return ModePlain
	case "bar":
		return ModeBar
	}
	if isTerminal(out) {
		return ModeBar
	}
	return ModePlain
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return false
		}
	}
	return true
}
