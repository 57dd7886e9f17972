package archive

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArchiveNotFound indicates the descriptor points at a missing archive.
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrUnsupportedPlatform is returned by ForPlatform on targets without an
	// extractor.
	ErrUnsupportedPlatform = errors.New("no extractor for this platform")
	// ErrUnsafePath marks an entry whose path escapes the installed tree.
	ErrUnsafePath = errors.New("entry path escapes destination")
)

// CommandError reports a self-extraction subprocess that exited non-zero.
type CommandError struct {
	Path     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("run %s %s: exit status %d", e.Path, strings.Join(e.Args, " "), e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
