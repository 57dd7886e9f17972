// Package install runs archive extraction off the caller's goroutine and
// removes the downloaded archive once the installed tree is complete.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"vmgr/internal/archive"
	"vmgr/internal/logx"
)

// CleanupError reports an install whose tree is usable but whose archive
// could not be removed. Callers decide whether that is fatal.
type CleanupError struct {
	Tree    archive.InstalledTree
	Archive string
	Err     error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove archive %s: %v", e.Archive, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// Installer dispatches a descriptor to the platform extractor.
type Installer struct {
	extractor archive.Extractor
	logger    *log.Logger
	remove    func(string) error
}

// Option customises an Installer.
type Option func(*Installer)

// WithLogger sets the logger used for install diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithRemover replaces the function used to delete the archive.
func WithRemover(remove func(string) error) Option {
	return func(i *Installer) {
		if remove != nil {
			i.remove = remove
		}
	}
}

// New returns an Installer for the given extractor.
func New(extractor archive.Extractor, opts ...Option) *Installer {
	i := &Installer{
		extractor: extractor,
		logger:    logx.Discard(),
		remove:    os.Remove,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type result struct {
	tree archive.InstalledTree
	err  error
}

// Install extracts d and then deletes its archive.
//
// Extraction runs to completion on its own goroutine. Cancelling ctx does not
// interrupt it: the cancellation is logged and Install still waits for the
// outcome. The archive is only removed after a successful extraction, so a
// failed install can be retried from the same file.
func (i *Installer) Install(ctx context.Context, d archive.Descriptor) (archive.InstalledTree, error) {
	if i.extractor == nil {
		return archive.InstalledTree{}, errors.New("no extractor configured")
	}
	if err := d.Validate(); err != nil {
		return archive.InstalledTree{}, fmt.Errorf("invalid descriptor: %w", err)
	}
	if !strings.EqualFold(d.Format, i.extractor.Format()) {
		i.logger.Warn("archive format differs from platform extractor",
			"format", d.Format, "extractor", i.extractor.Format())
	}

	done := make(chan result, 1)
	go func() {
		tree, err := i.extractor.Extract(d)
		done <- result{tree: tree, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		i.logger.Warn("cancellation requested; waiting for extraction to finish", "archive", d.ArchiveFile())
		res = <-done
	}

	if res.err != nil {
		i.logger.Error("extraction failed", "archive", d.ArchivePath(), "err", res.err)
		return archive.InstalledTree{}, fmt.Errorf("extract %s: %w", d.ArchiveFile(), res.err)
	}
	i.logger.Info("extracted", "tree", res.tree.Root, "executable", res.tree.Executable)

	if err := i.remove(d.ArchivePath()); err != nil {
		return res.tree, &CleanupError{Tree: res.tree, Archive: d.ArchivePath(), Err: err}
	}
	i.logger.Debug("removed archive", "archive", d.ArchivePath())
	return res.tree, nil
}
