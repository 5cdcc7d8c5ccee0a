package s3blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileSource lists local data files that are finished and safe to upload.
// *marketdata.Recorder implements it.
type FileSource interface {
	ClosedFiles() ([]string, error)
}

// Archiver uploads closed market data files to object storage and removes
// the local copies after a successful upload. Removal happens only once the
// upload has returned, so a crash mid-archive leaves the file in place for
// the next sweep.
type Archiver struct {
	writer   *Writer
	source   FileSource
	prefix   string
	interval time.Duration
	logger   *slog.Logger
}

// NewArchiver creates an Archiver sweeping the source at the given interval.
func NewArchiver(writer *Writer, source FileSource, prefix string, interval time.Duration, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "marketdata"
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		writer:   writer,
		source:   source,
		prefix:   prefix,
		interval: interval,
		logger:   logger.With(slog.String("component", "s3_archiver")),
	}
}

// Run sweeps on a ticker until ctx is cancelled. A final sweep runs on
// shutdown so the last rotated file is not stranded.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = a.Sweep(sweepCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if n, err := a.Sweep(ctx); err != nil {
				a.logger.Warn("archive sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				a.logger.Info("archived market data files", slog.Int("count", n))
			}
		}
	}
}

// Sweep uploads every closed file and returns the number archived.
func (a *Archiver) Sweep(ctx context.Context) (int, error) {
	files, err := a.source.ClosedFiles()
	if err != nil {
		return 0, fmt.Errorf("s3blob: list closed files: %w", err)
	}

	archived := 0
	for _, path := range files {
		if err := a.archiveFile(ctx, path); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

func (a *Archiver) archiveFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3blob: open %s: %w", path, err)
	}
	defer f.Close()

	key := a.prefix + "/" + filepath.Base(path)
	if err := a.writer.Put(ctx, key, f, "text/csv"); err != nil {
		return fmt.Errorf("s3blob: archive %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("s3blob: remove archived %s: %w", path, err)
	}
	a.logger.Info("archived file", slog.String("key", key))
	return nil
}
