// Package marketdata records top-of-book history to daily CSV files for
// offline analysis. Files rotate at UTC midnight; closed files are picked up
// by the blob archiver.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var header = []string{"timestamp", "instrument_id", "venue", "best_bid", "best_bid_size", "best_ask", "best_ask_size"}

// Recorder appends one CSV row per top-of-book change, one file per UTC day.
type Recorder struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	day     string
	file    *os.File
	writer  *csv.Writer
	written int64
}

// NewRecorder creates a recorder writing under dir, creating it if needed.
func NewRecorder(dir string, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("marketdata: create dir %s: %w", dir, err)
	}
	return &Recorder{
		dir:    dir,
		logger: logger.With(slog.String("component", "marketdata_recorder")),
	}, nil
}

func fileName(day string) string { return "tob_" + day + ".csv" }

// Record appends one row for the instrument's current top of book.
func (r *Recorder) Record(tob domain.TopOfBook, venue domain.Venue) error {
	ts := tob.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rotateLocked(ts.Format("2006-01-02")); err != nil {
		return err
	}

	row := []string{
		strconv.FormatInt(ts.UnixMilli(), 10),
		tob.InstrumentID,
		string(venue),
		"", "", "", "",
	}
	if tob.BestBid != nil {
		row[3] = tob.BestBid.Price.String()
		row[4] = tob.BestBid.Size.String()
	}
	if tob.BestAsk != nil {
		row[5] = tob.BestAsk.Price.String()
		row[6] = tob.BestAsk.Size.String()
	}

	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("marketdata: write row: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("marketdata: flush: %w", err)
	}
	r.written++
	return nil
}

// rotateLocked opens the file for day, closing the previous day's file first.
func (r *Recorder) rotateLocked(day string) error {
	if r.day == day && r.file != nil {
		return nil
	}
	if r.file != nil {
		r.writer.Flush()
		if err := r.file.Close(); err != nil {
			r.logger.Warn("close rotated file", slog.String("error", err.Error()))
		}
		r.logger.Info("rotated market data file",
			slog.String("day", r.day),
			slog.Int64("rows", r.written))
		r.file = nil
		r.written = 0
	}

	path := filepath.Join(r.dir, fileName(day))
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("marketdata: open %s: %w", path, err)
	}

	r.day = day
	r.file = f
	r.writer = csv.NewWriter(f)
	if fresh {
		if err := r.writer.Write(header); err != nil {
			return fmt.Errorf("marketdata: write header: %w", err)
		}
		r.writer.Flush()
	}
	return nil
}

// ClosedFiles returns the paths of data files for days before the current
// one, ready for archival.
func (r *Recorder) ClosedFiles() ([]string, error) {
	r.mu.Lock()
	current := r.day
	r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("marketdata: read dir: %w", err)
	}

	var closed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".csv" {
			continue
		}
		if current != "" && name == fileName(current) {
			continue
		}
		closed = append(closed, filepath.Join(r.dir, name))
	}
	return closed, nil
}

// Close flushes and closes the current file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	r.writer.Flush()
	err := r.file.Close()
	r.file = nil
	return err
}
