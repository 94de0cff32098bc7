package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"appointment-monitor/models"
)

var csvHeader = []string{
	"check_number", "event_type", "location_id", "location_name",
	"previous_appointment", "new_appointment", "time_difference_hours",
	"weekday", "hour_of_day", "month", "timestamp",
}

// CSVRecorder appends tracked events to a CSV file.
// It is safe for concurrent use.
type CSVRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVRecorder opens (or creates) the CSV file at the given path in append
// mode. The header row is written only when the file is new or empty.
// Intermediate directories are created automatically.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVRecorder{file: f, writer: w}, nil
}

// Record appends one row per event.
func (c *CSVRecorder) Record(_ context.Context, events []models.TrackedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ev := range events {
		if err := c.writer.Write(csvRow(ev)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func csvRow(ev models.TrackedEvent) []string {
	delta := ""
	if ev.TimeDeltaHours != nil {
		delta = strconv.FormatFloat(*ev.TimeDeltaHours, 'f', 2, 64)
	}
	return []string{
		strconv.Itoa(ev.CheckNumber),
		string(ev.Kind),
		ev.LocationID,
		ev.LocationName,
		ev.Previous,
		ev.Current,
		delta,
		ev.Weekday,
		strconv.Itoa(ev.Hour),
		ev.Month,
		ev.ObservedAt.Format(time.RFC3339),
	}
}

// Close flushes and closes the underlying file.
func (c *CSVRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
