package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-monitor/models"
)

func sampleEvent() models.TrackedEvent {
	delta := 85.5
	ev := models.NotificationEvent{
		Kind:           models.EventEarlierAppointment,
		LocationID:     "1",
		LocationName:   "Attleboro",
		Previous:       "Fri Jun 14, 2024",
		Current:        "Mon Jun 10, 2024, 10:30 AM",
		TimeDeltaHours: &delta,
		ObservedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return models.NewTrackedEvent(ev, 3)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVRecorderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")

	for i := 0; i < 2; i++ {
		rec, err := NewCSVRecorder(path)
		require.NoError(t, err)
		require.NoError(t, rec.Record(context.Background(), []models.TrackedEvent{sampleEvent()}))
		require.NoError(t, rec.Close())
	}

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, rows[1], rows[2])
}

func TestCSVRecorderRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	rec, err := NewCSVRecorder(path)
	require.NoError(t, err)

	first := sampleEvent()
	first.Kind = models.EventFirstAppointment
	first.TimeDeltaHours = nil
	require.NoError(t, rec.Record(context.Background(), []models.TrackedEvent{sampleEvent(), first}))
	require.NoError(t, rec.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"3", "earlier_appointment", "1", "Attleboro", "Fri Jun 14, 2024", "Mon Jun 10, 2024, 10:30 AM",
		"85.50", "Saturday", "12", "June", "2024-06-01T12:00:00Z",
	}, rows[1])
	assert.Equal(t, "", rows[2][6])
}
