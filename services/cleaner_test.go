package services

import (
	"testing"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestCleanerNormalisesWhitespace(t *testing.T) {
	c := NewCleaner(newTestLogger())

	cleaned := c.Clean([]models.LocationSnapshot{
		{ID: " 5 ", DisplayName: "  Boston \n Haymarket ", EarliestAvailable: "Mon Jun 10,  2024,\t10:30 AM "},
	}, nil)

	if len(cleaned) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(cleaned))
	}
	got := cleaned[0]
	if got.ID != "5" {
		t.Errorf("ID: got %q, want %q", got.ID, "5")
	}
	if got.DisplayName != "Boston Haymarket" {
		t.Errorf("DisplayName: got %q", got.DisplayName)
	}
	if got.EarliestAvailable != "Mon Jun 10, 2024, 10:30 AM" {
		t.Errorf("EarliestAvailable: got %q", got.EarliestAvailable)
	}
}

func TestCleanerDropsEmptyID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.LocationSnapshot{
		{ID: "", DisplayName: "No id", EarliestAvailable: "Tue Jul 02, 2024"},
		{ID: "7", DisplayName: "Has id", EarliestAvailable: "Tue Jul 02, 2024"},
	}

	cleaned := c.Clean(raw, nil)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 snapshot after dropping empty id, got %d", len(cleaned))
	}
}

func TestCleanerDeduplicatesID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.LocationSnapshot{
		{ID: "7", EarliestAvailable: "Tue Jul 02, 2024"},
		{ID: "7", EarliestAvailable: "Wed Jul 03, 2024"},
	}

	cleaned := c.Clean(raw, nil)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 snapshot after deduplication, got %d", len(cleaned))
	}
	if cleaned[0].EarliestAvailable != "Tue Jul 02, 2024" {
		t.Errorf("first occurrence should win, got %q", cleaned[0].EarliestAvailable)
	}
}

func TestCleanerKeepsOnlyMonitored(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.LocationSnapshot{
		{ID: "1", EarliestAvailable: models.NoAppointments},
		{ID: "2", EarliestAvailable: models.NoAppointments},
		{ID: "3", EarliestAvailable: models.NoAppointments},
	}

	cleaned := c.Clean(raw, []string{"1", "3"})
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 monitored snapshots, got %d", len(cleaned))
	}
	if cleaned[0].ID != "1" || cleaned[1].ID != "3" {
		t.Errorf("unexpected ids: %q, %q", cleaned[0].ID, cleaned[1].ID)
	}
}

func TestCleanerMonitoredMissingFromScrape(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.LocationSnapshot{
		{ID: "1", EarliestAvailable: models.NoAppointments},
		{ID: "1", EarliestAvailable: "Mon Jun 10, 2024"},
	}

	cleaned := c.Clean(raw, []string{"1", "3", "5"})
	if len(cleaned) != 1 || cleaned[0].ID != "1" {
		t.Fatalf("expected only location 1, got %+v", cleaned)
	}
	if cleaned[0].EarliestAvailable != models.NoAppointments {
		t.Errorf("first duplicate should win, got %q", cleaned[0].EarliestAvailable)
	}
}

func TestCleanerCatalog(t *testing.T) {
	c := NewCleaner(newTestLogger())
	cleaned := c.CleanCatalog([]models.Location{
		{ID: "1", DisplayName: " Boston  "},
		{ID: "1", DisplayName: "Dup"},
		{ID: " ", DisplayName: "Blank"},
	})
	if len(cleaned) != 1 || cleaned[0].DisplayName != "Boston" {
		t.Errorf("unexpected catalog: %+v", cleaned)
	}
}
