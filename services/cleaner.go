package services

import (
	"strings"
	"unicode"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// Cleaner normalizes scraped snapshots before they reach the diff engine.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean trims every field, drops entries without an id, drops duplicate ids
// (first one wins) and, when monitored is non-empty, keeps only monitored ids.
func (c *Cleaner) Clean(raw []models.LocationSnapshot, monitored []string) []models.LocationSnapshot {
	var wanted *utils.IDSet
	if len(monitored) > 0 {
		wanted = utils.NewIDSet(monitored...)
	}
	seen := utils.NewIDSet()
	result := make([]models.LocationSnapshot, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping snapshot without id: %q", r.DisplayName)
			continue
		}
		if wanted != nil && !wanted.Contains(id) {
			c.logger.Debug("[cleaner] Skipping unmonitored location %s", id)
			continue
		}
		if !seen.Add(id) {
			c.logger.Debug("[cleaner] Duplicate location skipped: %s", id)
			continue
		}

		result = append(result, models.LocationSnapshot{
			ID:                id,
			DisplayName:       normaliseText(r.DisplayName),
			EarliestAvailable: normaliseText(r.EarliestAvailable),
		})
	}

	if wanted != nil && seen.Size() < wanted.Size() {
		for _, id := range monitored {
			if !seen.Contains(id) {
				c.logger.Warn("[cleaner] Monitored location %s missing from scrape", id)
			}
		}
	}
	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] Cleaned %d → %d snapshots (dropped %d)", len(raw), len(result), dropped)
	}
	return result
}

// CleanCatalog applies the same normalization to catalog entries.
func (c *Cleaner) CleanCatalog(raw []models.Location) []models.Location {
	seen := utils.NewIDSet()
	result := make([]models.Location, 0, len(raw))
	for _, l := range raw {
		id := strings.TrimSpace(l.ID)
		if id == "" || !seen.Add(id) {
			continue
		}
		result = append(result, models.Location{ID: id, DisplayName: normaliseText(l.DisplayName)})
	}
	return result
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
