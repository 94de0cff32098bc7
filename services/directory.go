package services

import (
	"sort"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// LocationDirectory maps location ids to human readable names.
// Names are never removed; unknown ids are added by Merge.
type LocationDirectory struct {
	names  map[string]string
	logger *utils.Logger
}

// NewLocationDirectory wraps a previously persisted id → name map.
func NewLocationDirectory(names map[string]string, logger *utils.Logger) *LocationDirectory {
	d := &LocationDirectory{names: make(map[string]string, len(names)), logger: logger}
	for id, name := range names {
		d.names[id] = name
	}
	return d
}

// Resolve returns the name for id, or "ID-<id>" with a warning when unknown.
func (d *LocationDirectory) Resolve(id string) string {
	if d != nil {
		if name, ok := d.names[id]; ok {
			return name
		}
	}
	fallback := "ID-" + id
	if d != nil {
		d.logger.Warn("[directory] Location ID %s not found in locations map, using fallback: %s", id, fallback)
	}
	return fallback
}

// Lookup returns the name for id without logging.
func (d *LocationDirectory) Lookup(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[id]
	return name, ok
}

// Bootstrap fills an empty directory from the full catalog. It returns false
// and does nothing when the directory already holds names.
func (d *LocationDirectory) Bootstrap(catalog []models.Location) bool {
	if len(d.names) > 0 {
		return false
	}
	for _, loc := range catalog {
		d.names[loc.ID] = loc.DisplayName
	}
	d.logger.Info("[directory] Created locations mapping with %d locations", len(d.names))
	return len(d.names) > 0
}

// Merge adds catalog entries whose id is not yet known and reports whether
// anything was added. Existing names are kept. An empty directory is left
// alone; use Bootstrap for the first population.
func (d *LocationDirectory) Merge(catalog []models.Location) bool {
	if len(d.names) == 0 {
		return false
	}

	changed := false
	for _, loc := range catalog {
		if _, ok := d.names[loc.ID]; ok {
			continue
		}
		d.names[loc.ID] = loc.DisplayName
		d.logger.Info("[directory] Added new location: %s -> %s", loc.ID, loc.DisplayName)
		changed = true
	}
	return changed
}

// Len returns the number of known locations.
func (d *LocationDirectory) Len() int {
	return len(d.names)
}

// Names returns a copy of the id → name map for persistence.
func (d *LocationDirectory) Names() map[string]string {
	out := make(map[string]string, len(d.names))
	for id, name := range d.names {
		out[id] = name
	}
	return out
}

// Locations returns the directory as catalog entries sorted by name.
func (d *LocationDirectory) Locations() []models.Location {
	out := make([]models.Location, 0, len(d.names))
	for id, name := range d.names {
		out = append(out, models.Location{ID: id, DisplayName: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName == out[j].DisplayName {
			return out[i].ID < out[j].ID
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}
