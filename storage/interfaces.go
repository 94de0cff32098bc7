package storage

import (
	"context"

	"appointment-monitor/models"
)

// StateStore persists the last known availability per location.
type StateStore interface {
	LoadState() (models.State, error)
	SaveState(state models.State) error
}

// DirectoryStore persists the location id → name map.
type DirectoryStore interface {
	LoadNames() (map[string]string, error)
	SaveNames(names map[string]string) error
}

// EventRecorder is the interface any event history backend must satisfy.
type EventRecorder interface {
	Record(ctx context.Context, events []models.TrackedEvent) error
	Close() error
}
