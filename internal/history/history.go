// Package history provides local persistence of entity state changes.
//
// Every state update published by the bridge is also appended to a SQLite
// table, giving installers an audit trail that survives broker restarts
// and works when the time-series database is disabled.
package history

import (
	"context"
	"time"
)

// History source values.
const (
	// SourceProcessor marks entries recorded from processor state updates.
	SourceProcessor = "processor"

	// SourceCommand marks entries recorded when a command was forwarded.
	SourceCommand = "command"

	// SourceDisconnect marks entries recorded when the session dropped.
	SourceDisconnect = "disconnect"
)

// State is the JSON document persisted for one entity state.
type State map[string]any

// Entry represents a single entity state change record.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// Entity is the entity name (player, volume, source, ...).
	Entity string `json:"entity"`

	// State is the JSON snapshot of the entity state.
	State State `json:"state"`

	// Source identifies how the change was recorded (processor, command, disconnect).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the state change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves entity state change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record appends a state change for an entity.
	Record(ctx context.Context, entity string, state State, source string) error

	// Recent returns recent state changes for an entity, newest first.
	// The limit may be clamped by the implementation.
	Recent(ctx context.Context, entity string, limit int) ([]Entry, error)
}
