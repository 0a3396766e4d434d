package processor

import (
	"context"

	"github.com/shopspring/decimal"
)

// Transport is the contract for the component that speaks the device's
// control protocol over the network.
//
// The Coordinator is the only consumer. A Transport implementation must:
//   - fail Connect with an error wrapping ErrConnectionFailed when a session
//     cannot be established (this is what drives the retry loop)
//   - invoke the state-updated callback whenever device state changes; the
//     Coordinator re-queries Snapshot() on each invocation
//   - invoke the disconnected callback exactly once per lost session
//   - build a fresh Snapshot value per state change (never mutate a
//     previously returned one)
//
// Command primitives are forwarded once and not retried here; their errors
// propagate to the caller.
type Transport interface {
	Connect(ctx context.Context) error
	// Disconnect closes the session. Safe to call when not connected.
	Disconnect(ctx context.Context) error

	// Snapshot returns the current device state. Fields may be only
	// partially populated before the first full update.
	Snapshot() *Snapshot

	SetOnStateUpdated(func())
	SetOnDisconnected(func())

	SetPower(ctx context.Context, on bool) error
	SetInputID(ctx context.Context, id int) error
	SetInputZone2ID(ctx context.Context, id int) error
	SetVolumeDB(ctx context.Context, volumeDB decimal.Decimal) error
	SetMute(ctx context.Context, mute bool) error
	ToggleMute(ctx context.Context) error
	SetPresetID(ctx context.Context, id int) error
}
