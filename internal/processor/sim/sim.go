// Package sim provides an in-memory processor transport for development
// and demo deployments where no physical device is on the network. It
// applies every command locally and echoes the resulting state back through
// the normal update callback, so the rest of the stack behaves exactly as
// it does against real hardware.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openav/stormbridge/internal/processor"
)

// Config describes the simulated device.
type Config struct {
	// Brand and Model form the device identity. Empty values default to
	// a generic simulated unit.
	Brand string
	Model string

	// Inputs and Presets seed the device's catalogues. Defaults are
	// provided when empty.
	Inputs  []processor.NamedItem
	Presets []processor.NamedItem

	// ConnectFailures makes the first N Connect calls fail, for
	// exercising the retry path.
	ConnectFailures int
}

// Transport is a simulated processor session.
//
// Thread Safety: All methods are safe for concurrent use.
type Transport struct {
	mu sync.Mutex

	cfg             Config
	connectAttempts int
	connected       bool

	state       processor.State
	inputID     int
	inputZone2  int
	presetID    int
	volumeDB    decimal.Decimal
	mute        bool

	onStateUpdated func()
	onDisconnected func()
}

var _ processor.Transport = (*Transport)(nil)

// New creates a simulated transport. Call Connect to bring it up.
func New(cfg Config) *Transport {
	if cfg.Brand == "" {
		cfg.Brand = "StormAudio"
	}
	if cfg.Model == "" {
		cfg.Model = "ISP Simulator"
	}
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []processor.NamedItem{
			{ID: 1, Name: "HDMI 1"},
			{ID: 2, Name: "HDMI 2"},
			{ID: 3, Name: "Streamer"},
		}
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = []processor.NamedItem{
			{ID: 1, Name: "Movie"},
			{ID: 2, Name: "Music"},
		}
	}

	return &Transport{
		cfg:      cfg,
		state:    processor.StateOn,
		inputID:  cfg.Inputs[0].ID,
		presetID: cfg.Presets[0].ID,
		volumeDB: decimal.NewFromInt(-40),
	}
}

// Connect establishes the simulated session. The first ConnectFailures
// calls fail with ErrConnectionFailed.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connectAttempts++
	if t.connectAttempts <= t.cfg.ConnectFailures {
		return fmt.Errorf("simulated dial failure %d: %w",
			t.connectAttempts, processor.ErrConnectionFailed)
	}
	t.connected = true
	return nil
}

// Disconnect tears down the simulated session without firing the
// disconnect callback, matching an orderly shutdown.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	return nil
}

// Drop simulates an unexpected session loss: the connection flag is
// cleared and the disconnect callback fires.
func (t *Transport) Drop() {
	t.mu.Lock()
	t.connected = false
	fn := t.onDisconnected
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Snapshot returns a fresh copy of the simulated device state.
func (t *Transport) Snapshot() *processor.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	inputID := t.inputID
	zone2 := t.inputZone2
	presetID := t.presetID
	vol := t.volumeDB
	mute := t.mute

	snap := &processor.Snapshot{
		State:        t.state,
		Brand:        t.cfg.Brand,
		Model:        t.cfg.Model,
		Inputs:       append([]processor.NamedItem(nil), t.cfg.Inputs...),
		Presets:      append([]processor.NamedItem(nil), t.cfg.Presets...),
		InputID:      &inputID,
		InputZone2ID: &zone2,
		PresetID:     &presetID,
		VolumeDB:     &vol,
		Mute:         &mute,
	}
	return snap
}

// SetOnStateUpdated registers the state change callback.
func (t *Transport) SetOnStateUpdated(fn func()) {
	t.mu.Lock()
	t.onStateUpdated = fn
	t.mu.Unlock()
}

// SetOnDisconnected registers the session loss callback.
func (t *Transport) SetOnDisconnected(fn func()) {
	t.mu.Lock()
	t.onDisconnected = fn
	t.mu.Unlock()
}

// apply mutates state under the lock and fires the update callback,
// mimicking the device echoing the change back.
func (t *Transport) apply(mutate func()) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return fmt.Errorf("simulator: %w", processor.ErrConnectionFailed)
	}
	mutate()
	fn := t.onStateUpdated
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// SetPower switches the simulated unit on or off.
func (t *Transport) SetPower(ctx context.Context, on bool) error {
	return t.apply(func() {
		if on {
			t.state = processor.StateOn
		} else {
			t.state = processor.StateOff
		}
	})
}

// SetInputID selects the main zone input. Unknown IDs are ignored.
func (t *Transport) SetInputID(ctx context.Context, id int) error {
	return t.apply(func() {
		for _, in := range t.cfg.Inputs {
			if in.ID == id {
				t.inputID = id
				return
			}
		}
	})
}

// SetInputZone2ID selects the zone 2 input. ID 0 means no assignment.
func (t *Transport) SetInputZone2ID(ctx context.Context, id int) error {
	return t.apply(func() {
		if id == 0 {
			t.inputZone2 = 0
			return
		}
		for _, in := range t.cfg.Inputs {
			if in.ID == id {
				t.inputZone2 = id
				return
			}
		}
	})
}

// SetVolumeDB sets the main zone volume, clamped to the device's range.
func (t *Transport) SetVolumeDB(ctx context.Context, volumeDB decimal.Decimal) error {
	return t.apply(func() {
		floor := decimal.NewFromInt(-100)
		switch {
		case volumeDB.Cmp(floor) < 0:
			t.volumeDB = floor
		case volumeDB.Cmp(decimal.Zero) > 0:
			t.volumeDB = decimal.Zero
		default:
			t.volumeDB = volumeDB
		}
	})
}

// SetMute sets the main zone mute state.
func (t *Transport) SetMute(ctx context.Context, mute bool) error {
	return t.apply(func() { t.mute = mute })
}

// ToggleMute flips the main zone mute state.
func (t *Transport) ToggleMute(ctx context.Context) error {
	return t.apply(func() { t.mute = !t.mute })
}

// SetPresetID recalls a preset. Unknown IDs are ignored.
func (t *Transport) SetPresetID(ctx context.Context, id int) error {
	return t.apply(func() {
		for _, p := range t.cfg.Presets {
			if p.ID == id {
				t.presetID = id
				return
			}
		}
	})
}
