package processor

import "github.com/shopspring/decimal"

// State represents the processor's reported power state.
type State int

// Processor power states as reported by the device.
const (
	StateUnknown State = iota
	StateOff
	StateInitializing
	StateOn
	StateShuttingDown
)

// String returns the lowercase human-readable state name.
func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateInitializing:
		return "initializing"
	case StateOn:
		return "on"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// PoweredUp reports whether the processor is usable for audio control.
// Volume, mute and source selection are only meaningful in these states.
func (s State) PoweredUp() bool {
	return s == StateOn || s == StateInitializing
}

// NamedItem is an id/name pair describing an input or a preset.
type NamedItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Snapshot is an immutable representation of the device's last known state.
//
// The transport builds a fresh Snapshot for every state-changed event and the
// Coordinator replaces its cache wholesale - a Snapshot is never patched
// field by field. Consumers receive a shared reference and must treat it as
// read-only.
//
// Pointer fields are nil until the device has reported a value. Selection IDs
// may reference an entry that no longer exists in Inputs/Presets; consumers
// must treat a dangling ID as "no selection".
type Snapshot struct {
	State   State
	Brand   string
	Model   string
	Inputs  []NamedItem
	Presets []NamedItem

	InputID      *int
	InputZone2ID *int
	PresetID     *int

	// VolumeDB is the device volume in dB, in [-100, 0]. 0 is loudest.
	VolumeDB *decimal.Decimal
	Mute     *bool
}

// HasIdentity reports whether the device has identified itself.
// Views use this as the minimum bar for initialisation.
func (s *Snapshot) HasIdentity() bool {
	return s != nil && s.Brand != "" && s.Model != ""
}

// InputName resolves an input ID to its display name.
func (s *Snapshot) InputName(id int) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, in := range s.Inputs {
		if in.ID == id {
			return in.Name, true
		}
	}
	return "", false
}

// InputIDByName resolves an input display name to its ID.
func (s *Snapshot) InputIDByName(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for _, in := range s.Inputs {
		if in.Name == name {
			return in.ID, true
		}
	}
	return 0, false
}

// PresetName resolves a preset ID to its display name.
func (s *Snapshot) PresetName(id int) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, p := range s.Presets {
		if p.ID == id {
			return p.Name, true
		}
	}
	return "", false
}

// PresetIDByName resolves a preset display name to its ID.
func (s *Snapshot) PresetIDByName(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for _, p := range s.Presets {
		if p.Name == name {
			return p.ID, true
		}
	}
	return 0, false
}
