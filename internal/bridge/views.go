package bridge

import (
	"github.com/shopspring/decimal"

	"github.com/openav/stormbridge/internal/infrastructure/mqtt"
	"github.com/openav/stormbridge/internal/processor"
)

// entityOrder fixes the publish order so state updates always appear on
// the broker in the same sequence.
var entityOrder = []string{
	mqtt.EntityPlayer,
	mqtt.EntityVolume,
	mqtt.EntitySource,
	mqtt.EntitySourceZone2,
	mqtt.EntityPreset,
	mqtt.EntityMute,
}

// buildViews projects a processor snapshot into the per-entity state views
// the bridge publishes. Fields the processor has not reported yet are
// omitted rather than published with zero values.
//
// The player is available whenever the link is up; the control entities
// additionally require the processor to be powered, since commands to a
// powered-down unit are refused.
func buildViews(snap *processor.Snapshot, connected bool) map[string]map[string]any {
	controllable := connected && (snap.State == processor.StateOn || snap.State == processor.StateInitializing)

	views := map[string]map[string]any{
		mqtt.EntityPlayer:      playerView(snap),
		mqtt.EntityVolume:      volumeView(snap),
		mqtt.EntitySource:      sourceView(snap),
		mqtt.EntitySourceZone2: sourceZone2View(snap),
		mqtt.EntityPreset:      presetView(snap),
		mqtt.EntityMute:        muteView(snap),
	}

	views[mqtt.EntityPlayer]["available"] = connected
	for _, entity := range entityOrder[1:] {
		views[entity]["available"] = controllable
	}

	return views
}

// playerView summarises the whole processor for media-player style consumers.
func playerView(snap *processor.Snapshot) map[string]any {
	view := map[string]any{
		"state": snap.State.String(),
		"brand": snap.Brand,
		"model": snap.Model,
	}

	if snap.InputID != nil {
		if name, ok := snap.InputName(*snap.InputID); ok {
			view["source"] = name
		}
	}
	if snap.VolumeDB != nil {
		level := processor.RoundLevel(processor.DBToLevel(*snap.VolumeDB))
		view["volume_level"] = level.InexactFloat64()
	}
	if snap.Mute != nil {
		view["muted"] = *snap.Mute
	}

	return view
}

func volumeView(snap *processor.Snapshot) map[string]any {
	if snap.VolumeDB == nil {
		return map[string]any{}
	}
	return volumeFields(*snap.VolumeDB)
}

// volumeFields builds the level/percent/db representation of a volume.
// Shared by the snapshot view and the optimistic patch after a volume
// command, so both produce identical maps for the same value.
func volumeFields(volumeDB decimal.Decimal) map[string]any {
	level := processor.RoundLevel(processor.DBToLevel(volumeDB))
	return map[string]any{
		"level":   level.InexactFloat64(),
		"percent": processor.LevelToPercent(level),
		"db":      volumeDB.InexactFloat64(),
	}
}

func sourceView(snap *processor.Snapshot) map[string]any {
	selected := ""
	if snap.InputID != nil {
		if name, ok := snap.InputName(*snap.InputID); ok {
			selected = name
		}
	}
	return map[string]any{
		"selected": selected,
		"options":  inputNames(snap),
	}
}

// sourceZone2View reports the zone 2 input assignment. An assignment of
// input 0 means no input is routed to zone 2, shown as an empty selection.
func sourceZone2View(snap *processor.Snapshot) map[string]any {
	selected := ""
	if snap.InputZone2ID != nil && *snap.InputZone2ID != 0 {
		if name, ok := snap.InputName(*snap.InputZone2ID); ok {
			selected = name
		}
	}
	return map[string]any{
		"selected": selected,
		"options":  inputNames(snap),
	}
}

func presetView(snap *processor.Snapshot) map[string]any {
	selected := ""
	if snap.PresetID != nil {
		if name, ok := snap.PresetName(*snap.PresetID); ok {
			selected = name
		}
	}
	options := make([]string, 0, len(snap.Presets))
	for _, p := range snap.Presets {
		options = append(options, p.Name)
	}
	return map[string]any{
		"selected": selected,
		"options":  options,
	}
}

func muteView(snap *processor.Snapshot) map[string]any {
	if snap.Mute == nil {
		return map[string]any{}
	}
	return map[string]any{"muted": *snap.Mute}
}

func inputNames(snap *processor.Snapshot) []string {
	names := make([]string, 0, len(snap.Inputs))
	for _, in := range snap.Inputs {
		names = append(names, in.Name)
	}
	return names
}
