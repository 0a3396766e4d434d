package bridge

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openav/stormbridge/internal/infrastructure/mqtt"
	"github.com/openav/stormbridge/internal/processor"
)

func TestPlayerViewFullSnapshot(t *testing.T) {
	view := playerView(testSnapshot())

	want := map[string]any{
		"state":        "on",
		"brand":        "StormAudio",
		"model":        "ISP Elite 16",
		"source":       "HDMI 1",
		"volume_level": 0.5,
		"muted":        false,
	}
	if !reflect.DeepEqual(view, want) {
		t.Errorf("playerView = %v, want %v", view, want)
	}
}

func TestPlayerViewPartialSnapshot(t *testing.T) {
	// Early in loading only identity and power state are known
	snap := &processor.Snapshot{
		State: processor.StateInitializing,
		Brand: "StormAudio",
		Model: "ISP MK2",
	}
	view := playerView(snap)

	if view["state"] != "initializing" {
		t.Errorf("state = %v, want initializing", view["state"])
	}
	if _, ok := view["volume_level"]; ok {
		t.Error("volume_level present before volume reported")
	}
	if _, ok := view["source"]; ok {
		t.Error("source present before input reported")
	}
}

func TestVolumeView(t *testing.T) {
	snap := testSnapshot()
	view := volumeView(snap)

	want := map[string]any{
		"level":   0.5,
		"percent": 50,
		"db":      -30.0,
	}
	if !reflect.DeepEqual(view, want) {
		t.Errorf("volumeView = %v, want %v", view, want)
	}

	snap.VolumeDB = nil
	if view := volumeView(snap); len(view) != 0 {
		t.Errorf("volumeView without volume = %v, want empty", view)
	}
}

func TestSourceZone2ViewBlank(t *testing.T) {
	// Zone 2 assignment 0 means nothing is routed
	snap := testSnapshot()
	view := sourceZone2View(snap)
	if view["selected"] != "" {
		t.Errorf("selected = %v, want empty", view["selected"])
	}

	zone2 := 3
	snap.InputZone2ID = &zone2
	view = sourceZone2View(snap)
	if view["selected"] != "Streamer" {
		t.Errorf("selected = %v, want Streamer", view["selected"])
	}
}

func TestPresetView(t *testing.T) {
	view := presetView(testSnapshot())
	if view["selected"] != "Movie" {
		t.Errorf("selected = %v, want Movie", view["selected"])
	}
	options, ok := view["options"].([]string)
	if !ok || len(options) != 2 {
		t.Fatalf("options = %v, want 2 presets", view["options"])
	}
}

func TestBuildViewsCoversAllEntities(t *testing.T) {
	views := buildViews(testSnapshot(), true)
	for _, entity := range entityOrder {
		if _, ok := views[entity]; !ok {
			t.Errorf("buildViews missing entity %s", entity)
		}
		if views[entity]["available"] != true {
			t.Errorf("%s available = %v, want true", entity, views[entity]["available"])
		}
	}
	if len(views) != len(entityOrder) {
		t.Errorf("buildViews has %d entities, want %d", len(views), len(entityOrder))
	}
	if views[mqtt.EntityMute]["muted"] != false {
		t.Errorf("mute view = %v, want muted false", views[mqtt.EntityMute])
	}
}

func TestBuildViewsAvailability(t *testing.T) {
	// Control entities go unavailable when disconnected or powered down
	views := buildViews(testSnapshot(), false)
	if views[mqtt.EntityPlayer]["available"] != false {
		t.Error("player should be unavailable when disconnected")
	}
	if views[mqtt.EntityVolume]["available"] != false {
		t.Error("volume should be unavailable when disconnected")
	}

	snap := testSnapshot()
	snap.State = processor.StateOff
	views = buildViews(snap, true)
	if views[mqtt.EntityPlayer]["available"] != true {
		t.Error("player should stay available while powered off")
	}
	if views[mqtt.EntityVolume]["available"] != false {
		t.Error("volume should be unavailable while powered off")
	}
	if views[mqtt.EntityPreset]["available"] != false {
		t.Error("preset should be unavailable while powered off")
	}
}

func TestVolumeFieldsMatchesCurve(t *testing.T) {
	// -15 dB sits at level 0.75 on the curve
	fields := volumeFields(decimal.NewFromInt(-15))
	if fields["level"] != 0.75 {
		t.Errorf("level = %v, want 0.75", fields["level"])
	}
	if fields["percent"] != 75 {
		t.Errorf("percent = %v, want 75", fields["percent"])
	}
}
