package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openav/stormbridge/internal/processor"
)

func TestConnectFailures(t *testing.T) {
	tr := New(Config{ConnectFailures: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := tr.Connect(ctx); !errors.Is(err, processor.ErrConnectionFailed) {
			t.Fatalf("attempt %d: expected ErrConnectionFailed, got %v", i+1, err)
		}
	}
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
}

func TestSnapshotIdentityAndDefaults(t *testing.T) {
	tr := New(Config{})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	snap := tr.Snapshot()
	if !snap.HasIdentity() {
		t.Error("simulated device should report an identity")
	}
	if len(snap.Inputs) == 0 || len(snap.Presets) == 0 {
		t.Error("default catalogues missing")
	}
	if snap.VolumeDB == nil || !snap.VolumeDB.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("default volume = %v, want -40", snap.VolumeDB)
	}
}

func TestCommandsEchoStateUpdates(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	updates := 0
	tr.SetOnStateUpdated(func() { updates++ })

	if err := tr.SetVolumeDB(ctx, decimal.RequireFromString("-25.5")); err != nil {
		t.Fatalf("SetVolumeDB: %v", err)
	}
	if err := tr.SetMute(ctx, true); err != nil {
		t.Fatalf("SetMute: %v", err)
	}
	if err := tr.ToggleMute(ctx); err != nil {
		t.Fatalf("ToggleMute: %v", err)
	}

	if updates != 3 {
		t.Errorf("state update callbacks = %d, want 3", updates)
	}

	snap := tr.Snapshot()
	if !snap.VolumeDB.Equal(decimal.RequireFromString("-25.5")) {
		t.Errorf("volume = %s, want -25.5", snap.VolumeDB)
	}
	if *snap.Mute {
		t.Error("mute should be false after set+toggle")
	}
}

func TestVolumeClampedToDeviceRange(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := tr.SetVolumeDB(ctx, decimal.NewFromInt(-200)); err != nil {
		t.Fatalf("SetVolumeDB: %v", err)
	}
	if got := tr.Snapshot().VolumeDB; !got.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("volume = %s, want clamp to -100", got)
	}

	if err := tr.SetVolumeDB(ctx, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("SetVolumeDB: %v", err)
	}
	if got := tr.Snapshot().VolumeDB; !got.Equal(decimal.Zero) {
		t.Errorf("volume = %s, want clamp to 0", got)
	}
}

func TestZone2BlankAssignment(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := tr.SetInputZone2ID(ctx, 2); err != nil {
		t.Fatalf("SetInputZone2ID: %v", err)
	}
	if got := *tr.Snapshot().InputZone2ID; got != 2 {
		t.Errorf("zone 2 input = %d, want 2", got)
	}

	if err := tr.SetInputZone2ID(ctx, 0); err != nil {
		t.Fatalf("SetInputZone2ID: %v", err)
	}
	if got := *tr.Snapshot().InputZone2ID; got != 0 {
		t.Errorf("zone 2 input = %d, want 0 (none)", got)
	}
}

func TestCommandsFailWhenDisconnected(t *testing.T) {
	tr := New(Config{})
	if err := tr.SetMute(context.Background(), true); !errors.Is(err, processor.ErrConnectionFailed) {
		t.Errorf("expected ErrConnectionFailed before Connect, got %v", err)
	}
}

func TestDropFiresDisconnectCallback(t *testing.T) {
	tr := New(Config{})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	dropped := false
	tr.SetOnDisconnected(func() { dropped = true })
	tr.Drop()

	if !dropped {
		t.Error("disconnect callback not fired")
	}
}
