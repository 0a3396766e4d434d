package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openav/stormbridge/internal/history"
	"github.com/openav/stormbridge/internal/infrastructure/mqtt"
	"github.com/openav/stormbridge/internal/processor"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid command topic
	// (prefix/command/protocol/entity).
	minTopicParts = 4

	// commandTimeout is the timeout for forwarding commands to the processor.
	commandTimeout = 5 * time.Second

	// historyTimeout is the timeout for history writes.
	historyTimeout = 5 * time.Second
)

var topics mqtt.Topics

// Bridge orchestrates bidirectional translation between the processor and MQTT.
// It handles:
//   - Receiving commands from controllers via MQTT and forwarding to the processor
//   - Projecting processor snapshots into per-entity state topics
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt    MQTTClient
	proc    ProcessorController
	history HistoryStore  // Optional history persistence
	metrics MetricsWriter // Optional time-series metrics
	health  *HealthReporter
	version string

	// Published state per entity. Optimistic entries hold a command's
	// expected outcome until the next processor snapshot replaces them.
	lastState  map[string]map[string]any
	optimistic map[string]bool
	stateMu    sync.Mutex

	// Shutdown coordination
	subID     int64
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the interface for structured logging.
// Compatible with the logging package and easy to mock in tests.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// ProcessorController is the processor-facing interface the bridge drives.
// Satisfied by *processor.Coordinator.
type ProcessorController interface {
	// Connected returns true when the processor link is up.
	Connected() bool

	// Data returns the most recent snapshot, or nil before first connect.
	Data() *processor.Snapshot

	// Subscribe registers a snapshot listener and returns its id.
	// The current snapshot, if any, is delivered immediately.
	Subscribe(fn processor.Subscriber) int64

	// Unsubscribe removes a previously registered listener.
	Unsubscribe(id int64)

	// WaitForReady blocks until the processor has reported its identity.
	WaitForReady(ctx context.Context) error

	SetPower(ctx context.Context, on bool) error
	SetInputID(ctx context.Context, id int) error
	SetInputZone2ID(ctx context.Context, id int) error
	SetVolumeDB(ctx context.Context, volumeDB decimal.Decimal) error
	SetMute(ctx context.Context, mute bool) error
	ToggleMute(ctx context.Context) error
	SetPresetID(ctx context.Context, id int) error
}

// HistoryStore persists entity state changes.
// This is optional - if nil, the bridge operates without history.
type HistoryStore interface {
	// Record stores a state change for an entity.
	Record(ctx context.Context, entity string, state history.State, source string) error
}

// MetricsWriter records bridge metrics to a time-series store.
// This is optional - if nil, the bridge operates without metrics.
type MetricsWriter interface {
	WriteVolume(volumeDB float64, level float64)
	WritePowerState(state string, powered bool)
	WriteConnectivity(connected bool)
	WriteCommand(entity string, ok bool)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Processor is the processor coordinator.
	Processor ProcessorController

	// History is optional state history persistence.
	History HistoryStore

	// Metrics is optional time-series metrics output.
	Metrics MetricsWriter

	// Version is the bridge software version for health messages.
	Version string

	// HealthInterval is how often health status is published.
	// Default: 30 seconds.
	HealthInterval time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// New creates a new bridge instance.
// Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		mqtt:       opts.MQTTClient,
		proc:       opts.Processor,
		history:    opts.History, // May be nil (optional)
		metrics:    opts.Metrics, // May be nil (optional)
		version:    opts.Version,
		lastState:  make(map[string]map[string]any),
		optimistic: make(map[string]bool),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Processor: opts.Processor,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// It waits for the processor to report its identity, subscribes to command
// topics, registers for snapshot updates, and starts health reporting.
//
// Returns an error wrapping processor.ErrNotReady if the processor has not
// reported its identity within the readiness timeout. Callers may retry.
func (b *Bridge) Start(ctx context.Context) error {
	// Publish starting status
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	// Gate on processor identity. Entity views are meaningless until the
	// processor has reported who it is.
	if err := b.proc.WaitForReady(ctx); err != nil {
		return fmt.Errorf("waiting for processor identity: %w", err)
	}

	// Subscribe to command topics
	commandTopic := topics.AllEntityCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	// Register for snapshot updates. The coordinator delivers the current
	// snapshot immediately, which publishes the initial entity states.
	b.subID = b.proc.Subscribe(b.handleSnapshot)

	// Start health reporting
	b.health.Start(ctx)

	// Publish initial healthy status
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started", "entities", len(entityOrder))

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		// Stop receiving snapshot updates
		b.proc.Unsubscribe(b.subID)

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// handleSnapshot processes a snapshot delivered by the coordinator, with
// the connection flag that was paired with it at delivery time. Changed
// entity views are published retained; optimistic values from pending
// commands are replaced by the live state. When the flag reports a lost
// session the republished stale state is recorded as a disconnect.
func (b *Bridge) handleSnapshot(snap *processor.Snapshot, connected bool) {
	if snap == nil {
		return
	}

	views := buildViews(snap, connected)

	b.stateMu.Lock()
	changed := make(map[string]map[string]any)
	for entity, view := range views {
		if !b.optimistic[entity] && reflect.DeepEqual(b.lastState[entity], view) {
			continue // No change for this entity, skip
		}
		b.lastState[entity] = view
		changed[entity] = view
	}
	// Live state supersedes any optimistic command results
	b.optimistic = make(map[string]bool)
	b.stateMu.Unlock()

	source := history.SourceProcessor
	if !connected {
		source = history.SourceDisconnect
	}

	for _, entity := range entityOrder {
		view, ok := changed[entity]
		if !ok {
			continue
		}
		b.publishState(entity, view)
		b.recordHistory(entity, view, source)
	}

	b.writeSnapshotMetrics(snap, connected)
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	messageType := parts[1] // command, etc.
	entity := parts[3]

	switch messageType {
	case "command":
		b.handleCommand(entity, payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", messageType))
	}
}

// handleCommand processes a command message from a controller.
func (b *Bridge) handleCommand(entity string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"entity", entity,
		"command", cmd.Command)

	patch, err := b.executeCommand(entity, cmd)
	if err != nil {
		b.logError("command execution failed", err)
		b.writeCommandMetric(entity, false)
		// Error ack already sent by executeCommand
		return
	}

	b.publishAck(cmd, entity, AckAccepted)
	b.writeCommandMetric(entity, true)

	if len(patch) > 0 {
		b.applyOptimistic(entity, patch)
	}
}

// executeCommand validates a command, forwards it to the processor once, and
// returns the optimistic view patch for the entity. Invalid commands are
// rejected locally and never reach the processor. Error acknowledgments are
// published before returning.
func (b *Bridge) executeCommand(entity string, cmd CommandMessage) (map[string]any, error) {
	// Derive timeout from bridge context so commands are cancelled on shutdown
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	switch entity {
	case mqtt.EntityPlayer:
		return b.executePlayer(ctx, cmd)
	case mqtt.EntityVolume:
		return b.executeVolume(ctx, cmd)
	case mqtt.EntitySource:
		return b.executeSource(ctx, cmd)
	case mqtt.EntitySourceZone2:
		return b.executeSourceZone2(ctx, cmd)
	case mqtt.EntityPreset:
		return b.executePreset(ctx, cmd)
	case mqtt.EntityMute:
		return b.executeMute(ctx, cmd)
	default:
		b.publishAckError(cmd, entity, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown entity: %s", entity))
		return nil, fmt.Errorf("unknown entity: %s", entity)
	}
}

// executePlayer handles on/off commands.
func (b *Bridge) executePlayer(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	var on bool
	switch cmd.Command {
	case "on":
		on = true
	case "off":
		on = false
	default:
		b.publishAckError(cmd, mqtt.EntityPlayer, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return nil, fmt.Errorf("unknown command: %s", cmd.Command)
	}

	if err := b.proc.SetPower(ctx, on); err != nil {
		b.publishAckError(cmd, mqtt.EntityPlayer, ErrCodeDeviceUnreachable,
			fmt.Sprintf("set power failed: %v", err))
		return nil, err
	}

	// The unit takes a while to come up or wind down, so the optimistic view
	// shows the transitional state until the processor reports otherwise.
	state := processor.StateShuttingDown.String()
	if on {
		state = processor.StateInitializing.String()
	}
	return map[string]any{"state": state}, nil
}

// volumeStepLevel is the level delta applied by volume_up and volume_down.
const volumeStepLevel = 0.05

// executeVolume handles set_level, set_db, volume_up and volume_down.
func (b *Bridge) executeVolume(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	var volumeDB decimal.Decimal

	switch cmd.Command {
	case "set_level":
		level, err := b.numberParameter(cmd, mqtt.EntityVolume, "level")
		if err != nil {
			return nil, err
		}
		if level < 0 || level > 1 {
			b.publishAckError(cmd, mqtt.EntityVolume, ErrCodeInvalidParameters,
				fmt.Sprintf("'level' must be 0-1, got %.3f", level))
			return nil, fmt.Errorf("level out of range: %.3f", level)
		}
		volumeDB = processor.LevelToDB(decimal.NewFromFloat(level))

	case "set_db":
		db, err := b.numberParameter(cmd, mqtt.EntityVolume, "db")
		if err != nil {
			return nil, err
		}
		// Clamp to the curve's range rather than reject
		volumeDB = decimal.NewFromFloat(db)
		if volumeDB.LessThan(decimal.NewFromInt(-processor.VolumeRangeDB)) {
			volumeDB = decimal.NewFromInt(-processor.VolumeRangeDB)
		}
		if volumeDB.GreaterThan(decimal.Zero) {
			volumeDB = decimal.Zero
		}

	case "volume_up", "volume_down":
		snap := b.proc.Data()
		if snap == nil || snap.VolumeDB == nil {
			b.publishAckError(cmd, mqtt.EntityVolume, ErrCodeNotReady,
				"volume not yet reported")
			return nil, fmt.Errorf("volume not yet reported")
		}

		step := decimal.NewFromFloat(volumeStepLevel)
		level := processor.RoundLevel(processor.DBToLevel(*snap.VolumeDB))
		if cmd.Command == "volume_up" {
			level = level.Add(step)
		} else {
			level = level.Sub(step)
		}
		if level.LessThan(decimal.Zero) {
			level = decimal.Zero
		}
		if level.GreaterThan(decimal.NewFromInt(1)) {
			level = decimal.NewFromInt(1)
		}
		volumeDB = processor.LevelToDB(level)

	default:
		b.publishAckError(cmd, mqtt.EntityVolume, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return nil, fmt.Errorf("unknown command: %s", cmd.Command)
	}

	if err := b.proc.SetVolumeDB(ctx, volumeDB); err != nil {
		b.publishAckError(cmd, mqtt.EntityVolume, ErrCodeDeviceUnreachable,
			fmt.Sprintf("set volume failed: %v", err))
		return nil, err
	}

	return volumeFields(volumeDB), nil
}

// executeSource handles main zone source selection.
func (b *Bridge) executeSource(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	option, snap, err := b.selectParameter(cmd, mqtt.EntitySource)
	if err != nil {
		return nil, err
	}

	id, ok := snap.InputIDByName(option)
	if !ok {
		b.publishAckError(cmd, mqtt.EntitySource, ErrCodeInvalidParameters,
			fmt.Sprintf("unknown source: %s", option))
		return nil, fmt.Errorf("unknown source: %s", option)
	}

	if err := b.proc.SetInputID(ctx, id); err != nil {
		b.publishAckError(cmd, mqtt.EntitySource, ErrCodeDeviceUnreachable,
			fmt.Sprintf("set source failed: %v", err))
		return nil, err
	}

	return map[string]any{"selected": option}, nil
}

// executeSourceZone2 handles zone 2 source selection. An empty or unknown
// option clears the assignment (input 0 means no zone 2 routing).
func (b *Bridge) executeSourceZone2(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	option, snap, err := b.selectParameter(cmd, mqtt.EntitySourceZone2)
	if err != nil {
		return nil, err
	}

	id := 0
	if option != "" {
		if inputID, ok := snap.InputIDByName(option); ok {
			id = inputID
		} else {
			option = ""
		}
	}

	if err := b.proc.SetInputZone2ID(ctx, id); err != nil {
		b.publishAckError(cmd, mqtt.EntitySourceZone2, ErrCodeDeviceUnreachable,
			fmt.Sprintf("set zone 2 source failed: %v", err))
		return nil, err
	}

	return map[string]any{"selected": option}, nil
}

// executePreset handles preset selection.
func (b *Bridge) executePreset(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	option, snap, err := b.selectParameter(cmd, mqtt.EntityPreset)
	if err != nil {
		return nil, err
	}

	id, ok := snap.PresetIDByName(option)
	if !ok {
		b.publishAckError(cmd, mqtt.EntityPreset, ErrCodeInvalidParameters,
			fmt.Sprintf("unknown preset: %s", option))
		return nil, fmt.Errorf("unknown preset: %s", option)
	}

	if err := b.proc.SetPresetID(ctx, id); err != nil {
		b.publishAckError(cmd, mqtt.EntityPreset, ErrCodeDeviceUnreachable,
			fmt.Sprintf("set preset failed: %v", err))
		return nil, err
	}

	return map[string]any{"selected": option}, nil
}

// executeMute handles mute, unmute, and toggle commands.
func (b *Bridge) executeMute(ctx context.Context, cmd CommandMessage) (map[string]any, error) {
	switch cmd.Command {
	case "mute", "unmute":
		mute := cmd.Command == "mute"
		if err := b.proc.SetMute(ctx, mute); err != nil {
			b.publishAckError(cmd, mqtt.EntityMute, ErrCodeDeviceUnreachable,
				fmt.Sprintf("set mute failed: %v", err))
			return nil, err
		}
		return map[string]any{"muted": mute}, nil

	case "toggle":
		if err := b.proc.ToggleMute(ctx); err != nil {
			b.publishAckError(cmd, mqtt.EntityMute, ErrCodeDeviceUnreachable,
				fmt.Sprintf("toggle mute failed: %v", err))
			return nil, err
		}
		// Flip the last published value if known
		b.stateMu.Lock()
		muted, known := b.lastState[mqtt.EntityMute]["muted"].(bool)
		b.stateMu.Unlock()
		if !known {
			return nil, nil
		}
		return map[string]any{"muted": !muted}, nil

	default:
		b.publishAckError(cmd, mqtt.EntityMute, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return nil, fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

// numberParameter extracts a required numeric parameter, publishing an error
// ack when missing or the wrong type.
func (b *Bridge) numberParameter(cmd CommandMessage, entity, name string) (float64, error) {
	raw, ok := cmd.Parameters[name]
	if !ok {
		b.publishAckError(cmd, entity, ErrCodeInvalidParameters,
			fmt.Sprintf("missing '%s' parameter", name))
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	value, ok := raw.(float64)
	if !ok {
		b.publishAckError(cmd, entity, ErrCodeInvalidParameters,
			fmt.Sprintf("'%s' must be a number", name))
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return value, nil
}

// selectParameter extracts the 'option' parameter for select commands and
// the current snapshot needed to resolve option names to processor IDs.
func (b *Bridge) selectParameter(cmd CommandMessage, entity string) (string, *processor.Snapshot, error) {
	if cmd.Command != "select" {
		b.publishAckError(cmd, entity, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown command: %s", cmd.Command))
		return "", nil, fmt.Errorf("unknown command: %s", cmd.Command)
	}

	raw, ok := cmd.Parameters["option"]
	if !ok {
		b.publishAckError(cmd, entity, ErrCodeInvalidParameters,
			"missing 'option' parameter")
		return "", nil, fmt.Errorf("missing option parameter")
	}
	option, ok := raw.(string)
	if !ok {
		b.publishAckError(cmd, entity, ErrCodeInvalidParameters,
			"'option' must be a string")
		return "", nil, fmt.Errorf("option must be a string")
	}

	snap := b.proc.Data()
	if snap == nil {
		b.publishAckError(cmd, entity, ErrCodeNotReady,
			"processor state not yet loaded")
		return "", nil, fmt.Errorf("processor state not yet loaded")
	}

	return option, snap, nil
}

// applyOptimistic merges a command's expected outcome into the entity's
// published view and republishes it. The optimistic value lives only in the
// bridge's published-state cache and is replaced by the next snapshot; the
// coordinator's snapshot is never modified.
func (b *Bridge) applyOptimistic(entity string, patch map[string]any) {
	b.stateMu.Lock()
	view := make(map[string]any, len(b.lastState[entity])+len(patch))
	for k, v := range b.lastState[entity] {
		view[k] = v
	}
	for k, v := range patch {
		view[k] = v
	}
	b.lastState[entity] = view
	b.optimistic[entity] = true
	b.stateMu.Unlock()

	b.publishState(entity, view)
	b.recordHistory(entity, view, history.SourceCommand)
}

// publishState publishes an entity state message (QoS 1, retained).
func (b *Bridge) publishState(entity string, view map[string]any) {
	msg := NewStateMessage(entity, view)

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	topic := topics.EntityState(entity)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
	}
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, entity string, status AckStatus) {
	ack := NewAckMessage(cmd, entity, status)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	topic := topics.EntityAck(entity)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, entity, code, message string) {
	ack := NewAckError(cmd, entity, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}

	topic := topics.EntityAck(entity)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.logError("command failed",
		fmt.Errorf("code=%s message=%s", code, message))
}

// recordHistory persists an entity state change, if history is configured.
func (b *Bridge) recordHistory(entity string, view map[string]any, source string) {
	if b.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, historyTimeout)
	defer cancel()

	if err := b.history.Record(ctx, entity, history.State(view), source); err != nil {
		b.logDebug("history write skipped",
			"entity", entity,
			"reason", err.Error())
	}
}

// writeSnapshotMetrics records connectivity, power, and volume metrics
// from a snapshot, if metrics are configured.
func (b *Bridge) writeSnapshotMetrics(snap *processor.Snapshot, connected bool) {
	if b.metrics == nil {
		return
	}

	b.metrics.WriteConnectivity(connected)
	b.metrics.WritePowerState(snap.State.String(), snap.State.PoweredUp())

	if snap.VolumeDB != nil {
		level := processor.RoundLevel(processor.DBToLevel(*snap.VolumeDB))
		b.metrics.WriteVolume(snap.VolumeDB.InexactFloat64(), level.InexactFloat64())
	}
}

func (b *Bridge) writeCommandMetric(entity string, ok bool) {
	if b.metrics == nil {
		return
	}
	b.metrics.WriteCommand(entity, ok)
}

// CurrentState returns a copy of the published state for all entities.
// Used by the REST API status endpoint.
func (b *Bridge) CurrentState() map[string]map[string]any {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	out := make(map[string]map[string]any, len(b.lastState))
	for entity, view := range b.lastState {
		copied := make(map[string]any, len(view))
		for k, v := range view {
			copied[k] = v
		}
		out[entity] = copied
	}
	return out
}

// Metrics contains metrics data for the API metrics endpoint.
type Metrics struct {
	Connected bool
	Ready     bool
	Status    string
	Entities  int
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() Metrics {
	connected := b.proc.Connected()
	ready := false
	if snap := b.proc.Data(); snap != nil {
		ready = snap.HasIdentity()
	}

	status := "disconnected"
	if connected {
		status = "healthy"
	}

	return Metrics{
		Connected: connected,
		Ready:     ready,
		Status:    status,
		Entities:  len(entityOrder),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
