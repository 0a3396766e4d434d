package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Default timing for connection retry and the readiness gate.
const (
	// DefaultReconnectInterval is the pause between failed connection attempts.
	DefaultReconnectInterval = 2 * time.Second

	// DefaultReadyPollInterval is how often WaitForReady re-checks the snapshot.
	DefaultReadyPollInterval = 1 * time.Second

	// DefaultReadyTimeout is how long WaitForReady waits for the processor
	// to report its identity before giving up.
	DefaultReadyTimeout = 2 * time.Second
)

// ConnState describes the coordinator's connection lifecycle.
type ConnState int

const (
	// ConnIdle means Start has not been called yet.
	ConnIdle ConnState = iota

	// ConnConnecting means the retry loop is attempting to reach the processor.
	ConnConnecting

	// ConnConnected means the transport session is established.
	ConnConnected

	// ConnStopped means Stop was called. Start may be called again.
	ConnStopped
)

// String returns a human-readable connection state name.
func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Subscriber receives snapshot updates together with the connection flag
// that was current when the update was produced. The pair is captured under
// one lock, so a subscriber never sees a snapshot with a flag from a later
// lifecycle event. Callbacks are invoked sequentially in subscription order;
// a slow subscriber delays the ones after it.
type Subscriber func(snap *Snapshot, connected bool)

// Options holds configuration for creating a coordinator.
type Options struct {
	// Transport is the processor session implementation.
	Transport Transport

	// ReconnectInterval overrides the pause between failed connection
	// attempts. Zero means DefaultReconnectInterval.
	ReconnectInterval time.Duration

	// ReadyPollInterval overrides the WaitForReady poll cadence.
	// Zero means DefaultReadyPollInterval.
	ReadyPollInterval time.Duration

	// ReadyTimeout overrides the WaitForReady deadline.
	// Zero means DefaultReadyTimeout.
	ReadyTimeout time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// Coordinator owns the connection to the processor and the shared state
// snapshot. It keeps retrying until a session is established, re-enters the
// retry loop whenever the session drops, and fans out snapshot updates to
// subscribers in a stable order.
//
// The cached snapshot survives disconnects so consumers can keep rendering
// the last known state while the processor is unreachable.
//
// Thread Safety: All methods are safe for concurrent use.
type Coordinator struct {
	transport Transport

	reconnectInterval time.Duration
	readyPollInterval time.Duration
	readyTimeout      time.Duration

	// Connection lifecycle
	mu         sync.RWMutex
	connState  ConnState
	snapshot   *Snapshot
	loopCtx    context.Context
	loopCancel context.CancelFunc
	wg         sync.WaitGroup

	// Subscriber registry. notifyMu also serialises delivery so every
	// subscriber observes updates in the same order.
	notifyMu    sync.Mutex
	subscribers map[int64]Subscriber
	subOrder    []int64
	nextSubID   int64

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// NewCoordinator creates a coordinator for the given transport.
// Call Start() to begin connecting.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("create coordinator: %w", ErrNoTransport)
	}

	c := &Coordinator{
		transport:         opts.Transport,
		reconnectInterval: opts.ReconnectInterval,
		readyPollInterval: opts.ReadyPollInterval,
		readyTimeout:      opts.ReadyTimeout,
		subscribers:       make(map[int64]Subscriber),
		logger:            opts.Logger,
	}
	if c.reconnectInterval <= 0 {
		c.reconnectInterval = DefaultReconnectInterval
	}
	if c.readyPollInterval <= 0 {
		c.readyPollInterval = DefaultReadyPollInterval
	}
	if c.readyTimeout <= 0 {
		c.readyTimeout = DefaultReadyTimeout
	}

	return c, nil
}

// SetLogger sets or replaces the logger.
func (c *Coordinator) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (c *Coordinator) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (c *Coordinator) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// Start launches the connection loop. It returns immediately; the loop
// retries indefinitely until a session is established or Stop is called.
// Calling Start while a loop is already running is a no-op.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loopCancel != nil {
		return
	}

	c.transport.SetOnStateUpdated(c.handleStateUpdated)
	c.transport.SetOnDisconnected(c.handleDisconnected)

	ctx, cancel := context.WithCancel(context.Background())
	c.loopCtx = ctx
	c.loopCancel = cancel
	c.connState = ConnConnecting

	c.wg.Add(1)
	go c.connectLoop(ctx)
}

// Stop cancels the connection loop, waits for it to exit and closes the
// transport session. The coordinator can be started again afterwards.
// The cached snapshot is retained.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.loopCancel
	c.loopCancel = nil
	c.loopCtx = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()

	err := c.transport.Disconnect(ctx)

	c.mu.Lock()
	c.connState = ConnStopped
	c.mu.Unlock()

	c.logInfo("coordinator stopped")
	return err
}

// connectLoop attempts to connect until it succeeds or ctx is cancelled.
// On failure it waits reconnectInterval between attempts.
func (c *Coordinator) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	attempt := 0
	for {
		attempt++
		err := c.transport.Connect(ctx)
		if err == nil {
			snap := c.transport.Snapshot()

			c.mu.Lock()
			c.connState = ConnConnected
			c.snapshot = snap
			c.mu.Unlock()

			c.logInfo("processor connected", "attempts", attempt)
			c.notify(snap, true)
			return
		}

		if ctx.Err() != nil {
			return
		}

		c.logWarn("connection attempt failed",
			"attempt", attempt,
			"retry_in", c.reconnectInterval,
			"error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectInterval):
		}
	}
}

// handleStateUpdated is invoked by the transport after it has applied an
// inbound state change. It refreshes the cached snapshot and fans it out.
func (c *Coordinator) handleStateUpdated() {
	snap := c.transport.Snapshot()

	c.mu.Lock()
	c.snapshot = snap
	connected := c.connState == ConnConnected
	c.mu.Unlock()

	c.notify(snap, connected)
}

// handleDisconnected is invoked by the transport when the session drops.
// The cached snapshot is kept and re-published so consumers can render the
// last known state, then the retry loop is relaunched.
func (c *Coordinator) handleDisconnected() {
	c.mu.Lock()
	ctx := c.loopCtx
	if ctx == nil || ctx.Err() != nil {
		// Stop is in progress; do not relaunch.
		c.mu.Unlock()
		return
	}
	if c.connState != ConnConnected {
		// A retry loop is already running; a duplicate disconnect callback
		// must not spawn a second one.
		c.mu.Unlock()
		return
	}
	c.connState = ConnConnecting
	snap := c.snapshot
	c.wg.Add(1)
	c.mu.Unlock()

	c.logWarn("processor disconnected, reconnecting")
	c.notify(snap, false)

	go c.connectLoop(ctx)
}

// Connected reports whether a transport session is currently established.
func (c *Coordinator) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connState == ConnConnected
}

// State returns the current connection lifecycle state.
func (c *Coordinator) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connState
}

// Data returns the most recent snapshot, or nil if no session has been
// established yet. The snapshot may be stale while disconnected.
func (c *Coordinator) Data() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe registers a callback for snapshot updates and returns a handle
// for Unsubscribe. If a snapshot is already cached the callback is invoked
// with it immediately, before any later update can be delivered.
func (c *Coordinator) Subscribe(fn Subscriber) int64 {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers[id] = fn
	c.subOrder = append(c.subOrder, id)

	c.mu.RLock()
	snap := c.snapshot
	connected := c.connState == ConnConnected
	c.mu.RUnlock()

	if snap != nil {
		fn(snap, connected)
	}
	return id
}

// Unsubscribe removes a previously registered callback.
// Unknown handles are ignored.
func (c *Coordinator) Unsubscribe(id int64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if _, ok := c.subscribers[id]; !ok {
		return
	}
	delete(c.subscribers, id)
	for i, sid := range c.subOrder {
		if sid == id {
			c.subOrder = append(c.subOrder[:i], c.subOrder[i+1:]...)
			break
		}
	}
}

// notify delivers a snapshot and its paired connection flag to all
// subscribers in subscription order. Delivery is serialised under notifyMu
// so concurrent updates cannot interleave across subscribers.
func (c *Coordinator) notify(snap *Snapshot, connected bool) {
	if snap == nil {
		return
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	for _, id := range c.subOrder {
		if fn, ok := c.subscribers[id]; ok {
			fn(snap, connected)
		}
	}
}

// WaitForReady blocks until the processor has reported its identity
// (brand and model), polling the cached snapshot. It returns ErrNotReady
// if the identity has not arrived within the configured timeout, or the
// context error if ctx is cancelled first.
//
// A session that is merely connected is not ready: the initial state burst
// may still be in flight.
func (c *Coordinator) WaitForReady(ctx context.Context) error {
	if c.ready() {
		return nil
	}

	timeout := time.NewTimer(c.readyTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(c.readyPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if c.ready() {
				return nil
			}
		case <-timeout.C:
			// One final check: the identity may have arrived between
			// the last poll and the deadline.
			if c.ready() {
				return nil
			}
			return fmt.Errorf("processor identity not reported within %s: %w",
				c.readyTimeout, ErrNotReady)
		}
	}
}

// ready reports whether a session is established and the snapshot carries
// the processor's identity.
func (c *Coordinator) ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connState == ConnConnected && c.snapshot != nil && c.snapshot.HasIdentity()
}

// Command pass-throughs. Each forwards to the transport exactly once; the
// transport's error, if any, is returned to the caller unchanged. Failed
// commands are not retried and never touch the cached snapshot.

// SetPower requests the processor power on or off.
func (c *Coordinator) SetPower(ctx context.Context, on bool) error {
	return c.transport.SetPower(ctx, on)
}

// SetInputID selects the active input of the main zone.
func (c *Coordinator) SetInputID(ctx context.Context, id int) error {
	return c.transport.SetInputID(ctx, id)
}

// SetInputZone2ID selects the active input of zone 2.
func (c *Coordinator) SetInputZone2ID(ctx context.Context, id int) error {
	return c.transport.SetInputZone2ID(ctx, id)
}

// SetVolumeDB sets the main zone volume in decibels.
func (c *Coordinator) SetVolumeDB(ctx context.Context, volumeDB decimal.Decimal) error {
	return c.transport.SetVolumeDB(ctx, volumeDB)
}

// SetMute sets the main zone mute state.
func (c *Coordinator) SetMute(ctx context.Context, mute bool) error {
	return c.transport.SetMute(ctx, mute)
}

// ToggleMute flips the main zone mute state.
func (c *Coordinator) ToggleMute(ctx context.Context) error {
	return c.transport.ToggleMute(ctx)
}

// SetPresetID recalls a stored preset.
func (c *Coordinator) SetPresetID(ctx context.Context, id int) error {
	return c.transport.SetPresetID(ctx, id)
}
