// Package mqtt wraps paho.mqtt.golang for the bridge's broker session.
//
// The bridge publishes entity state to controllers and receives their
// commands over a shared broker:
//
//	Automation Controller <-> MQTT Broker <-> stormbridge <-> Processor
//
// The client keeps one session with auto-reconnect, replays subscriptions
// when a session is re-established, and registers a last will so watchers
// can tell a crashed bridge from one that shut down cleanly. Topic layout
// for all bridge traffic lives in topics.go.
package mqtt
