// Package bridge exposes the AV processor to controllers over MQTT.
//
// It projects processor snapshots into per-entity state topics and forwards
// controller commands back to the processor.
//
// # Architecture
//
// The bridge operates as a translator between the broker and the processor:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   Automation    │   MQTT   │     Bridge      │   transport
//	│   Controller    │◄────────►│   (this pkg)    │◄──────────► Processor
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Wait for the processor to report its identity before exposing entities
//   - Publish retained entity state on snapshot changes
//   - Validate and forward controller commands, acknowledging each one
//   - Reflect commands optimistically until the next snapshot confirms them
//   - Publish health status and record state history
//
// # Entities
//
// The processor is exposed as six entities, each with its own state and
// command topic: player, volume, source, source_zone2, preset, and mute.
//
// Example command, published to stormbridge/command/isp/volume:
//
//	{"id": "cmd-42", "command": "set_level", "parameters": {"level": 0.5}}
//
// The bridge forwards the command once, acknowledges it on
// stormbridge/ack/isp/volume, and republishes the volume state with the
// expected value until the processor confirms it.
//
// # Optimistic State
//
// Command results are merged into the bridge's published view immediately so
// controllers see feedback without waiting for the processor. These values
// live only in the published-state cache: the coordinator's snapshot is
// untouched, and the next real snapshot replaces them.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package bridge
