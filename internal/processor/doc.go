// Package processor contains the connection and state-synchronisation engine
// for a networked audio/video processor.
//
// The Coordinator owns the single persistent control session to the device:
// it retries failed connections indefinitely, caches the last known device
// snapshot, fans snapshot changes out to subscribers, gates subscriber
// startup until initial data exists, and forwards outbound commands to the
// transport. The wire-level transport itself is an external collaborator
// described by the Transport interface; see the sim subpackage for an
// in-process implementation.
//
// Volume arithmetic uses fixed-precision decimals throughout. The device
// speaks decibels; UIs speak a normalised 0..1 level. LevelToDB and
// DBToLevel convert between the two over a 60 dB usable range.
package processor
