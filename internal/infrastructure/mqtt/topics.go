package mqtt

import "fmt"

// Topic scheme for the bridge.
//
// All entity topics use the flat scheme: stormbridge/{category}/isp/{entity}
// The protocol segment is fixed to "isp" so a site running several bridges
// can share one broker without topic collisions.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "stormbridge"

	// TopicProtocol identifies the device protocol segment.
	TopicProtocol = "isp"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "stormbridge/system"
)

// Entity names published by the bridge. Each maps to one logical control
// surface on the processor.
const (
	EntityPlayer      = "player"
	EntityVolume      = "volume"
	EntitySource      = "source"
	EntitySourceZone2 = "source_zone2"
	EntityPreset      = "preset"
	EntityMute        = "mute"
)

// Topics provides builders for bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState(mqtt.EntityVolume)
//	// Returns: "stormbridge/state/isp/volume"
type Topics struct{}

// EntityState returns the topic for state updates of an entity.
//
// Example: stormbridge/state/isp/volume
func (Topics) EntityState(entity string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, TopicProtocol, entity)
}

// EntityCommand returns the topic for commands to an entity.
//
// Example: stormbridge/command/isp/volume
func (Topics) EntityCommand(entity string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, TopicProtocol, entity)
}

// EntityAck returns the topic for command acknowledgements of an entity.
//
// Example: stormbridge/ack/isp/volume
func (Topics) EntityAck(entity string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, TopicProtocol, entity)
}

// Health returns the topic for bridge health status.
//
// Example: stormbridge/health/isp
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, TopicProtocol)
}

// SystemStatus returns the system status topic carrying the LWT.
//
// Example: stormbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEntityCommands returns a pattern matching commands for every entity.
//
// Pattern: stormbridge/command/isp/+
func (Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, TopicProtocol)
}

// AllEntityStates returns a pattern matching state updates for every entity.
//
// Pattern: stormbridge/state/isp/+
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, TopicProtocol)
}

// AllTopics returns a pattern matching all bridge topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: stormbridge/#
func (Topics) AllTopics() string {
	return "stormbridge/#"
}
