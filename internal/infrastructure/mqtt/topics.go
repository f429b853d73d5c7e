package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the gateway's MQTT output.
//
// Device topics use the scheme: inode/device/{address}/{suffix}
// where {address} is the device MAC in lowercase hex without separators.
const (
	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "inode/device"

	// TopicPrefixGateway is the base for gateway-level topics.
	TopicPrefixGateway = "inode/gateway"
)

// Topics provides builders for the gateway's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("D0:F0:18:00:00:01")
//	// Returns: "inode/device/d0f018000001/state"
type Topics struct{}

// DeviceState returns the topic for a device's decoded state.
//
// Example: inode/device/d0f018000001/state
func (Topics) DeviceState(mac string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevice, topicAddress(mac))
}

// DeviceAvailability returns the topic for a device's availability flag.
//
// Example: inode/device/d0f018000001/availability
func (Topics) DeviceAvailability(mac string) string {
	return fmt.Sprintf("%s/%s/availability", TopicPrefixDevice, topicAddress(mac))
}

// GatewayStatus returns the gateway status topic, used for the online
// message and the Last Will.
//
// Example: inode/gateway/status
func (Topics) GatewayStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixGateway)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: inode/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDevice)
}

// AllDeviceAvailability returns a pattern matching every availability topic.
//
// Pattern: inode/device/+/availability
func (Topics) AllDeviceAvailability() string {
	return fmt.Sprintf("%s/+/availability", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all gateway traffic.
// Use with caution, this receives everything.
//
// Pattern: inode/#
func (Topics) AllTopics() string {
	return "inode/#"
}

// topicAddress flattens a MAC address into the topic-safe form:
// lowercase hex with the separators removed.
func topicAddress(mac string) string {
	mac = strings.ToLower(mac)
	mac = strings.ReplaceAll(mac, ":", "")
	return strings.ReplaceAll(mac, "-", "")
}
