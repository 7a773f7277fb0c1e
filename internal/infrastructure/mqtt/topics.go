package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the emberwatt MQTT namespace.
//
// The gateway publishes decoded readings under rx/ and accepts listener
// settings under config/; system/ carries gateway status.
const (
	// TopicPrefix is the base for all gateway topics.
	TopicPrefix = "emberwatt"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "emberwatt/system"
)

// Topics provides builders for emberwatt MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	rxTopic := topics.NodeRX(10)
//	// Returns: "emberwatt/rx/10"
type Topics struct{}

// NodeRX returns the topic a node's decoded readings are published on.
//
// Example: emberwatt/rx/10
func (Topics) NodeRX(node int) string {
	return fmt.Sprintf("%s/rx/%d", TopicPrefix, node)
}

// ListenerConfig returns the topic carrying settings for one listener.
// The payload is a JSON object of setting name to string value, handed to
// the listener's Set().
//
// Example: emberwatt/config/rfm
func (Topics) ListenerConfig(name string) string {
	return fmt.Sprintf("%s/config/%s", TopicPrefix, name)
}

// AllListenerConfigs returns the wildcard subscription covering every
// listener's config topic.
func (Topics) AllListenerConfigs() string {
	return TopicPrefix + "/config/+"
}

// SystemStatus returns the gateway status topic (online/offline, LWT).
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ListenerFromConfigTopic extracts the listener name from a config topic.
// Reports false for topics outside the config namespace.
func ListenerFromConfigTopic(topic string) (string, bool) {
	prefix := TopicPrefix + "/config/"
	name, ok := strings.CutPrefix(topic, prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
