package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix roots every topic when the configuration leaves it empty.
const DefaultTopicPrefix = "sigpesq"

// Topics builds SIGPesq topic names under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "sigpesq"}
//	topics.Event("grant", "allocate")
//	// Returns: "sigpesq/events/grant/allocate"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Event returns the topic for a domain event.
//
// Example: sigpesq/events/project/create
func (t Topics) Event(entity, action string) string {
	return fmt.Sprintf("%s/events/%s/%s", t.prefix(), entity, action)
}

// AllEvents returns the wildcard matching every domain event.
func (t Topics) AllEvents() string {
	return t.prefix() + "/events/#"
}

// EntityEvents returns the wildcard matching every action on one entity type.
//
// Example: sigpesq/events/production/+
func (t Topics) EntityEvents(entity string) string {
	return fmt.Sprintf("%s/events/%s/+", t.prefix(), entity)
}

// SystemStatus returns the retained online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// validSegment rejects segments that would change the topic structure.
func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#")
}
