package mqtt

import "fmt"

// Topic prefixes for the Region Core MQTT hierarchy.
//
// Change topics use the flat scheme: regioncore/changed/{resource_path},
// where resource_path is the store's path string ("regions", "regions/42",
// "region_bounds/7").
const (
	// TopicPrefix is the base for all Region Core topics.
	TopicPrefix = "regioncore"

	// TopicPrefixChanged is the base for change-notification topics.
	TopicPrefixChanged = "regioncore/changed"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "regioncore/system"
)

// Topics provides builders for Region Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Changed("regions/42")
//	// Returns: "regioncore/changed/regions/42"
type Topics struct{}

// Changed returns the change-notification topic for a resource path.
//
// Example: regioncore/changed/regions/42
func (Topics) Changed(resourcePath string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixChanged, resourcePath)
}

// SystemStatus returns the system status topic, used for online/offline
// announcements and the Last Will message.
//
// Example: regioncore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// CatalogSync returns the topic for catalog sync completion events.
//
// Example: regioncore/system/catalog_sync
func (Topics) CatalogSync() string {
	return fmt.Sprintf("%s/catalog_sync", TopicPrefixSystem)
}

// AllChanged returns a pattern matching every change notification.
//
// Pattern: regioncore/changed/#
func (Topics) AllChanged() string {
	return fmt.Sprintf("%s/#", TopicPrefixChanged)
}

// AllTopics returns a pattern matching all Region Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: regioncore/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
