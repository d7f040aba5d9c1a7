package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "blinksync"

// Topics builds the blinksync topic hierarchy under a prefix:
//
//	{prefix}/status                     daemon online/offline (retained, LWT)
//	{prefix}/state/network/{id}         network state (retained)
//	{prefix}/state/camera/{id}          camera state (retained)
//	{prefix}/command/network/{id}       intents for a network
//	{prefix}/command/camera/{id}        intents for a camera
//	{prefix}/event/{type}               refresh and command events
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Status returns the daemon status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// NetworkState returns the retained state topic for a network.
func (t Topics) NetworkState(networkID int64) string {
	return fmt.Sprintf("%s/state/network/%d", t.prefix(), networkID)
}

// CameraState returns the retained state topic for a camera.
func (t Topics) CameraState(cameraID int64) string {
	return fmt.Sprintf("%s/state/camera/%d", t.prefix(), cameraID)
}

// NetworkCommand returns the intent topic for a network.
func (t Topics) NetworkCommand(networkID int64) string {
	return fmt.Sprintf("%s/command/network/%d", t.prefix(), networkID)
}

// CameraCommand returns the intent topic for a camera.
func (t Topics) CameraCommand(cameraID int64) string {
	return fmt.Sprintf("%s/command/camera/%d", t.prefix(), cameraID)
}

// Event returns the topic for events of the given type.
func (t Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix(), eventType)
}

// AllCommands matches every network and camera intent topic.
func (t Topics) AllCommands() string {
	return t.prefix() + "/command/+/+"
}

// ParseCommand extracts the entity kind ("network" or "camera") and id from
// an intent topic. ok is false for topics outside the command hierarchy.
func (t Topics) ParseCommand(topic string) (kind string, id int64, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix()+"/command/")
	if !found {
		return "", 0, false
	}
	kind, rawID, found := strings.Cut(rest, "/")
	if !found || (kind != "network" && kind != "camera") {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return kind, id, true
}
