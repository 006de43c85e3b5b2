package mqtt

// TopicPrefix is the root of every servo-switch topic.
const TopicPrefix = "servoswitch"

// Topics builds servo-switch topic names.
type Topics struct{}

// PowerState is the retained power state topic.
func (Topics) PowerState() string {
	return TopicPrefix + "/state/power"
}

// EnvState is the retained environment reading topic.
func (Topics) EnvState() string {
	return TopicPrefix + "/state/env"
}

// SystemStatus carries online/offline status and the Last Will.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
