package mqtt

import "strings"

// Topic kinds under a device ID. Every topic is <prefix><id>/<kind>, and
// events carry the event name as <prefix><id>/evt/<name>.
const (
	CmdTopic   = "cmd"
	ReplyTopic = "reply"
	MetaTopic  = "meta"
	EventTopic = "evt"
	TimeTopic  = "time"
)

// DeviceTopic builds the topic of kind under device id, without prefix.
func DeviceTopic(id, kind string, name ...string) string {
	return strings.Join(append([]string{id, kind}, name...), "/")
}

// ParseTopic splits a topic (without prefix) by the device scheme.
// name is empty unless the topic has more than two levels.
func ParseTopic(topic string) (id, kind, name string) {
	parts := strings.SplitN(topic, "/", 3)
	id = parts[0]
	if len(parts) > 1 {
		kind = parts[1]
	}
	if len(parts) > 2 {
		name = parts[2]
	}
	return
}

// QoS is the level a kind is published with. Packets and meta must arrive,
// events and time are superseded by the next one.
func QoS(kind string) byte {
	switch kind {
	case CmdTopic, ReplyTopic, MetaTopic:
		return 1
	}
	return 0
}

// Retained reports whether the broker keeps the last message of kind for
// late subscribers.
func Retained(kind string) bool {
	return kind == MetaTopic || kind == TimeTopic
}

// MatchTopic matches topic with a subscription filter.
func MatchTopic(topic, filter string) bool {
	t, f := strings.Split(topic, "/"), strings.Split(filter, "/")
	for i, level := range f {
		if level == "#" && i+1 == len(f) {
			return true
		}
		if i >= len(t) || (level != "+" && level != t[i]) {
			return false
		}
	}
	return len(f) == len(t)
}
