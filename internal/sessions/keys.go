package sessions

import (
	"fmt"
	"strings"
)

// Key builds a composite session key: agent:{agentId}:{scopeKey}
func Key(agentID, scopeKey string) string {
	return fmt.Sprintf("agent:%s:%s", agentID, scopeKey)
}

// ChannelKey builds the session key under which an agent is woken for a
// channel: agent:{agentId}:webchat:channel:{channelId}. One session per
// agent+channel pair keeps wake-up context coherent across posts.
func ChannelKey(agentID, channelID string) string {
	return Key(agentID, "webchat:channel:"+channelID)
}

// AgentID extracts the agent id from a session key, or "" if the key is
// not in the agent:{id}:{scope} form.
func AgentID(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 || parts[0] != "agent" {
		return ""
	}
	return parts[1]
}
