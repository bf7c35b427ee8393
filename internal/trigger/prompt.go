package trigger

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/opencompany/internal/store"
)

// transcriptLimit is how many recent messages a wake-up prompt carries.
const transcriptLimit = 15

// buildPrompt renders the wake-up message for one recipient: the new post
// quoted verbatim, recent channel context oldest-first, and instructions
// for answering or staying silent.
func buildPrompt(channelName string, msg *store.ChannelMessage, transcript []store.ChannelMessage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New message in #%s from %s:\n%s\n", channelName, msg.SenderID, msg.Text)

	if len(transcript) > 0 {
		b.WriteString("\nRecent messages in this channel:\n")
		for _, m := range transcript {
			fmt.Fprintf(&b, "[%s]: %s\n", m.SenderID, m.Text)
		}
	}

	fmt.Fprintf(&b, "\nTo respond, post to #%s with company.channels.post. "+
		"Use company.channels.history if you need more context. "+
		"If you have nothing to add, reply with exactly PASS.\n", channelName)

	return b.String()
}
