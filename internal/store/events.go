package store

// MessageEvent is the channel.message payload: the stored message plus
// the channel name, which consumers use for prompt routing.
type MessageEvent struct {
	Message     *ChannelMessage `json:"message"`
	ChannelName string          `json:"channelName"`
}

// MemberEvent is the payload for channel.member.joined and
// channel.member.left. Role is set only on joins.
type MemberEvent struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	MemberID    string `json:"memberId"`
	Role        string `json:"role,omitempty"`
}
