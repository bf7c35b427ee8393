package store

import (
	"context"
	"encoding/json"
)

// Channel types. Storage shape is identical for all three; the type only
// informs policy upstream.
const (
	ChannelTypePublic  = "public"
	ChannelTypePrivate = "private"
	ChannelTypeDM      = "dm"
)

// Member roles.
const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// Channel is a named collaboration surface. Members is materialized on
// reads that return a single channel.
type Channel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   int64           `json:"createdAt"`
	Members     []ChannelMember `json:"members,omitempty"`
}

// ChannelMember is one membership edge. (ChannelID, MemberID) is unique.
type ChannelMember struct {
	ChannelID string `json:"channelId"`
	MemberID  string `json:"memberId"`
	Role      string `json:"role"`
	JoinedAt  int64  `json:"joinedAt"`
}

// ChannelMessage is an immutable append record. ThreadID is empty for
// root-level messages. Timestamps are milliseconds since epoch.
type ChannelMessage struct {
	ID        string          `json:"id"`
	ChannelID string          `json:"channelId"`
	SenderID  string          `json:"senderId"`
	Text      string          `json:"text"`
	ThreadID  string          `json:"threadId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ChannelPreview is a listing row: the channel plus its member count and
// most recent message, if any.
type ChannelPreview struct {
	Channel
	MemberCount int             `json:"memberCount"`
	LastMessage *ChannelMessage `json:"lastMessage,omitempty"`
}

// CreateChannelParams describes a new channel. The creator is always a
// member with the admin role; Members may list additional participants.
// An empty Members defaults to just the creator.
type CreateChannelParams struct {
	Name        string
	Type        string
	Description string
	CreatedBy   string
	Members     []string
	Metadata    json.RawMessage
}

// PostMessageParams describes a message append. Channel accepts an id or
// a unique channel name.
type PostMessageParams struct {
	Channel  string
	SenderID string
	Text     string
	ThreadID string
	Metadata json.RawMessage
}

// MessageQuery bounds a message read. Limit nil means the default (50);
// an explicit 0 returns nothing. Before of 0 means no upper bound.
// ThreadID empty selects root-level messages only.
type MessageQuery struct {
	Limit    *int
	Before   int64
	ThreadID string
}

// ChannelStore manages channels, members, and messages. Methods that
// take a channel reference accept an id or a unique name. Mutations emit
// events only after the write has committed.
type ChannelStore interface {
	// CreateChannel inserts the channel and its member edges in one
	// transaction. Returns ErrAlreadyExists if the name is taken.
	CreateChannel(ctx context.Context, p CreateChannelParams) (*Channel, error)

	// DeleteChannel removes the channel; members and messages cascade.
	// Returns false if the channel did not exist.
	DeleteChannel(ctx context.Context, channel string) (bool, error)

	// ResolveChannel returns the channel with members expanded, or nil
	// when unknown.
	ResolveChannel(ctx context.Context, channel string) (*Channel, error)

	// GetChannel is ResolveChannel that fails with ErrNotFound instead
	// of returning nil.
	GetChannel(ctx context.Context, channel string) (*Channel, error)

	// ListChannels returns previews for every channel ordered by
	// creation time ascending.
	ListChannels(ctx context.Context) ([]ChannelPreview, error)

	// ListChannelsForMember returns previews for channels the member
	// belongs to, same ordering as ListChannels.
	ListChannelsForMember(ctx context.Context, memberID string) ([]ChannelPreview, error)

	// PostMessage appends a message. Returns ErrNotFound if the channel
	// is unknown. Membership is not checked here.
	PostMessage(ctx context.Context, p PostMessageParams) (*ChannelMessage, error)

	// GetMessages returns messages in ascending timestamp order, ties
	// broken by id. Returns ErrNotFound if the channel is unknown.
	GetMessages(ctx context.Context, channel string, q MessageQuery) ([]ChannelMessage, error)

	// AddMember joins a member. Reports false if the membership already
	// existed. An empty role defaults to member.
	AddMember(ctx context.Context, channel, memberID, role string) (bool, error)

	// RemoveMember leaves a channel. Reports false if there was no
	// membership to remove.
	RemoveMember(ctx context.Context, channel, memberID string) (bool, error)

	Close() error
}
