package methods

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/opencompany/internal/gateway"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// ChannelMethods serves the company.channels.* RPC surface.
type ChannelMethods struct {
	store store.ChannelStore
}

// NewChannelMethods creates the handler set over a channel store.
func NewChannelMethods(s store.ChannelStore) *ChannelMethods {
	return &ChannelMethods{store: s}
}

// Register binds every channel method onto the router.
func (m *ChannelMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodChannelsList, m.handleList)
	router.Register(protocol.MethodChannelsGet, m.handleGet)
	router.Register(protocol.MethodChannelsCreate, m.handleCreate)
	router.Register(protocol.MethodChannelsDelete, m.handleDelete)
	router.Register(protocol.MethodChannelsPost, m.handlePost)
	router.Register(protocol.MethodChannelsHistory, m.handleHistory)
	router.Register(protocol.MethodChannelsMembersAdd, m.handleMembersAdd)
	router.Register(protocol.MethodChannelsMembersRemove, m.handleMembersRemove)
}

func (m *ChannelMethods) handleList(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		MemberID string `json:"memberId"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}

	var (
		channels []store.ChannelPreview
		err      error
	)
	if params.MemberID != "" {
		channels, err = m.store.ListChannelsForMember(ctx, params.MemberID)
	} else {
		channels, err = m.store.ListChannels(ctx)
	}
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"channels": channels,
	}))
}

func (m *ChannelMethods) handleGet(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel string `json:"channel"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}

	ch, err := m.store.GetChannel(ctx, params.Channel)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"channel": ch,
	}))
}

func (m *ChannelMethods) handleCreate(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Name        string          `json:"name"`
		Type        string          `json:"type"`
		Description string          `json:"description"`
		CreatedBy   string          `json:"createdBy"`
		Members     []string        `json:"members"`
		Metadata    json.RawMessage `json:"metadata"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Name == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "name is required"))
		return
	}
	if params.CreatedBy == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "createdBy is required"))
		return
	}
	switch params.Type {
	case "", store.ChannelTypePublic, store.ChannelTypePrivate, store.ChannelTypeDM:
	default:
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("type %q is not one of public, private, dm", params.Type)))
		return
	}

	ch, err := m.store.CreateChannel(ctx, store.CreateChannelParams{
		Name:        params.Name,
		Type:        params.Type,
		Description: params.Description,
		CreatedBy:   params.CreatedBy,
		Members:     params.Members,
		Metadata:    params.Metadata,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"channel": ch,
	}))
}

func (m *ChannelMethods) handleDelete(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel string `json:"channel"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}

	deleted, err := m.store.DeleteChannel(ctx, params.Channel)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"deleted": deleted,
	}))
}

func (m *ChannelMethods) handlePost(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel  string          `json:"channel"`
		SenderID string          `json:"senderId"`
		Text     string          `json:"text"`
		ThreadID string          `json:"threadId"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}
	if params.SenderID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "senderId is required"))
		return
	}
	if params.Text == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "text is required"))
		return
	}

	msg, err := m.store.PostMessage(ctx, store.PostMessageParams{
		Channel:  params.Channel,
		SenderID: params.SenderID,
		Text:     params.Text,
		ThreadID: params.ThreadID,
		Metadata: params.Metadata,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"message": msg,
	}))
}

func (m *ChannelMethods) handleHistory(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel  string `json:"channel"`
		Limit    *int   `json:"limit"`
		Before   int64  `json:"before"`
		ThreadID string `json:"threadId"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}
	if params.Limit != nil && *params.Limit < 0 {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "limit must not be negative"))
		return
	}

	messages, err := m.store.GetMessages(ctx, params.Channel, store.MessageQuery{
		Limit:    params.Limit,
		Before:   params.Before,
		ThreadID: params.ThreadID,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"messages": messages,
	}))
}

func (m *ChannelMethods) handleMembersAdd(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel  string `json:"channel"`
		MemberID string `json:"memberId"`
		Role     string `json:"role"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}
	if params.MemberID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "memberId is required"))
		return
	}
	switch params.Role {
	case "", store.MemberRoleAdmin, store.MemberRoleMember:
	default:
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("role %q is not one of admin, member", params.Role)))
		return
	}

	added, err := m.store.AddMember(ctx, params.Channel, params.MemberID, params.Role)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"added": added,
	}))
}

func (m *ChannelMethods) handleMembersRemove(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel  string `json:"channel"`
		MemberID string `json:"memberId"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}
	if params.MemberID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "memberId is required"))
		return
	}

	removed, err := m.store.RemoveMember(ctx, params.Channel, params.MemberID)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"removed": removed,
	}))
}
