package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// SQLiteChannelStore implements store.ChannelStore backed by channels.db.
type SQLiteChannelStore struct {
	db     *sql.DB
	events bus.EventPublisher
}

func NewSQLiteChannelStore(db *sql.DB, events bus.EventPublisher) *SQLiteChannelStore {
	return &SQLiteChannelStore{db: db, events: events}
}

// --- Column constants ---

const channelSelectCols = `id, name, type, description, created_by, created_at`

const messageSelectCols = `id, channel_id, sender_id, text, thread_id, metadata, timestamp`

const defaultMessageLimit = 50

// ============================================================
// Channel CRUD
// ============================================================

func (s *SQLiteChannelStore) CreateChannel(ctx context.Context, p store.CreateChannelParams) (*store.Channel, error) {
	if p.Type == "" {
		p.Type = store.ChannelTypePublic
	}
	now := nowMillis()

	ch := &store.Channel{
		ID:          store.GenNewID(),
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   now,
	}

	// The creator always joins as admin; everyone else keeps input order.
	memberIDs := []string{p.CreatedBy}
	seen := map[string]bool{p.CreatedBy: true}
	for _, id := range p.Members {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		memberIDs = append(memberIDs, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	defer tx.Rollback()

	var taken int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels WHERE name = ?`, p.Name).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("channel %q: %w", p.Name, store.ErrAlreadyExists)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO channels (id, name, type, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.Name, ch.Type, ch.Description, ch.CreatedBy, ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	for _, id := range memberIDs {
		role := store.MemberRoleMember
		if id == p.CreatedBy {
			role = store.MemberRoleAdmin
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO channel_members (channel_id, member_id, role, joined_at)
			 VALUES (?, ?, ?, ?)`,
			ch.ID, id, role, now,
		)
		if err != nil {
			return nil, fmt.Errorf("create channel member %s: %w", id, err)
		}
		ch.Members = append(ch.Members, store.ChannelMember{
			ChannelID: ch.ID,
			MemberID:  id,
			Role:      role,
			JoinedAt:  now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	s.broadcast(protocol.EventChannelCreated, ch)
	return ch, nil
}

func (s *SQLiteChannelStore) DeleteChannel(ctx context.Context, channel string) (bool, error) {
	ch, err := s.ResolveChannel(ctx, channel)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, nil
	}

	// Members and messages cascade with the channel row.
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, ch.ID)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.broadcast(protocol.EventChannelDeleted, ch)
	return true, nil
}

func (s *SQLiteChannelStore) ResolveChannel(ctx context.Context, channel string) (*store.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelSelectCols+` FROM channels WHERE id = ? OR name = ?`,
		channel, channel)

	ch, err := scanChannelRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ch.Members, err = s.loadMembers(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *SQLiteChannelStore) GetChannel(ctx context.Context, channel string) (*store.Channel, error) {
	ch, err := s.ResolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}
	return ch, nil
}

func (s *SQLiteChannelStore) ListChannels(ctx context.Context) ([]store.ChannelPreview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+channelSelectCols+` FROM channels ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.buildPreviews(ctx, rows)
}

func (s *SQLiteChannelStore) ListChannelsForMember(ctx context.Context, memberID string) ([]store.ChannelPreview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.type, c.description, c.created_by, c.created_at
		 FROM channels c
		 JOIN channel_members m ON m.channel_id = c.id
		 WHERE m.member_id = ?
		 ORDER BY c.created_at, c.id`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.buildPreviews(ctx, rows)
}

// ============================================================
// Messages
// ============================================================

func (s *SQLiteChannelStore) PostMessage(ctx context.Context, p store.PostMessageParams) (*store.ChannelMessage, error) {
	ch, err := s.ResolveChannel(ctx, p.Channel)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %q: %w", p.Channel, store.ErrNotFound)
	}

	msg := &store.ChannelMessage{
		ID:        store.GenNewID(),
		ChannelID: ch.ID,
		SenderID:  p.SenderID,
		Text:      p.Text,
		ThreadID:  p.ThreadID,
		Metadata:  p.Metadata,
		Timestamp: nowMillis(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, channel_id, sender_id, text, thread_id, metadata, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChannelID, msg.SenderID, msg.Text,
		nullString(msg.ThreadID), nullRaw(msg.Metadata), msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}

	s.broadcast(protocol.EventChannelMessage, &store.MessageEvent{
		Message:     msg,
		ChannelName: ch.Name,
	})
	return msg, nil
}

func (s *SQLiteChannelStore) GetMessages(ctx context.Context, channel string, q store.MessageQuery) ([]store.ChannelMessage, error) {
	ch, err := s.ResolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}

	limit := defaultMessageLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []store.ChannelMessage{}, nil
	}

	query := `SELECT ` + messageSelectCols + ` FROM messages WHERE channel_id = ?`
	args := []any{ch.ID}
	if q.Before > 0 {
		query += ` AND timestamp < ?`
		args = append(args, q.Before)
	}
	if q.ThreadID != "" {
		query += ` AND thread_id = ?`
		args = append(args, q.ThreadID)
	} else {
		query += ` AND thread_id IS NULL`
	}
	// Newest first so the limit keeps the most recent window; reversed
	// below to ascending.
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessageRows(rows)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// ============================================================
// Members
// ============================================================

func (s *SQLiteChannelStore) AddMember(ctx context.Context, channel, memberID, role string) (bool, error) {
	ch, err := s.ResolveChannel(ctx, channel)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}
	if role == "" {
		role = store.MemberRoleMember
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_members (channel_id, member_id, role, joined_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (channel_id, member_id) DO NOTHING`,
		ch.ID, memberID, role, nowMillis(),
	)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.broadcast(protocol.EventMemberJoined, &store.MemberEvent{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		MemberID:    memberID,
		Role:        role,
	})
	return true, nil
}

func (s *SQLiteChannelStore) RemoveMember(ctx context.Context, channel, memberID string) (bool, error) {
	ch, err := s.ResolveChannel(ctx, channel)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_members WHERE channel_id = ? AND member_id = ?`,
		ch.ID, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.broadcast(protocol.EventMemberLeft, &store.MemberEvent{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		MemberID:    memberID,
	})
	return true, nil
}

func (s *SQLiteChannelStore) Close() error {
	return s.db.Close()
}

// ============================================================
// Helpers
// ============================================================

func (s *SQLiteChannelStore) broadcast(name string, payload interface{}) {
	if s.events != nil {
		s.events.Broadcast(bus.Event{Name: name, Payload: payload})
	}
}

func (s *SQLiteChannelStore) loadMembers(ctx context.Context, channelID string) ([]store.ChannelMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, member_id, role, joined_at
		 FROM channel_members WHERE channel_id = ?
		 ORDER BY joined_at, member_id`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []store.ChannelMember
	for rows.Next() {
		var m store.ChannelMember
		if err := rows.Scan(&m.ChannelID, &m.MemberID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// buildPreviews consumes channel rows and attaches member counts and the
// most recent message of each channel.
func (s *SQLiteChannelStore) buildPreviews(ctx context.Context, rows *sql.Rows) ([]store.ChannelPreview, error) {
	var previews []store.ChannelPreview
	for rows.Next() {
		var ch store.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Type, &ch.Description, &ch.CreatedBy, &ch.CreatedAt); err != nil {
			return nil, err
		}
		previews = append(previews, store.ChannelPreview{Channel: ch})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range previews {
		p := &previews[i]

		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM channel_members WHERE channel_id = ?`, p.ID).
			Scan(&p.MemberCount)
		if err != nil {
			return nil, err
		}

		row := s.db.QueryRowContext(ctx,
			`SELECT `+messageSelectCols+` FROM messages WHERE channel_id = ?
			 ORDER BY timestamp DESC, id DESC LIMIT 1`, p.ID)
		msg, err := scanMessageRow(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		p.LastMessage = msg
	}
	return previews, nil
}

// ============================================================
// Scan helpers
// ============================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannelRow(row rowScanner) (*store.Channel, error) {
	var ch store.Channel
	err := row.Scan(&ch.ID, &ch.Name, &ch.Type, &ch.Description, &ch.CreatedBy, &ch.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func scanMessageRow(row rowScanner) (*store.ChannelMessage, error) {
	var m store.ChannelMessage
	var threadID, metadata sql.NullString
	err := row.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.Text, &threadID, &metadata, &m.Timestamp)
	if err != nil {
		return nil, err
	}
	if threadID.Valid {
		m.ThreadID = threadID.String
	}
	if metadata.Valid {
		m.Metadata = []byte(metadata.String)
	}
	return &m, nil
}

func scanMessageRows(rows *sql.Rows) ([]store.ChannelMessage, error) {
	var msgs []store.ChannelMessage
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func reverseMessages(msgs []store.ChannelMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
