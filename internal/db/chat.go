package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

func (s *Store) AddChatMessage(ctx context.Context, role model.ChatRole, content string) (model.ChatMessage, error) {
	if role != model.RoleUser && role != model.RoleAssistant {
		return model.ChatMessage{}, invalidf("invalid chat role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return model.ChatMessage{}, invalidf("message is required")
	}

	now := s.now()
	result, err := s.DB.ExecContext(ctx,
		"INSERT INTO chat_messages (role, content, created_at) VALUES (?, ?, ?)",
		string(role), content, now.UnixNano(),
	)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.ChatMessage{}, err
	}

	return model.ChatMessage{ID: id, Role: role, Content: content, CreatedAt: now}, nil
}

// ListChatMessages returns the newest limit messages, oldest first. A limit
// of zero or less returns the whole log.
func (s *Store) ListChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	query := "SELECT id, role, content, created_at FROM chat_messages ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := []model.ChatMessage{}
	for rows.Next() {
		var message model.ChatMessage
		var role string
		var createdAt int64
		if err := rows.Scan(&message.ID, &role, &message.Content, &createdAt); err != nil {
			return nil, err
		}
		message.Role = model.ChatRole(role)
		message.CreatedAt = time.Unix(0, createdAt)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *Store) ClearChat(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM chat_messages"); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	return nil
}
