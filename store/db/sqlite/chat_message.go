package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/verdant/store"
)

// CreateChatMessage appends a message to the chat log.
func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	stmt := `
		INSERT INTO chat_message (user_id, plant_id, role, content)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.PlantID,
		create.Role,
		create.Content,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create chat message")
	}
	return create, nil
}

// ListChatMessages lists chat messages, newest first.
func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.PlantID != nil {
		where, args = append(where, "plant_id = ?"), append(args, *find.PlantID)
	}

	query := `SELECT id, user_id, plant_id, role, content, created_ts
		FROM chat_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	defer rows.Close()

	list := []*store.ChatMessage{}
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.PlantID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat message")
		}
		list = append(list, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
