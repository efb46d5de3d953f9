package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &Postgres{pool: pool}, nil
}

func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation

func (db *Postgres) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, email, last_seen, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.LastSeen, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *Postgres) GetContactIDs(ctx context.Context, userID int) ([]int, error) {
	query := `
		SELECT DISTINCT cp2.user_id
		FROM chat_participants cp1
		JOIN chat_participants cp2 ON cp1.chat_id = cp2.chat_id
		WHERE cp1.user_id = $1 AND cp2.user_id <> $1`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *Postgres) UpdateLastSeen(ctx context.Context, userID int, at time.Time) error {
	query := `UPDATE users SET last_seen = $2 WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, userID, at)
	return err
}

// Chat Repository Implementation

func (db *Postgres) GetChatByID(ctx context.Context, id int) (*models.Chat, error) {
	query := `
		SELECT c.id, c.type, c.name, c.only_admins_can_message, c.last_activity, c.created_at,
			COALESCE((SELECT array_agg(user_id ORDER BY user_id) FROM chat_participants WHERE chat_id = c.id), '{}'),
			COALESCE((SELECT array_agg(user_id ORDER BY user_id) FROM chat_participants WHERE chat_id = c.id AND is_admin), '{}')
		FROM chats c WHERE c.id = $1`

	chat := &models.Chat{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.Type, &chat.Name, &chat.OnlyAdminsCanMessage,
		&chat.LastActivity, &chat.CreatedAt, &chat.ParticipantIDs, &chat.AdminIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return chat, nil
}

func (db *Postgres) ListUserChatIDs(ctx context.Context, userID int) ([]int, error) {
	query := `SELECT chat_id FROM chat_participants WHERE user_id = $1 ORDER BY chat_id`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *Postgres) AddParticipant(ctx context.Context, chatID, userID int) error {
	query := `
		INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)
		ON CONFLICT (chat_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, chatID, userID)
	return err
}

func (db *Postgres) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	query := `DELETE FROM chat_participants WHERE chat_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, chatID, userID)
	return err
}

func (db *Postgres) TouchChat(ctx context.Context, chatID int, at time.Time) error {
	query := `UPDATE chats SET last_activity = $2 WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, chatID, at)
	return err
}

// Message Repository Implementation

func (db *Postgres) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (chat_id, sender_id, content, type, reply_to_id, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`

	err := db.pool.QueryRow(ctx, query,
		msg.ChatID, msg.SenderID, msg.Content, msg.Type, msg.ReplyToID, msg.FileURL,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return msg, nil
}

func (db *Postgres) GetMessageByID(ctx context.Context, id int) (*models.Message, error) {
	query := `
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.type, m.reply_to_id, m.file_url,
			m.edited, m.edited_at, m.deleted, m.created_at,
			COALESCE((SELECT array_agg(user_id ORDER BY user_id) FROM message_deliveries WHERE message_id = m.id), '{}'),
			COALESCE((SELECT array_agg(user_id ORDER BY user_id) FROM message_reads WHERE message_id = m.id), '{}')
		FROM messages m WHERE m.id = $1`

	msg := &models.Message{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &msg.ReplyToID,
		&msg.FileURL, &msg.Edited, &msg.EditedAt, &msg.Deleted, &msg.CreatedAt,
		&msg.DeliveredTo, &msg.ReadBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func (db *Postgres) EditMessage(ctx context.Context, messageID int, content string, at time.Time) error {
	query := `UPDATE messages SET content = $2, edited = true, edited_at = $3 WHERE id = $1 AND NOT deleted`

	tag, err := db.pool.Exec(ctx, query, messageID, content, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) DeleteMessageForEveryone(ctx context.Context, messageID int) error {
	query := `UPDATE messages SET deleted = true, content = $2 WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, messageID, models.DeletedPlaceholder)
	return err
}

func (db *Postgres) HideMessageForUser(ctx context.Context, messageID, userID int) error {
	query := `
		INSERT INTO message_hidden (message_id, user_id) VALUES ($1, $2)
		ON CONFLICT (message_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, messageID, userID)
	return err
}

func (db *Postgres) MarkDelivered(ctx context.Context, messageID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO message_deliveries (message_id, user_id, delivered_at)
		SELECT $1, uid, NOW() FROM unnest($2::int[]) AS uid
		ON CONFLICT (message_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, messageID, userIDs)
	return err
}

func (db *Postgres) ListUnreadMessageIDs(ctx context.Context, chatID, userID int) ([]int, error) {
	query := `
		SELECT m.id FROM messages m
		WHERE m.chat_id = $1 AND m.sender_id <> $2 AND NOT m.deleted
			AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $2)
		ORDER BY m.id`

	rows, err := db.pool.Query(ctx, query, chatID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Reaction Repository Implementation

func (db *Postgres) SetReaction(ctx context.Context, messageID, userID int, emoji string, at time.Time) error {
	query := `
		INSERT INTO reactions (message_id, user_id, emoji, reacted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, reacted_at = EXCLUDED.reacted_at`

	_, err := db.pool.Exec(ctx, query, messageID, userID, emoji, at)
	return err
}

func (db *Postgres) RemoveReaction(ctx context.Context, messageID, userID int) error {
	query := `DELETE FROM reactions WHERE message_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, messageID, userID)
	return err
}

func (db *Postgres) ListReactions(ctx context.Context, messageID int) ([]*models.Reaction, error) {
	query := `
		SELECT message_id, user_id, emoji, reacted_at
		FROM reactions WHERE message_id = $1 ORDER BY reacted_at, user_id`

	rows, err := db.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []*models.Reaction
	for rows.Next() {
		r := &models.Reaction{}
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.Emoji, &r.ReactedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}

	return reactions, rows.Err()
}

// Receipt Repository Implementation

func (db *Postgres) MarkRead(ctx context.Context, chatID, userID int, messageIDs []int) ([]int, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query := `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, $2, NOW() FROM messages m
		WHERE m.id = ANY($3) AND m.chat_id = $1 AND m.sender_id <> $2
		ON CONFLICT (message_id, user_id) DO NOTHING
		RETURNING message_id`

	rows, err := db.pool.Query(ctx, query, chatID, userID, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var affected []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		affected = append(affected, id)
	}

	return affected, rows.Err()
}
