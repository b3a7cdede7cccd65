// Package history persists session message logs in Postgres.
package history

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"blucoach/coach"
)

// Store is the Postgres-backed HistoryStore.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type messageRow struct {
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// Append inserts one message at the tail of the session log.
func (s *Store) Append(ctx context.Context, sessionID string, msg coach.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, string(msg.Role), msg.Content, createdAt,
	)
	if err != nil {
		return &coach.StoreError{Op: "history.append", Err: err}
	}
	return nil
}

// List returns the session's messages in insertion order.
func (s *Store) List(ctx context.Context, sessionID string) ([]coach.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT role, content, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, &coach.StoreError{Op: "history.list", Err: err}
	}
	msgs := make([]coach.Message, len(rows))
	for i, r := range rows {
		msgs[i] = coach.Message{
			Role:      coach.Role(r.Role),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		}
	}
	return msgs, nil
}
