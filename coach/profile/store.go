// Package profile persists business profiles keyed by conversation.
// Profiles survive session rotation.
package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"blucoach/coach"
)

// Store is the Postgres-backed ProfileStore.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored profile and whether one exists.
func (s *Store) Get(ctx context.Context, conversationID string) (string, bool, error) {
	var profile string
	err := s.db.GetContext(ctx, &profile,
		`SELECT profile FROM business_profiles WHERE conversation_id = $1`,
		conversationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &coach.StoreError{Op: "profile.get", Err: err}
	}
	return profile, true, nil
}

// Put upserts the profile for a conversation.
func (s *Store) Put(ctx context.Context, conversationID, profile string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO business_profiles (conversation_id, profile, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (conversation_id)
		 DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`,
		conversationID, profile,
	)
	if err != nil {
		return &coach.StoreError{Op: "profile.put", Err: err}
	}
	return nil
}
