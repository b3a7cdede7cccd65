package coach

import (
	"context"
	"log/slog"

	"blucoach/core/logger"
)

// SessionRegistry mediates between the conversation state and the
// history store. Store failures degrade to empty history or a dropped
// append; the turn always proceeds.
type SessionRegistry struct {
	history HistoryStore
}

// NewSessionRegistry creates a registry over the given history store.
func NewSessionRegistry(history HistoryStore) *SessionRegistry {
	return &SessionRegistry{history: history}
}

// FetchHistory returns the ordered messages of a session. A store
// failure is logged and yields empty history.
func (r *SessionRegistry) FetchHistory(ctx context.Context, sessionID string) []Message {
	if r.history == nil {
		return nil
	}
	msgs, err := r.history.List(ctx, sessionID)
	if err != nil {
		logger.Warn(ctx, "coach.session", "history.fetch",
			slog.String("status", "degraded"),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return msgs
}

// Append records a message best-effort. Failures are logged and
// swallowed; a lost history entry never fails the turn.
func (r *SessionRegistry) Append(ctx context.Context, sessionID string, msg Message) {
	if r.history == nil {
		return
	}
	if err := r.history.Append(ctx, sessionID, msg); err != nil {
		logger.Warn(ctx, "coach.session", "history.append",
			slog.String("status", "degraded"),
			slog.String("role", string(msg.Role)),
			slog.String("err", err.Error()),
		)
	}
}
