// Package convstate holds per-conversation mutable state: the current
// session id, the reply tone, and the pending operation. All mutation
// goes through transition methods executed under the conversation's
// lock; there is no raw map access.
package convstate

import (
	"fmt"
	"sync"
	"time"
)

// PendingKind tags the pending-operation variant.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingTone
	PendingBusinessInfo
)

// BusinessMode selects how resolved business-profile text is applied.
type BusinessMode int

const (
	ModeReplace BusinessMode = iota
	ModeAppend
)

// Pending is the tagged pending-operation value. Mode is meaningful
// only when Kind is PendingBusinessInfo; clearing resets both fields
// together so kind and mode can never drift apart.
type Pending struct {
	Kind PendingKind
	Mode BusinessMode
}

// Store is the keyed conversation-state store.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation

	defaultTone string
	now         func() time.Time
}

type conversation struct {
	mu        sync.Mutex
	sessionID string
	tone      string
	pending   Pending
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for session ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. defaultTone is returned for conversations
// that never picked one.
func NewStore(defaultTone string, opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		defaultTone:   defaultTone,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) get(conversationID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.conversations[conversationID]
	if !ok {
		cv = &conversation{tone: s.defaultTone}
		s.conversations[conversationID] = cv
	}
	return cv
}

// Conversation is the transition surface handed to With callbacks.
// Methods are only valid for the duration of the callback.
type Conversation struct {
	id    string
	store *Store
	cv    *conversation
}

// With runs fn holding the conversation's exclusive lock. The entire
// resolve-or-dispatch sequence for one inbound message runs inside a
// single With call so concurrent messages in the same conversation
// serialize, while different conversations proceed in parallel.
func (s *Store) With(conversationID string, fn func(cv *Conversation) error) error {
	cv := s.get(conversationID)
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return fn(&Conversation{id: conversationID, store: s, cv: cv})
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// SessionID returns the current session id, creating and recording
// "{conversation_id}_{unix}" on first use.
func (c *Conversation) SessionID() string {
	if c.cv.sessionID == "" {
		c.cv.sessionID = c.newSessionID()
	}
	return c.cv.sessionID
}

// RotateSession unconditionally starts a new session and returns its
// id. Prior history stays addressable under the old id.
func (c *Conversation) RotateSession() string {
	c.cv.sessionID = c.newSessionID()
	return c.cv.sessionID
}

func (c *Conversation) newSessionID() string {
	id := fmt.Sprintf("%s_%d", c.id, c.store.now().Unix())
	if id == c.cv.sessionID {
		// Same-second rotation would alias the old session; fall back
		// to nanosecond resolution.
		id = fmt.Sprintf("%s_%d", c.id, c.store.now().UnixNano())
	}
	return id
}

// Tone returns the conversation's reply tone.
func (c *Conversation) Tone() string { return c.cv.tone }

// SetTone stores a new reply tone.
func (c *Conversation) SetTone(tone string) { c.cv.tone = tone }

// Pending returns the current pending operation without clearing it.
func (c *Conversation) Pending() Pending { return c.cv.pending }

// AwaitTone arms the tone-capture state: the next valid text message
// becomes the tone.
func (c *Conversation) AwaitTone() {
	c.cv.pending = Pending{Kind: PendingTone}
}

// AwaitBusinessInfo arms the business-profile capture state in the
// given mode.
func (c *Conversation) AwaitBusinessInfo(mode BusinessMode) {
	c.cv.pending = Pending{Kind: PendingBusinessInfo, Mode: mode}
}

// TakePending atomically returns and clears the pending operation.
// Callers that cannot complete the resolution must re-arm explicitly.
func (c *Conversation) TakePending() Pending {
	p := c.cv.pending
	c.cv.pending = Pending{}
	return p
}

// ClearPending drops any pending operation.
func (c *Conversation) ClearPending() {
	c.cv.pending = Pending{}
}
