// Package coach implements the conversational core of the bot: the
// per-conversation state machine, the turn dispatcher, and the
// contracts of its external collaborators.
package coach

import (
	"context"
	"time"
)

// Role identifies the author of a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a session's ordered history.
type Message struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Turn is a normalized inbound text message ready for dispatch.
type Turn struct {
	ConversationID string
	SenderName     string
	Text           string
	// Group marks a group-chat surface; Addressed marks that the
	// message mentioned, replied to, or named the bot. Unaddressed
	// group turns feed history but produce no reply.
	Group     bool
	Addressed bool
}

// ImageTurn is a normalized inbound photo ready for dispatch. ImageURL
// is any reference the completion endpoint can fetch, typically a
// base64 data URL built from the downloaded bytes.
type ImageTurn struct {
	ConversationID string
	SenderName     string
	Caption        string
	ImageURL       string
}

// Reply is the dispatcher's outbound text. Rendered marks model output
// that already went through the markdown pipeline and must be sent as
// MarkdownV2; static state-machine texts are delivered as plain text.
type Reply struct {
	Text     string
	Rendered bool
}

// CompletionRequest carries everything the model needs for one reply.
type CompletionRequest struct {
	History []Message
	Input   string
	Tone    string
	Profile string
}

// ImageRequest carries everything the model needs to describe a photo.
type ImageRequest struct {
	Caption  string
	Tone     string
	Profile  string
	ImageURL string
}

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Summarize condenses business-profile text before it is stored.
	Summarize(ctx context.Context, text string) (string, error)
	// AnalyzeImage describes a photo in the coach's voice.
	AnalyzeImage(ctx context.Context, req ImageRequest) (string, error)
}

// HistoryStore persists session message logs.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, msg Message) error
	List(ctx context.Context, sessionID string) ([]Message, error)
}

// ProfileStore persists business profiles independent of session
// rotation.
type ProfileStore interface {
	Get(ctx context.Context, conversationID string) (string, bool, error)
	Put(ctx context.Context, conversationID, profile string) error
}
