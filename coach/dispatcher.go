package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blucoach/coach/convstate"
	"blucoach/coach/textutil"
	"blucoach/core/logger"
	"blucoach/core/telegram/format"
)

// Dispatcher orchestrates one inbound message: resolve a pending
// operation, or run a conversational turn against the completion
// collaborator.
type Dispatcher struct {
	store     *convstate.Store
	sessions  *SessionRegistry
	completer Completer
	profiles  ProfileStore
	render    func(string) string
	texts     Texts
	now       func() time.Time
}

// DispatcherOptions bundles the dispatcher's collaborators.
type DispatcherOptions struct {
	Store     *convstate.Store
	Sessions  *SessionRegistry
	Completer Completer
	Profiles  ProfileStore
	// Render converts model markdown for delivery; defaults to
	// format.Refine.
	Render func(string) string
	// Texts default to DefaultTexts.
	Texts *Texts
	// Now is overridable for tests.
	Now func() time.Time
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		store:     opts.Store,
		sessions:  opts.Sessions,
		completer: opts.Completer,
		profiles:  opts.Profiles,
		render:    opts.Render,
		texts:     DefaultTexts(),
		now:       opts.Now,
	}
	if d.render == nil {
		d.render = format.Refine
	}
	if opts.Texts != nil {
		d.texts = *opts.Texts
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Texts exposes the configured strings so transport handlers reuse
// the same wording.
func (d *Dispatcher) Texts() Texts { return d.texts }

// Handle processes one inbound text message. The returned reply text
// may be empty for unaddressed group messages. A non-nil error reports
// what went wrong for logging; when it is a CompletionError the reply
// still carries the apology text to deliver.
func (d *Dispatcher) Handle(ctx context.Context, turn Turn) (Reply, error) {
	var (
		reply   Reply
		turnErr error
	)
	// The whole resolve-or-dispatch sequence runs under the
	// conversation lock, completion call included, so the reply is
	// generated against the state that existed at message arrival.
	err := d.store.With(turn.ConversationID, func(cv *convstate.Conversation) error {
		switch p := cv.Pending(); p.Kind {
		case convstate.PendingTone:
			reply.Text = d.resolveTone(ctx, cv, turn.Text)
		case convstate.PendingBusinessInfo:
			reply.Text, turnErr = d.resolveBusinessInfo(ctx, cv, p.Mode, turn.Text)
		default:
			reply, turnErr = d.converse(ctx, cv, turn)
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, turnErr
}

func (d *Dispatcher) resolveTone(ctx context.Context, cv *convstate.Conversation, text string) string {
	if !textutil.IsValid(text) {
		// Pending stays armed; the user is re-prompted.
		d.logRejected(ctx, &ValidationError{Reason: "tone too short"})
		return d.texts.ToneInvalid
	}
	tone := textutil.Clean(text)
	cv.SetTone(tone)
	cv.ClearPending()
	logger.Info(ctx, "coach.state", "tone.updated",
		slog.String("tone", logger.SanitizeLimit(tone, 64)),
	)
	return fmt.Sprintf(d.texts.ToneConfirmed, tone)
}

func (d *Dispatcher) resolveBusinessInfo(ctx context.Context, cv *convstate.Conversation, mode convstate.BusinessMode, text string) (string, error) {
	if !textutil.IsValid(text) {
		d.logRejected(ctx, &ValidationError{Reason: "business info too short"})
		return d.texts.BusinessInvalid, nil
	}

	input := strings.TrimSpace(text)
	if mode == convstate.ModeAppend {
		prior, ok, err := d.profiles.Get(ctx, cv.ID())
		if err != nil {
			logger.Warn(ctx, "coach.state", "profile.get",
				slog.String("status", "degraded"),
				slog.String("err", err.Error()),
			)
		}
		if ok && prior != "" {
			input = prior + "\n" + input
		}
	}

	summary, err := d.completer.Summarize(ctx, input)
	if err != nil {
		// Not resolved: the operation stays pending so the user can
		// simply resend.
		return d.texts.Apology, err
	}

	cv.ClearPending()
	if err := d.profiles.Put(ctx, cv.ID(), summary); err != nil {
		logger.Warn(ctx, "coach.state", "profile.put",
			slog.String("status", "degraded"),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, "coach.state", "profile.updated",
		slog.String("mode", businessModeName(mode)),
	)
	// The user sees exactly what was stored.
	return fmt.Sprintf(d.texts.BusinessConfirmed, summary), nil
}

func (d *Dispatcher) converse(ctx context.Context, cv *convstate.Conversation, turn Turn) (Reply, error) {
	sessionID := cv.SessionID()
	ctx = logger.WithSessionID(ctx, sessionID)

	// Group history carries sender attribution so later turns can tell
	// participants apart.
	content := turn.Text
	if turn.Group && turn.SenderName != "" {
		content = turn.SenderName + ": " + turn.Text
	}
	userMsg := Message{Role: RoleUser, Content: content, CreatedAt: d.now()}

	// Unaddressed group chatter still feeds history for future
	// context, but produces no reply.
	if turn.Group && !turn.Addressed {
		d.sessions.Append(ctx, sessionID, userMsg)
		logger.Debug(ctx, "coach.turn", "turn.unaddressed")
		return Reply{}, nil
	}

	history := d.sessions.FetchHistory(ctx, sessionID)

	profile := ""
	if p, ok, err := d.profiles.Get(ctx, turn.ConversationID); err != nil {
		logger.Warn(ctx, "coach.turn", "profile.get",
			slog.String("status", "degraded"),
			slog.String("err", err.Error()),
		)
	} else if ok {
		profile = p
	}

	// The user message is appended before the completion call; a
	// failed turn keeps it so the next attempt has full context.
	d.sessions.Append(ctx, sessionID, userMsg)

	start := d.now()
	out, err := d.completer.Complete(ctx, CompletionRequest{
		History: history,
		Input:   turn.Text,
		Tone:    cv.Tone(),
		Profile: profile,
	})
	if err != nil {
		logger.Error(ctx, "coach.turn", "turn.handled",
			slog.String("status", "fail"),
			slog.Int("history_len", len(history)),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)
		return Reply{Text: d.texts.Apology}, err
	}

	rendered := d.render(out)
	d.sessions.Append(ctx, sessionID, Message{Role: RoleAssistant, Content: rendered, CreatedAt: d.now()})
	logger.Info(ctx, "coach.turn", "turn.handled",
		slog.String("status", "ok"),
		slog.Int("history_len", len(history)),
		slog.Duration("duration", time.Since(start)),
	)
	return Reply{Text: rendered, Rendered: true}, nil
}

// HandleImage runs an analysis turn for an inbound photo. A photo
// never satisfies a pending text capture; any armed operation stays
// untouched. The analysis lands in history as a regular exchange, so
// the next text turn naturally carries it as context.
func (d *Dispatcher) HandleImage(ctx context.Context, turn ImageTurn) (Reply, error) {
	var (
		reply   Reply
		turnErr error
	)
	err := d.store.With(turn.ConversationID, func(cv *convstate.Conversation) error {
		sessionID := cv.SessionID()
		ctx := logger.WithSessionID(ctx, sessionID)

		userMsg := Message{Role: RoleUser, Content: mediaNote(turn.SenderName, "photo", turn.Caption), CreatedAt: d.now()}
		d.sessions.Append(ctx, sessionID, userMsg)

		profile := ""
		if p, ok, err := d.profiles.Get(ctx, turn.ConversationID); err != nil {
			logger.Warn(ctx, "coach.turn", "profile.get",
				slog.String("status", "degraded"),
				slog.String("err", err.Error()),
			)
		} else if ok {
			profile = p
		}

		start := d.now()
		out, err := d.completer.AnalyzeImage(ctx, ImageRequest{
			Caption:  turn.Caption,
			Tone:     cv.Tone(),
			Profile:  profile,
			ImageURL: turn.ImageURL,
		})
		if err != nil {
			logger.Error(ctx, "coach.turn", "image.handled",
				slog.String("status", "fail"),
				slog.Duration("duration", time.Since(start)),
				slog.String("err", err.Error()),
			)
			reply, turnErr = Reply{Text: d.texts.Apology}, err
			return nil
		}

		rendered := d.render(out)
		d.sessions.Append(ctx, sessionID, Message{Role: RoleAssistant, Content: rendered, CreatedAt: d.now()})
		logger.Info(ctx, "coach.turn", "image.handled",
			slog.String("status", "ok"),
			slog.Duration("duration", time.Since(start)),
		)
		reply = Reply{Text: rendered, Rendered: true}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, turnErr
}

// RecordGroupMedia appends an attributed placeholder for group media
// that produced no reply, so later turns keep the context that
// something was shared.
func (d *Dispatcher) RecordGroupMedia(ctx context.Context, conversationID, senderName, kind string) {
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		sessionID := cv.SessionID()
		ctx := logger.WithSessionID(ctx, sessionID)
		d.sessions.Append(ctx, sessionID, Message{
			Role:      RoleUser,
			Content:   mediaNote(senderName, kind, ""),
			CreatedAt: d.now(),
		})
		logger.Debug(ctx, "coach.turn", "media.unaddressed",
			slog.String("kind", kind),
		)
		return nil
	})
}

func mediaNote(senderName, kind, caption string) string {
	note := "sent a " + kind + "."
	if senderName != "" {
		note = senderName + " " + note
	} else {
		note = "user " + note
	}
	if caption != "" {
		note += " Caption: " + caption
	}
	return note
}

// RequestToneChange arms tone capture and returns the prompt to show.
func (d *Dispatcher) RequestToneChange(ctx context.Context, conversationID string) string {
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		cv.AwaitTone()
		return nil
	})
	logger.Debug(ctx, "coach.state", "tone.awaiting")
	return d.texts.TonePrompt
}

// SetTonePreset applies a preset tone immediately, clearing any armed
// capture. Returns the confirmation and whether the preset was valid.
func (d *Dispatcher) SetTonePreset(ctx context.Context, conversationID, tone string) (string, bool) {
	if !textutil.IsValid(tone) {
		return d.texts.ToneInvalid, false
	}
	cleaned := textutil.Clean(tone)
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		cv.SetTone(cleaned)
		cv.ClearPending()
		return nil
	})
	logger.Info(ctx, "coach.state", "tone.updated",
		slog.String("tone", logger.SanitizeLimit(cleaned, 64)),
	)
	return fmt.Sprintf(d.texts.ToneConfirmed, cleaned), true
}

// RequestBusinessInfo starts the business-profile flow. Without a
// stored profile it arms Replace capture directly; with one it returns
// hasProfile=true so the caller can offer the replace/append choice.
func (d *Dispatcher) RequestBusinessInfo(ctx context.Context, conversationID string) (string, bool) {
	_, ok, err := d.profiles.Get(ctx, conversationID)
	if err != nil {
		logger.Warn(ctx, "coach.state", "profile.get",
			slog.String("status", "degraded"),
			slog.String("err", err.Error()),
		)
	}
	if ok {
		return d.texts.BusinessChoice, true
	}
	return d.ChooseBusinessMode(ctx, conversationID, convstate.ModeReplace), false
}

// ChooseBusinessMode arms business-info capture in the given mode and
// returns the prompt to show.
func (d *Dispatcher) ChooseBusinessMode(ctx context.Context, conversationID string, mode convstate.BusinessMode) string {
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		cv.AwaitBusinessInfo(mode)
		return nil
	})
	logger.Debug(ctx, "coach.state", "business_info.awaiting",
		slog.String("mode", businessModeName(mode)),
	)
	return d.texts.BusinessPrompt
}

// CancelPending drops any armed operation and reports what was
// cancelled in the logs.
func (d *Dispatcher) CancelPending(ctx context.Context, conversationID string) string {
	var taken convstate.Pending
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		taken = cv.TakePending()
		return nil
	})
	logger.Debug(ctx, "coach.state", "pending.cancelled",
		slog.String("kind", pendingKindName(taken.Kind)),
	)
	return d.texts.Cancelled
}

func pendingKindName(kind convstate.PendingKind) string {
	switch kind {
	case convstate.PendingTone:
		return "tone"
	case convstate.PendingBusinessInfo:
		return "business_info"
	default:
		return "none"
	}
}

// StartNewSession rotates the conversation onto a fresh session.
func (d *Dispatcher) StartNewSession(ctx context.Context, conversationID string) string {
	var sessionID string
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		sessionID = cv.RotateSession()
		return nil
	})
	logger.Info(ctx, "coach.state", "session.rotated",
		slog.String("session_id", sessionID),
	)
	return d.texts.NewSession
}

// ResolveDocument feeds extracted document text into an armed
// business-info capture. Returns handled=false when no such capture is
// armed; the pending state (tone capture included) stays untouched.
func (d *Dispatcher) ResolveDocument(ctx context.Context, conversationID, content string) (string, bool, error) {
	var (
		reply   string
		turnErr error
		handled bool
	)
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		p := cv.Pending()
		if p.Kind != convstate.PendingBusinessInfo {
			return nil
		}
		handled = true
		reply, turnErr = d.resolveBusinessInfo(ctx, cv, p.Mode, content)
		return nil
	})
	return reply, handled, turnErr
}

// Snapshot reports the conversation's current tone, session id, and
// stored profile for display.
func (d *Dispatcher) Snapshot(ctx context.Context, conversationID string) (tone, sessionID, profile string) {
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		tone = cv.Tone()
		sessionID = cv.SessionID()
		return nil
	})
	if p, ok, err := d.profiles.Get(ctx, conversationID); err == nil && ok {
		profile = p
	}
	return tone, sessionID, profile
}

// History returns the current session's messages for display.
func (d *Dispatcher) History(ctx context.Context, conversationID string) []Message {
	var sessionID string
	_ = d.store.With(conversationID, func(cv *convstate.Conversation) error {
		sessionID = cv.SessionID()
		return nil
	})
	return d.sessions.FetchHistory(logger.WithSessionID(ctx, sessionID), sessionID)
}

// logRejected records sanitizer rejections; they recover locally by
// re-prompting, so no error leaves the dispatcher.
func (d *Dispatcher) logRejected(ctx context.Context, verr *ValidationError) {
	logger.Debug(ctx, "coach.state", "input.rejected",
		slog.String("err_code", verr.Code()),
		slog.String("err", verr.Error()),
	)
}

func businessModeName(mode convstate.BusinessMode) string {
	if mode == convstate.ModeAppend {
		return "append"
	}
	return "replace"
}
