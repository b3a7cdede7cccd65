package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"blucoach/coach/convstate"
)

type fakeCompleter struct {
	mu           sync.Mutex
	completes    int
	analyses     int
	summaries    []string
	reply        string
	imageReply   string
	summary      string
	failAll      bool
	lastInput    string
	lastTone     string
	lastProf     string
	lastHistLn   int
	lastImageURL string
	lastCaption  string
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	f.lastInput = req.Input
	f.lastTone = req.Tone
	f.lastProf = req.Profile
	f.lastHistLn = len(req.History)
	if f.failAll {
		return "", &CompletionError{Err: errors.New("endpoint down")}
	}
	return f.reply, nil
}

func (f *fakeCompleter) AnalyzeImage(_ context.Context, req ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses++
	f.lastImageURL = req.ImageURL
	f.lastCaption = req.Caption
	if f.failAll {
		return "", &CompletionError{Err: errors.New("endpoint down")}
	}
	if f.imageReply != "" {
		return f.imageReply, nil
	}
	return "تحلیل تصویر", nil
}

func (f *fakeCompleter) Summarize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, text)
	if f.failAll {
		return "", &CompletionError{Err: errors.New("endpoint down")}
	}
	if f.summary != "" {
		return f.summary, nil
	}
	return "summary(" + text + ")", nil
}

type memHistory struct {
	mu   sync.Mutex
	logs map[string][]Message
}

func newMemHistory() *memHistory {
	return &memHistory{logs: make(map[string][]Message)}
}

func (m *memHistory) Append(_ context.Context, sessionID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[sessionID] = append(m.logs[sessionID], msg)
	return nil
}

func (m *memHistory) List(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.logs[sessionID]...), nil
}

func (m *memHistory) all() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msgs := range m.logs {
		out = append(out, msgs...)
	}
	return out
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]string
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]string)}
}

func (m *memProfiles) Get(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *memProfiles) Put(_ context.Context, id, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = profile
	return nil
}

type harness struct {
	d         *Dispatcher
	completer *fakeCompleter
	history   *memHistory
	profiles  *memProfiles
	store     *convstate.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	completer := &fakeCompleter{reply: "پاسخ"}
	history := newMemHistory()
	profiles := newMemProfiles()
	store := convstate.NewStore("دوستانه")
	d := NewDispatcher(DispatcherOptions{
		Store:     store,
		Sessions:  NewSessionRegistry(history),
		Completer: completer,
		Profiles:  profiles,
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	return &harness{d: d, completer: completer, history: history, profiles: profiles, store: store}
}

func TestToneResolutionThenNormalTurn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.RequestToneChange(ctx, "c1")

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "رسمی و محترمانه"})
	if err != nil {
		t.Fatalf("tone resolution error: %v", err)
	}
	if !strings.Contains(reply.Text, "رسمی و محترمانه") {
		t.Fatalf("confirmation %q must echo the tone", reply.Text)
	}
	if reply.Rendered {
		t.Fatal("state confirmation must be plain text")
	}
	if h.completer.completes != 0 {
		t.Fatalf("tone resolution must not hit the model, got %d calls", h.completer.completes)
	}

	// Next message is an ordinary turn carrying the new tone.
	if _, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "سلام"}); err != nil {
		t.Fatalf("normal turn error: %v", err)
	}
	if h.completer.completes != 1 {
		t.Fatalf("expected one completion call, got %d", h.completer.completes)
	}
	if h.completer.lastTone != "رسمی و محترمانه" {
		t.Fatalf("completion tone = %q", h.completer.lastTone)
	}
}

func TestToneInvalidKeepsPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.RequestToneChange(ctx, "c1")

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "  "})
	if err != nil {
		t.Fatalf("invalid tone must recover locally, got %v", err)
	}
	if reply.Text != h.d.Texts().ToneInvalid {
		t.Fatalf("reply = %q, want re-prompt", reply.Text)
	}

	// Still pending: a valid message now resolves it.
	reply, _ = h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "صمیمی"})
	if !strings.Contains(reply.Text, "صمیمی") {
		t.Fatalf("second message should resolve tone, got %q", reply.Text)
	}
	if h.completer.completes != 0 {
		t.Fatalf("no completion call expected, got %d", h.completer.completes)
	}
}

func TestBusinessInfoAppendSummarizesCombined(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.profiles.Put(ctx, "c1", "پروفایل قبلی"); err != nil {
		t.Fatal(err)
	}
	h.d.ChooseBusinessMode(ctx, "c1", convstate.ModeAppend)

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "اطلاعات تازه"})
	if err != nil {
		t.Fatalf("append resolution error: %v", err)
	}
	if !strings.Contains(reply.Text, "✅") || !strings.Contains(reply.Text, "summary(") {
		t.Fatalf("confirmation %q must echo the stored summary", reply.Text)
	}

	if len(h.completer.summaries) != 1 {
		t.Fatalf("expected one summarize call, got %d", len(h.completer.summaries))
	}
	combined := h.completer.summaries[0]
	if !strings.Contains(combined, "پروفایل قبلی") || !strings.Contains(combined, "اطلاعات تازه") {
		t.Fatalf("summarize input %q must contain prior and new text", combined)
	}

	stored, ok, _ := h.profiles.Get(ctx, "c1")
	if !ok || !strings.HasPrefix(stored, "summary(") {
		t.Fatalf("persisted profile = %q", stored)
	}

	// Pending cleared: the next message is a normal turn.
	_, _ = h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "سلام دوباره"})
	if h.completer.completes != 1 {
		t.Fatalf("post-resolution message must be conversational, completes=%d", h.completer.completes)
	}
}

func TestCompletionFailureYieldsApologyAndKeepsHistoryClean(t *testing.T) {
	h := newHarness(t)
	h.completer.failAll = true
	ctx := context.Background()

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "کمکم کن"})
	if reply.Text != h.d.Texts().Apology {
		t.Fatalf("reply = %q, want apology", reply.Text)
	}
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CompletionError", err)
	}

	msgs := h.history.all()
	if len(msgs) != 1 {
		t.Fatalf("history length = %d, want only the user message", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "کمکم کن" {
		t.Fatalf("history[0] = %+v", msgs[0])
	}
}

func TestSuccessfulTurnAppendsBothSidesRendered(t *testing.T) {
	h := newHarness(t)
	h.completer.reply = "**مهم** است."
	ctx := context.Background()

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "سوال"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != `*مهم* است\.` {
		t.Fatalf("rendered reply = %q", reply.Text)
	}
	if !reply.Rendered {
		t.Fatal("model output must be flagged as rendered markdown")
	}

	msgs := h.history.all()
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want user+assistant", len(msgs))
	}
	var sawAssistant bool
	for _, m := range msgs {
		if m.Role == RoleAssistant {
			sawAssistant = true
			if m.Content != reply.Text {
				t.Fatalf("stored assistant content %q != delivered %q", m.Content, reply.Text)
			}
		}
	}
	if !sawAssistant {
		t.Fatal("assistant message missing from history")
	}
}

func TestUnaddressedGroupTurnFeedsHistorySilently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reply, err := h.d.Handle(ctx, Turn{ConversationID: "g1", SenderName: "sara", Text: "حرف بین خودمون", Group: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "" {
		t.Fatalf("unaddressed group message must not produce a reply, got %q", reply.Text)
	}
	if h.completer.completes != 0 {
		t.Fatalf("no completion expected, got %d", h.completer.completes)
	}
	msgs := h.history.all()
	if len(msgs) != 1 {
		t.Fatalf("history length = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "sara: حرف بین خودمون" {
		t.Fatalf("group history entry %q must carry sender attribution", msgs[0].Content)
	}
}

// Concurrent messages racing an armed tone capture: exactly one may
// resolve it; the rest must flow through as conversational turns.
func TestConcurrentResolutionAppliesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.d.RequestToneChange(ctx, "c1")

	const racers = 6
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		tones int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			reply, err := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "لحن جدید"})
			if err != nil {
				t.Errorf("handle error: %v", err)
				return
			}
			if strings.Contains(reply.Text, "لحن جدید") && strings.Contains(reply.Text, "✅") {
				mu.Lock()
				tones++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if tones != 1 {
		t.Fatalf("tone resolution applied %d times, want exactly 1", tones)
	}
	if h.completer.completes != racers-1 {
		t.Fatalf("expected %d conversational turns, got %d", racers-1, h.completer.completes)
	}
}

func TestResolveDocumentOnlyWhenBusinessPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No pending: document is not consumed.
	if _, handled, _ := h.d.ResolveDocument(ctx, "c1", "متن فایل"); handled {
		t.Fatal("document must not resolve anything while idle")
	}

	// Tone pending: document leaves it untouched.
	h.d.RequestToneChange(ctx, "c1")
	if _, handled, _ := h.d.ResolveDocument(ctx, "c1", "متن فایل"); handled {
		t.Fatal("document must not satisfy a tone capture")
	}
	captured, _ := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "گرم و صمیمی"})
	if !strings.Contains(captured.Text, "گرم و صمیمی") {
		t.Fatalf("tone capture should have survived the document, got %q", captured.Text)
	}

	// Business pending: document resolves it.
	h.d.ChooseBusinessMode(ctx, "c1", convstate.ModeReplace)
	reply, handled, err := h.d.ResolveDocument(ctx, "c1", "شرح کامل کسب‌وکار")
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !strings.Contains(reply, "✅") || !strings.Contains(reply, "summary(") {
		t.Fatalf("confirmation %q must echo the stored summary", reply)
	}
}

func TestImageTurnAppendsNoteAndRenderedAnalysis(t *testing.T) {
	h := newHarness(t)
	h.completer.imageReply = "توضیح **تصویر**"
	ctx := context.Background()

	reply, err := h.d.HandleImage(ctx, ImageTurn{
		ConversationID: "c1",
		SenderName:     "sara",
		Caption:        "ویترین مغازه",
		ImageURL:       "data:image/jpeg;base64,Zm9v",
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != `توضیح *تصویر*` || !reply.Rendered {
		t.Fatalf("reply = %+v, want rendered analysis", reply)
	}
	if h.completer.lastImageURL != "data:image/jpeg;base64,Zm9v" {
		t.Fatalf("analysis image URL = %q", h.completer.lastImageURL)
	}
	if h.completer.lastCaption != "ویترین مغازه" {
		t.Fatalf("analysis caption = %q", h.completer.lastCaption)
	}

	msgs := h.history.all()
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want note+analysis", len(msgs))
	}
	var note, analysis string
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			note = m.Content
		case RoleAssistant:
			analysis = m.Content
		}
	}
	if !strings.Contains(note, "sara") || !strings.Contains(note, "photo") || !strings.Contains(note, "ویترین مغازه") {
		t.Fatalf("user note %q must attribute the photo and carry the caption", note)
	}
	if analysis != reply.Text {
		t.Fatalf("stored analysis %q != delivered %q", analysis, reply.Text)
	}
}

func TestImageTurnLeavesPendingUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.RequestToneChange(ctx, "c1")
	if _, err := h.d.HandleImage(ctx, ImageTurn{ConversationID: "c1", ImageURL: "data:image/jpeg;base64,Zm9v"}); err != nil {
		t.Fatal(err)
	}

	// The capture should still be armed: the next text resolves it.
	reply, _ := h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "خودمونی"})
	if !strings.Contains(reply.Text, "خودمونی") {
		t.Fatalf("tone capture should have survived the photo, got %q", reply.Text)
	}
}

func TestImageFailureYieldsApologyAndKeepsNoteOnly(t *testing.T) {
	h := newHarness(t)
	h.completer.failAll = true
	ctx := context.Background()

	reply, err := h.d.HandleImage(ctx, ImageTurn{ConversationID: "c1", SenderName: "sara", ImageURL: "data:image/jpeg;base64,Zm9v"})
	if reply.Text != h.d.Texts().Apology {
		t.Fatalf("reply = %q, want apology", reply.Text)
	}
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CompletionError", err)
	}

	msgs := h.history.all()
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("history = %+v, want only the photo note", msgs)
	}
}

func TestGroupMediaLeavesAttributedPlaceholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.d.RecordGroupMedia(ctx, "g1", "sara", "video")

	if h.completer.completes != 0 || h.completer.analyses != 0 {
		t.Fatalf("placeholder must not hit the model, completes=%d analyses=%d", h.completer.completes, h.completer.analyses)
	}
	msgs := h.history.all()
	if len(msgs) != 1 {
		t.Fatalf("history length = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "sara sent a video." {
		t.Fatalf("placeholder = %q", msgs[0].Content)
	}

	// The placeholder is visible to the next addressed turn.
	_, _ = h.d.Handle(ctx, Turn{ConversationID: "g1", Text: "این ویدیو چطور بود؟", Group: true, Addressed: true})
	if h.completer.lastHistLn != 1 {
		t.Fatalf("next turn history = %d, want the placeholder", h.completer.lastHistLn)
	}
}

func TestSessionRotationStartsEmptyHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _ = h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "پیام اول"})
	if h.completer.lastHistLn != 0 {
		t.Fatalf("first turn history = %d, want 0", h.completer.lastHistLn)
	}
	_, _ = h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "پیام دوم"})
	if h.completer.lastHistLn != 2 {
		t.Fatalf("second turn history = %d, want 2", h.completer.lastHistLn)
	}

	h.d.StartNewSession(ctx, "c1")
	_, _ = h.d.Handle(ctx, Turn{ConversationID: "c1", Text: "پیام سوم"})
	if h.completer.lastHistLn != 0 {
		t.Fatalf("post-rotation history = %d, want 0", h.completer.lastHistLn)
	}
}
