package convstate

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func TestSessionIDLazyCreation(t *testing.T) {
	s := NewStore("دوستانه", WithClock(fixedClock(1700000000)))

	var first, second string
	_ = s.With("42", func(cv *Conversation) error {
		first = cv.SessionID()
		second = cv.SessionID()
		return nil
	})

	if first != "42_1700000000" {
		t.Fatalf("session id = %q, want %q", first, "42_1700000000")
	}
	if second != first {
		t.Fatalf("repeated SessionID must be stable, got %q then %q", first, second)
	}
}

func TestRotateSessionAlwaysCreates(t *testing.T) {
	unix := int64(1700000000)
	s := NewStore("دوستانه", WithClock(func() time.Time {
		unix++
		return time.Unix(unix, 0)
	}))

	var before, after string
	_ = s.With("7", func(cv *Conversation) error {
		before = cv.SessionID()
		after = cv.RotateSession()
		return nil
	})

	if before == after {
		t.Fatalf("rotation must produce a fresh session id, got %q twice", before)
	}
	if !strings.HasPrefix(after, "7_") {
		t.Fatalf("session id %q must be prefixed by the conversation id", after)
	}
}

func TestDefaultToneAndOverride(t *testing.T) {
	s := NewStore("دوستانه")

	_ = s.With("1", func(cv *Conversation) error {
		if cv.Tone() != "دوستانه" {
			t.Fatalf("default tone = %q", cv.Tone())
		}
		cv.SetTone("رسمی")
		return nil
	})
	_ = s.With("1", func(cv *Conversation) error {
		if cv.Tone() != "رسمی" {
			t.Fatalf("tone after override = %q", cv.Tone())
		}
		return nil
	})
}

func TestTakePendingClearsKindAndModeTogether(t *testing.T) {
	s := NewStore("")

	_ = s.With("9", func(cv *Conversation) error {
		cv.AwaitBusinessInfo(ModeAppend)
		p := cv.TakePending()
		if p.Kind != PendingBusinessInfo || p.Mode != ModeAppend {
			t.Fatalf("taken pending = %+v", p)
		}
		if got := cv.Pending(); got != (Pending{}) {
			t.Fatalf("pending after take = %+v, want zero", got)
		}
		return nil
	})
}

// Two goroutines race to resolve the same armed operation; exactly one
// may observe it.
func TestConcurrentResolutionSingleWinner(t *testing.T) {
	s := NewStore("")
	_ = s.With("conv", func(cv *Conversation) error {
		cv.AwaitTone()
		return nil
	})

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = s.With("conv", func(cv *Conversation) error {
				if cv.TakePending().Kind == PendingTone {
					mu.Lock()
					wins++
					mu.Unlock()
				}
				return nil
			})
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one resolution, got %d", wins)
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	s := NewStore("")
	_ = s.With("a", func(cv *Conversation) error {
		cv.AwaitTone()
		return nil
	})
	_ = s.With("b", func(cv *Conversation) error {
		if cv.Pending().Kind != PendingNone {
			t.Fatalf("conversation b inherited pending state: %+v", cv.Pending())
		}
		return nil
	})
}
