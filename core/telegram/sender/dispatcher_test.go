package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnqueueRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	defer d.Close()

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if ran != 5 {
		t.Fatalf("ran = %d, want 5", ran)
	}
}

func TestEnqueueAfterCloseReturnsClosed(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

// Close racing concurrent Enqueue calls must never panic on a send to
// the closed queue; late arrivals get ErrQueueClosed instead.
func TestCloseDuringConcurrentEnqueue(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 4})

	const producers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
				if err != nil && !errors.Is(err, ErrQueueClosed) && !errors.Is(err, ErrQueueFull) {
					t.Errorf("unexpected enqueue error: %v", err)
					return
				}
			}
		}()
	}
	close(start)
	d.Close()
	wg.Wait()

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("post-close err = %v, want ErrQueueClosed", err)
	}
}

func TestFailureCountTracksExhaustedJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 2, MaxRetries: 0, MaxDuration: time.Second})

	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		defer close(done)
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-done
	d.Close()

	if got := d.FailureCount(); got != 1 {
		t.Fatalf("failure count = %d, want 1", got)
	}
}
