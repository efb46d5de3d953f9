package typing

import (
	"sync"
	"testing"
	"time"
)

type notification struct {
	chatID int
	userID int
	typing bool
}

type recorder struct {
	mu     sync.Mutex
	events []notification
}

func (r *recorder) notify(chatID, userID int, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notification{chatID: chatID, userID: userID, typing: typing})
}

func (r *recorder) snapshot() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.events...)
}

func (r *recorder) waitFor(t *testing.T, n int) []notification {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if events := r.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notifications, have %v", n, r.snapshot())
	return nil
}

func TestStartNotifiesOnceAndResets(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Hour, rec.notify)
	defer tracker.Shutdown()

	tracker.Start(10, 1)
	tracker.Start(10, 1)
	tracker.Start(10, 1)

	events := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("repeated starts should notify once, got %v", events)
	}
	if !events[0].typing || events[0].chatID != 10 || events[0].userID != 1 {
		t.Fatalf("unexpected notification %+v", events[0])
	}
	if !tracker.IsTyping(10, 1) {
		t.Fatalf("user should be typing after start")
	}
}

func TestStopNotifiesAndEvicts(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Hour, rec.notify)
	defer tracker.Shutdown()

	tracker.Start(10, 1)
	tracker.Stop(10, 1)

	events := rec.snapshot()
	if len(events) != 2 || events[1].typing {
		t.Fatalf("expected start then stop, got %v", events)
	}
	if tracker.IsTyping(10, 1) {
		t.Fatalf("user should not be typing after stop")
	}
}

func TestStopWithoutStartIsSilent(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Hour, rec.notify)
	defer tracker.Shutdown()

	tracker.Stop(10, 1)

	if events := rec.snapshot(); len(events) != 0 {
		t.Fatalf("stopping an idle user should not notify, got %v", events)
	}
}

func TestIdleTimeoutEvicts(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(20*time.Millisecond, rec.notify)
	defer tracker.Shutdown()

	tracker.Start(10, 1)

	events := rec.waitFor(t, 2)
	if events[1].typing {
		t.Fatalf("expiry should emit a stop notification, got %v", events)
	}
	if tracker.IsTyping(10, 1) {
		t.Fatalf("user should be evicted after the idle window")
	}
}

func TestStartResetsIdleTimer(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(60*time.Millisecond, rec.notify)
	defer tracker.Shutdown()

	tracker.Start(10, 1)
	time.Sleep(40 * time.Millisecond)
	tracker.Start(10, 1)
	time.Sleep(40 * time.Millisecond)

	// 80ms after the first start but only 40ms after the reset.
	if !tracker.IsTyping(10, 1) {
		t.Fatalf("reset start should keep the user typing past the original deadline")
	}
}

func TestStopAllEvictsEveryChat(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Hour, rec.notify)
	defer tracker.Shutdown()

	tracker.Start(10, 1)
	tracker.Start(20, 1)
	tracker.Start(10, 2)

	tracker.StopAll(1)

	if tracker.IsTyping(10, 1) || tracker.IsTyping(20, 1) {
		t.Fatalf("user 1 should be evicted everywhere")
	}
	if !tracker.IsTyping(10, 2) {
		t.Fatalf("other users should be unaffected")
	}

	stops := 0
	for _, e := range rec.snapshot() {
		if !e.typing && e.userID == 1 {
			stops++
		}
	}
	if stops != 2 {
		t.Fatalf("expected a stop notification per chat, got %d", stops)
	}
}

func TestShutdownIsSilent(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(20*time.Millisecond, rec.notify)

	tracker.Start(10, 1)
	tracker.Shutdown()
	time.Sleep(40 * time.Millisecond)

	if events := rec.snapshot(); len(events) != 1 {
		t.Fatalf("shutdown should cancel timers without notifying, got %v", events)
	}
	if tracker.IsTyping(10, 1) {
		t.Fatalf("no one should be typing after shutdown")
	}
}
