package typing

import (
	"sync"
	"time"
)

// Notify is invoked outside the tracker lock whenever an identity starts or
// stops typing in a chat.
type Notify func(chatID, userID int, typing bool)

type key struct {
	chatID int
	userID int
}

// Tracker keeps the ephemeral per-chat set of currently-typing identities.
// Entries expire after an idle window; a repeated start resets the timer
// instead of stacking a second one. Nothing here is persisted.
type Tracker struct {
	mu     sync.Mutex
	idle   time.Duration
	notify Notify
	timers map[key]*time.Timer
}

func NewTracker(idle time.Duration, notify Notify) *Tracker {
	return &Tracker{
		idle:   idle,
		notify: notify,
		timers: make(map[key]*time.Timer),
	}
}

func (t *Tracker) Start(chatID, userID int) {
	k := key{chatID: chatID, userID: userID}

	t.mu.Lock()
	if timer, ok := t.timers[k]; ok {
		timer.Reset(t.idle)
		t.mu.Unlock()
		return
	}
	t.timers[k] = time.AfterFunc(t.idle, func() { t.expire(k) })
	t.mu.Unlock()

	t.notify(chatID, userID, true)
}

func (t *Tracker) Stop(chatID, userID int) {
	k := key{chatID: chatID, userID: userID}

	t.mu.Lock()
	timer, ok := t.timers[k]
	if ok {
		timer.Stop()
		delete(t.timers, k)
	}
	t.mu.Unlock()

	if ok {
		t.notify(chatID, userID, false)
	}
}

// StopAll evicts the identity from every chat it was typing in, emitting a
// stop notification per chat. Used when the identity goes offline.
func (t *Tracker) StopAll(userID int) {
	t.mu.Lock()
	var stopped []key
	for k, timer := range t.timers {
		if k.userID == userID {
			timer.Stop()
			delete(t.timers, k)
			stopped = append(stopped, k)
		}
	}
	t.mu.Unlock()

	for _, k := range stopped {
		t.notify(k.chatID, k.userID, false)
	}
}

func (t *Tracker) IsTyping(chatID, userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[key{chatID: chatID, userID: userID}]
	return ok
}

func (t *Tracker) expire(k key) {
	t.mu.Lock()
	_, ok := t.timers[k]
	if ok {
		delete(t.timers, k)
	}
	t.mu.Unlock()

	if ok {
		t.notify(k.chatID, k.userID, false)
	}
}

// Shutdown cancels all timers without emitting notifications.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, timer := range t.timers {
		timer.Stop()
		delete(t.timers, k)
	}
}
