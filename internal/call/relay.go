package call

import (
	"sync"
	"time"

	"chat-relay/internal/models"
)

type State string

const (
	StateRinging  State = "ringing"
	StateAccepted State = "accepted"
	StateEnded    State = "ended"
)

// Session is the ephemeral record for one 1:1 call. The relay never
// inspects or persists signaling payloads.
type Session struct {
	ID           string
	ChatID       int
	InitiatorID  int
	Kind         string
	Participants map[int]bool
	State        State
	StartedAt    time.Time
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Participants = make(map[int]bool, len(s.Participants))
	for id := range s.Participants {
		cp.Participants[id] = true
	}
	return &cp
}

// OtherParticipants returns every participant except userID.
func (s *Session) OtherParticipants(userID int) []int {
	var out []int
	for id := range s.Participants {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// Relay owns the call-session table. All mutation is serialized by one
// mutex; signal payloads pass through without touching session state.
type Relay struct {
	mu    sync.Mutex
	calls map[string]*Session
	clock func() time.Time
}

func NewRelay() *Relay {
	return &Relay{
		calls: make(map[string]*Session),
		clock: time.Now,
	}
}

func (r *Relay) Initiate(callID string, chatID, callerID int, kind string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[callID]; exists {
		return nil, &models.ValidationError{Reason: "call already exists"}
	}
	sess := &Session{
		ID:           callID,
		ChatID:       chatID,
		InitiatorID:  callerID,
		Kind:         kind,
		Participants: map[int]bool{callerID: true},
		State:        StateRinging,
		StartedAt:    r.clock(),
	}
	r.calls[callID] = sess
	return sess.clone(), nil
}

func (r *Relay) Get(callID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.calls[callID]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// Respond transitions a ringing call: accepted adds the responder to the
// participant set, declined discards the session.
func (r *Relay) Respond(callID string, responderID int, accepted bool) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.calls[callID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "call"}
	}
	if accepted {
		sess.Participants[responderID] = true
		sess.State = StateAccepted
		return sess.clone(), nil
	}
	sess.State = StateEnded
	delete(r.calls, callID)
	return sess.clone(), nil
}

// End removes the session regardless of state. Ending an unknown call is a
// no-op, not an error.
func (r *Relay) End(callID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.calls[callID]
	if !ok {
		return nil, false
	}
	sess.State = StateEnded
	delete(r.calls, callID)
	return sess.clone(), true
}

// Departure describes one session a disconnected identity left behind.
type Departure struct {
	Session   *Session
	Remaining []int
}

// DropIdentity removes userID from every session it participates in. A
// session with nobody left is discarded; otherwise the record survives
// until the peer's explicit end. Returns one departure per affected session
// so the gateway can notify the remaining participants.
func (r *Relay) DropIdentity(userID int) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Departure
	for id, sess := range r.calls {
		if !sess.Participants[userID] {
			continue
		}
		delete(sess.Participants, userID)
		remaining := sess.OtherParticipants(userID)
		if len(remaining) == 0 {
			delete(r.calls, id)
		}
		out = append(out, Departure{Session: sess.clone(), Remaining: remaining})
	}
	return out
}

func (r *Relay) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *Relay) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]*Session)
}
