package presence

import (
	"sort"
	"sync"
)

// Connection is the handle the table keeps per live transport session.
type Connection interface {
	ID() string
	UserID() int
	Enqueue(payload []byte) bool
	Close()
}

// Table is the authoritative in-memory map of who is reachable right now.
// An identity is online iff it has at least one registered connection.
type Table struct {
	mu    sync.RWMutex
	conns map[int]map[string]Connection
}

func NewTable() *Table {
	return &Table{
		conns: make(map[int]map[string]Connection),
	}
}

// Register adds a connection for userID and reports whether it is the
// identity's first live connection.
func (t *Table) Register(userID int, conn Connection) (wasFirst bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.conns[userID]
	if set == nil {
		set = make(map[string]Connection)
		t.conns[userID] = set
	}
	wasFirst = len(set) == 0
	set[conn.ID()] = conn
	return wasFirst
}

// Deregister removes the connection and reports whether it was the
// identity's last one.
func (t *Table) Deregister(userID int, connID string) (wasLast bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.conns[userID]
	if set == nil {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.conns, userID)
		return true
	}
	return false
}

func (t *Table) IsOnline(userID int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns[userID]) > 0
}

func (t *Table) ConnectionsOf(userID int) []Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set := t.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (t *Table) OnlineUserIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]int, 0, len(t.conns))
	for id := range t.conns {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// SendToUser enqueues payload on every live connection of userID and returns
// how many connections accepted it.
func (t *Table) SendToUser(userID int, payload []byte) int {
	sent := 0
	for _, c := range t.ConnectionsOf(userID) {
		if c.Enqueue(payload) {
			sent++
		}
	}
	return sent
}

// Shutdown closes every registered connection and empties the table.
func (t *Table) Shutdown() {
	t.mu.Lock()
	var all []Connection
	for _, set := range t.conns {
		for _, c := range set {
			all = append(all, c)
		}
	}
	t.conns = make(map[int]map[string]Connection)
	t.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
