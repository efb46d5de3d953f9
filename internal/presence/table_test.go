package presence

import (
	"sync"
	"testing"
)

type fakeConn struct {
	id     string
	userID int
	queue  chan []byte
	closed bool
}

func newFakeConn(id string, userID, capacity int) *fakeConn {
	return &fakeConn{id: id, userID: userID, queue: make(chan []byte, capacity)}
}

func (c *fakeConn) ID() string  { return c.id }
func (c *fakeConn) UserID() int { return c.userID }
func (c *fakeConn) Close()      { c.closed = true }

func (c *fakeConn) Enqueue(p []byte) bool {
	select {
	case c.queue <- p:
		return true
	default:
		return false
	}
}

func TestRegisterReportsFirstConnection(t *testing.T) {
	table := NewTable()

	if !table.Register(1, newFakeConn("a", 1, 1)) {
		t.Fatalf("first connection should report wasFirst")
	}
	if table.Register(1, newFakeConn("b", 1, 1)) {
		t.Fatalf("second connection should not report wasFirst")
	}
	if !table.IsOnline(1) {
		t.Fatalf("user with connections should be online")
	}
}

func TestDeregisterReportsLastConnection(t *testing.T) {
	table := NewTable()
	table.Register(1, newFakeConn("a", 1, 1))
	table.Register(1, newFakeConn("b", 1, 1))

	if table.Deregister(1, "a") {
		t.Fatalf("removing one of two connections should not report wasLast")
	}
	if !table.IsOnline(1) {
		t.Fatalf("user should stay online while a connection remains")
	}
	if !table.Deregister(1, "b") {
		t.Fatalf("removing the final connection should report wasLast")
	}
	if table.IsOnline(1) {
		t.Fatalf("user without connections should be offline")
	}
}

func TestDeregisterUnknownConnection(t *testing.T) {
	table := NewTable()
	table.Register(1, newFakeConn("a", 1, 1))

	if table.Deregister(1, "nope") {
		t.Fatalf("unknown connection id should not report wasLast")
	}
	if table.Deregister(2, "a") {
		t.Fatalf("unknown user should not report wasLast")
	}
	if !table.IsOnline(1) {
		t.Fatalf("user should still be online")
	}
}

func TestOnlineUserIDsSorted(t *testing.T) {
	table := NewTable()
	table.Register(3, newFakeConn("c", 3, 1))
	table.Register(1, newFakeConn("a", 1, 1))
	table.Register(2, newFakeConn("b", 2, 1))

	ids := table.OnlineUserIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("expected sorted ids [1 2 3], got %v", ids)
	}
}

func TestSendToUserCountsAcceptedOnly(t *testing.T) {
	table := NewTable()
	fast := newFakeConn("fast", 1, 4)
	slow := newFakeConn("slow", 1, 0)
	table.Register(1, fast)
	table.Register(1, slow)

	if sent := table.SendToUser(1, []byte("hi")); sent != 1 {
		t.Fatalf("expected 1 accepted delivery, got %d", sent)
	}
	if sent := table.SendToUser(2, []byte("hi")); sent != 0 {
		t.Fatalf("expected no deliveries for offline user, got %d", sent)
	}
}

func TestShutdownClosesEverything(t *testing.T) {
	table := NewTable()
	a := newFakeConn("a", 1, 1)
	b := newFakeConn("b", 2, 1)
	table.Register(1, a)
	table.Register(2, b)

	table.Shutdown()

	if !a.closed || !b.closed {
		t.Fatalf("all connections should be closed on shutdown")
	}
	if table.IsOnline(1) || table.IsOnline(2) {
		t.Fatalf("table should be empty after shutdown")
	}
}

func TestConcurrentRegisterDeregister(t *testing.T) {
	table := NewTable()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := newFakeConn(string(rune('a'+n%26))+"-conn", n%5, 1)
			table.Register(n%5, conn)
			table.IsOnline(n % 5)
			table.Deregister(n%5, conn.ID())
		}(i)
	}
	wg.Wait()

	if ids := table.OnlineUserIDs(); len(ids) != 0 {
		t.Fatalf("expected empty table after balanced churn, got %v", ids)
	}
}
