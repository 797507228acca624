package realtime

import (
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) received() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	a1 := &fakeConn{id: "a1"}
	a2 := &fakeConn{id: "a2"}
	b1 := &fakeConn{id: "b1"}

	if n := r.Add("10.0.0.5", a1); n != 1 {
		t.Errorf("expected 1 connection, got %d", n)
	}
	if n := r.Add("10.0.0.5", a2); n != 2 {
		t.Errorf("expected 2 connections, got %d", n)
	}
	r.Add("10.0.0.9", b1)

	if r.Addresses() != 2 {
		t.Errorf("expected 2 addresses, got %d", r.Addresses())
	}
	if len(r.Connections("10.0.0.5")) != 2 {
		t.Errorf("expected 2 connections for 10.0.0.5")
	}

	r.Remove("10.0.0.5", a1)
	if r.Count("10.0.0.5") != 1 {
		t.Errorf("expected 1 connection after remove, got %d", r.Count("10.0.0.5"))
	}
	r.Remove("10.0.0.5", a2)
	if r.Count("10.0.0.5") != 0 || r.Addresses() != 1 {
		t.Errorf("expected empty address to be pruned, addresses=%d", r.Addresses())
	}

	// unknown address and repeated removal are no-ops
	r.Remove("10.0.0.5", a2)
	r.Remove("192.168.0.1", b1)
	if r.Count("10.0.0.9") != 1 {
		t.Errorf("unrelated address must be untouched")
	}
	if got := r.Connections("192.168.0.1"); len(got) != 0 {
		t.Errorf("expected no connections, got %d", len(got))
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := &fakeConn{id: fmt.Sprintf("c%d", i)}
			r.Add("10.0.0.5", c)
			_ = r.Connections("10.0.0.5")
			r.Remove("10.0.0.5", c)
		}(i)
	}
	wg.Wait()
	if r.Addresses() != 0 {
		t.Errorf("expected registry to drain, got %d addresses", r.Addresses())
	}
}
