package realtime

import "sync"

// Conn is one open push connection.
type Conn interface {
	ID() string
	// Send queues a frame without blocking and reports whether it was accepted.
	Send(frame Frame) bool
	// Close terminates the connection; its handler then disconnects it.
	Close()
}

type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry maps an address to the connections currently open for it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]Conn)}
}

// Add registers conn under ip and returns how many connections ip now has.
func (r *Registry) Add(ip string, conn Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[ip]
	if !ok {
		set = make(map[string]Conn)
		r.conns[ip] = set
	}
	set[conn.ID()] = conn
	return len(set)
}

// Remove unregisters conn, dropping the address entry once it is empty.
func (r *Registry) Remove(ip string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[ip]
	if !ok {
		return
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(r.conns, ip)
	}
}

// Connections returns a snapshot of the connections open for ip.
func (r *Registry) Connections(ip string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[ip]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0)
	for _, set := range r.conns {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Count(ip string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[ip])
}

// Addresses reports how many distinct addresses have at least one connection.
func (r *Registry) Addresses() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
