package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ipnote/internal/models"
	"ipnote/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type SessionRecorder interface {
	CreateSession(ctx context.Context, session *models.ConnectionSession) error
	CloseSession(ctx context.Context, id string, at time.Time) error
}

// Gateway keeps the address -> connection registry and pushes lifecycle
// events to it. Events for an address with no open connection are dropped.
type Gateway struct {
	registry  *Registry
	sessions  SessionRecorder
	resolveIP func(*http.Request) string
	upgrader  websocket.Upgrader

	mu            sync.Mutex
	sessionByConn map[string]string
	active        sync.WaitGroup
}

var _ service.Notifier = (*Gateway)(nil)

func NewGateway(registry *Registry, sessions SessionRecorder, resolveIP func(*http.Request) string) *Gateway {
	return &Gateway{
		registry:  registry,
		sessions:  sessions,
		resolveIP: resolveIP,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessionByConn: make(map[string]string),
	}
}

// ServeWS upgrades the request and keeps the connection registered until it
// closes. The "ip" query parameter overrides header-based detection.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		ip = g.resolveIP(r)
	}
	if ip == "" {
		log.Warnf("Unable to resolve IP for socket from %s", r.RemoteAddr)
		http.Error(w, "unable to resolve client address", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade socket for %s: %v", ip, err)
		return
	}
	defer conn.Close()
	g.active.Add(1)
	defer g.active.Done()

	client := newClient(conn, ip)
	g.Connect(r.Context(), ip, client)
	defer g.Disconnect(context.Background(), ip, client)

	go client.writePump()
	client.readPump()
}

func (g *Gateway) Connect(ctx context.Context, ip string, conn Conn) {
	total := g.registry.Add(ip, conn)

	sessionID := uuid.NewString()
	g.mu.Lock()
	g.sessionByConn[conn.ID()] = sessionID
	g.mu.Unlock()

	session := &models.ConnectionSession{ID: sessionID, IP: ip, ConnectedAt: now()}
	if err := g.sessions.CreateSession(ctx, session); err != nil {
		log.WithError(err).Errorf("Failed to record connection for %s", ip)
	}
	log.Debugf("Client connected from %s. Total: %d", ip, total)
}

func (g *Gateway) Disconnect(ctx context.Context, ip string, conn Conn) {
	g.registry.Remove(ip, conn)

	g.mu.Lock()
	sessionID, ok := g.sessionByConn[conn.ID()]
	delete(g.sessionByConn, conn.ID())
	g.mu.Unlock()
	if !ok {
		return
	}
	if err := g.sessions.CloseSession(ctx, sessionID, now()); err != nil {
		log.WithError(err).Errorf("Failed to record disconnect for session %s", sessionID)
	}
	log.Debugf("Client disconnected from %s", ip)
}

// LiveSessionIDs returns the session ids of every connection currently
// registered with this gateway.
func (g *Gateway) LiveSessionIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.sessionByConn))
	for _, id := range g.sessionByConn {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown closes every registered connection and waits until their socket
// handlers have recorded the disconnect, or ctx is done. http.Server.Shutdown
// does not track hijacked connections, so this must run before the session
// store is closed.
func (g *Gateway) Shutdown(ctx context.Context) error {
	conns := g.registry.All()
	for _, conn := range conns {
		conn.Close()
	}
	log.Printf("Closing %d socket connections", len(conns))

	done := make(chan struct{})
	go func() {
		g.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) EmitIncoming(_ context.Context, msg models.Message) error {
	g.emitTo(msg.ToIP, models.EventMessageReceived, msg)
	return nil
}

func (g *Gateway) EmitUpdate(_ context.Context, msg models.Message) error {
	g.emitTo(msg.ToIP, models.EventMessageUpdated, msg)
	g.emitTo(msg.FromIP, models.EventMessageUpdated, msg)
	return nil
}

func (g *Gateway) EmitDeleted(_ context.Context, msg models.DeletedMessage) error {
	g.emitTo(msg.ToIP, models.EventMessageDeleted, msg)
	g.emitTo(msg.FromIP, models.EventMessageDeleted, msg)
	return nil
}

// Deliver pushes an event that arrived over the event bus.
func (g *Gateway) Deliver(event models.Event) {
	ctx := context.Background()
	switch {
	case event.Type == models.EventMessageReceived && event.Message != nil:
		_ = g.EmitIncoming(ctx, *event.Message)
	case event.Type == models.EventMessageUpdated && event.Message != nil:
		_ = g.EmitUpdate(ctx, *event.Message)
	case event.Type == models.EventMessageDeleted && event.Deleted != nil:
		_ = g.EmitDeleted(ctx, *event.Deleted)
	default:
		log.Warnf("Ignoring malformed %q event", event.Type)
	}
}

func (g *Gateway) emitTo(ip, event string, payload any) {
	frame := Frame{Event: event, Data: payload}
	for _, conn := range g.registry.Connections(ip) {
		if !conn.Send(frame) {
			log.Warnf("Dropped %s for %s: connection %s is not accepting frames", event, ip, conn.ID())
		}
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
