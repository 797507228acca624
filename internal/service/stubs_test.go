package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ipnote/internal/models"
	"ipnote/internal/types"
)

type stubRepo struct {
	mu       sync.Mutex
	messages map[string]models.Message
	sessions []models.ConnectionSession
	failList error
}

func newStubRepo() *stubRepo {
	return &stubRepo{messages: make(map[string]models.Message)}
}

func (r *stubRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[msg.ID]; ok {
		return fmt.Errorf("duplicate id %s", msg.ID)
	}
	r.messages[msg.ID] = *msg
	return nil
}

func (r *stubRepo) GetMessage(_ context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &msg, nil
}

func (r *stubRepo) CancelMessage(_ context.Context, id string, at time.Time) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	if msg.Status != models.StatusSent {
		return nil, types.ErrNoRows
	}
	msg.Status = models.StatusCanceled
	msg.CanceledAt = &at
	msg.UpdatedAt = at
	r.messages[id] = msg
	return &msg, nil
}

func (r *stubRepo) DeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return types.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *stubRepo) ListMessages(_ context.Context, filter MessageFilter, after *models.Message, limit int) ([]models.Message, error) {
	if r.failList != nil {
		return nil, r.failList
	}
	out := r.sorted(func(m *models.Message) bool {
		if !filter.Matches(m) {
			return false
		}
		if after == nil {
			return true
		}
		return m.CreatedAt.Before(after.CreatedAt) || (m.CreatedAt.Equal(after.CreatedAt) && m.ID < after.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubRepo) RecentMessagesByPrefix(_ context.Context, prefix string, since time.Time, limit int) ([]models.Message, error) {
	out := r.sorted(func(m *models.Message) bool {
		return !m.CreatedAt.Before(since) &&
			(strings.HasPrefix(m.FromIP, prefix) || strings.HasPrefix(m.ToIP, prefix))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubRepo) sorted(keep func(*models.Message) bool) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, 0)
	for _, m := range r.messages {
		if keep(&m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *stubRepo) ListLiveSessions(_ context.Context, excludeIP string, limit int) ([]models.ConnectionSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ConnectionSession, 0)
	for _, s := range r.sessions {
		if s.DisconnectedAt == nil && s.IP != excludeIP {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.After(out[j].ConnectedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubRepo) TouchSessions(_ context.Context, ids []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		for i := range r.sessions {
			if r.sessions[i].ID == id && r.sessions[i].DisconnectedAt == nil {
				r.sessions[i].LastSeenAt = at
			}
		}
	}
	return nil
}

func (r *stubRepo) CloseStaleSessions(_ context.Context, cutoff, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed int64
	for i := range r.sessions {
		s := &r.sessions[i]
		lastSeen := s.LastSeenAt
		if lastSeen.IsZero() {
			lastSeen = s.ConnectedAt
		}
		if s.DisconnectedAt == nil && lastSeen.Before(cutoff) {
			t := at
			s.DisconnectedAt = &t
			closed++
		}
	}
	return closed, nil
}

type stubNotifier struct {
	mu       sync.Mutex
	incoming []models.Message
	updated  []models.Message
	deleted  []models.DeletedMessage
	fail     error
}

func (n *stubNotifier) EmitIncoming(_ context.Context, msg models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.incoming = append(n.incoming, msg)
	return n.fail
}

func (n *stubNotifier) EmitUpdate(_ context.Context, msg models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, msg)
	return n.fail
}

func (n *stubNotifier) EmitDeleted(_ context.Context, msg models.DeletedMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, msg)
	return n.fail
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("msg-%03d", n), nil
	}
}

func newTestService(repo *stubRepo, notifier Notifier, clock *fakeClock, mode NearbyMode) *MessageService {
	return NewMessageService(repo, repo, notifier, Options{
		NearbyMode: mode,
		Clock:      clock.Now,
		NewID:      sequentialIDs(),
	})
}
