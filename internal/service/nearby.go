package service

import (
	"context"
	"strings"
	"time"

	"ipnote/internal/models"
)

type NearbyMode string

const (
	// NearbyTraffic derives neighbours from recent messages within the
	// requester's /24.
	NearbyTraffic NearbyMode = "traffic"
	// NearbySession lists every live socket session except the requester's.
	NearbySession NearbyMode = "session"
)

func (m NearbyMode) Valid() bool {
	return m == NearbyTraffic || m == NearbySession
}

const (
	nearbyLimit      = 200
	nearbyWindow     = 72 * time.Hour
	previewMaxLength = 80
	previewKeep      = 77
	isoMillis        = "2006-01-02T15:04:05.000Z"
)

func (s *MessageService) Nearby(ctx context.Context, requesterIP string) (*models.NearbyUsers, error) {
	if s.nearbyMode == NearbySession {
		return s.nearbyBySession(ctx, requesterIP)
	}
	return s.nearbyByTraffic(ctx, requesterIP)
}

func (s *MessageService) nearbyBySession(ctx context.Context, requesterIP string) (*models.NearbyUsers, error) {
	sessions, err := s.sessions.ListLiveSessions(ctx, requesterIP, nearbyLimit)
	if err != nil {
		return nil, err
	}
	users := make([]models.NearbyUser, 0, len(sessions))
	for _, session := range sessions {
		users = append(users, models.NearbyUser{
			IP:         session.IP,
			LastActive: session.ConnectedAt.UTC().Format(isoMillis),
		})
	}
	return &models.NearbyUsers{Me: requesterIP, Users: users}, nil
}

// nearbyByTraffic reports one row per address in the requester's /24 that
// sent or received a message in the last 72 hours. Counts are per direction
// from that address's point of view; the newest message supplies lastActive
// and the previews.
func (s *MessageService) nearbyByTraffic(ctx context.Context, requesterIP string) (*models.NearbyUsers, error) {
	result := &models.NearbyUsers{Me: requesterIP, Users: []models.NearbyUser{}}
	prefix := SubnetPrefix(requesterIP)
	if prefix == "" {
		return result, nil
	}
	network := prefix + "0/24"
	result.Network = &network

	since := s.now().Add(-nearbyWindow)
	messages, err := s.repo.RecentMessagesByPrefix(ctx, prefix, since, nearbyLimit)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	touch := func(ip string, msg *models.Message) *models.NearbyUser {
		if i, ok := index[ip]; ok {
			return &result.Users[i]
		}
		index[ip] = len(result.Users)
		result.Users = append(result.Users, models.NearbyUser{
			IP:            ip,
			LastActive:    msg.CreatedAt.UTC().Format(isoMillis),
			RecentSubject: msg.Subject,
			RecentPreview: BuildPreview(msg.Body),
		})
		return &result.Users[len(result.Users)-1]
	}

	// messages arrive newest first, so the first hit per address is its most recent
	for i := range messages {
		msg := &messages[i]
		if strings.HasPrefix(msg.FromIP, prefix) && msg.FromIP != requesterIP {
			touch(msg.FromIP, msg).SentCount++
		}
		if strings.HasPrefix(msg.ToIP, prefix) && msg.ToIP != requesterIP {
			touch(msg.ToIP, msg).ReceivedCount++
		}
	}
	return result, nil
}

// SubnetPrefix returns the first three octets of a dotted IPv4 address with a
// trailing dot ("10.0.0."), or "" for IPv6 and anything else.
func SubnetPrefix(ip string) string {
	if ip == "" || strings.Contains(ip, ":") {
		return ""
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ""
	}
	return parts[0] + "." + parts[1] + "." + parts[2] + "."
}

// BuildPreview trims body and shortens it to at most 80 characters, the last
// three being "..." when it was cut.
func BuildPreview(body string) *string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= previewMaxLength {
		return &trimmed
	}
	preview := string(runes[:previewKeep]) + "..."
	return &preview
}
