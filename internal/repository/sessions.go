package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ipnote/internal/models"
)

func (r *SQLRepo) CreateSession(ctx context.Context, session *models.ConnectionSession) error {
	lastSeen := session.LastSeenAt
	if lastSeen.IsZero() {
		lastSeen = session.ConnectedAt
	}
	query := `INSERT INTO connection_sessions (id, ip, connected_at, last_seen_at) VALUES ($1, $2, $3, $4);`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.IP, session.ConnectedAt, lastSeen); err != nil {
		return fmt.Errorf("insert connection session %q: %w", session.ID, err)
	}
	return nil
}

// CloseSession marks a session disconnected. Unknown or already closed
// sessions are left untouched and are not an error.
func (r *SQLRepo) CloseSession(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE connection_sessions
	          SET disconnected_at = $1
	          WHERE id = $2 AND disconnected_at IS NULL;`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("close connection session %q: %w", id, err)
	}
	return nil
}

func (r *SQLRepo) ListLiveSessions(ctx context.Context, excludeIP string, limit int) ([]models.ConnectionSession, error) {
	query := `SELECT id, ip, connected_at, last_seen_at FROM connection_sessions
	          WHERE disconnected_at IS NULL AND ip <> $1
	          ORDER BY connected_at DESC
	          LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, query, excludeIP, limit)
	if err != nil {
		return nil, fmt.Errorf("query live sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.ConnectionSession, 0)
	for rows.Next() {
		var s models.ConnectionSession
		if err := rows.Scan(&s.ID, &s.IP, &s.ConnectedAt, &s.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s.ConnectedAt = s.ConnectedAt.UTC()
		s.LastSeenAt = s.LastSeenAt.UTC()
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// TouchSessions sets last_seen_at on the open sessions among ids.
func (r *SQLRepo) TouchSessions(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(i+2)
	}
	query := `UPDATE connection_sessions
	          SET last_seen_at = $1
	          WHERE disconnected_at IS NULL AND id IN (` + strings.Join(placeholders, ", ") + `);`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch %d connection sessions: %w", len(ids), err)
	}
	return nil
}

// CloseStaleSessions closes every open session last seen before cutoff.
func (r *SQLRepo) CloseStaleSessions(ctx context.Context, cutoff, at time.Time) (int64, error) {
	query := `UPDATE connection_sessions
	          SET disconnected_at = $1
	          WHERE disconnected_at IS NULL AND last_seen_at < $2;`
	res, err := r.db.ExecContext(ctx, query, at, cutoff)
	if err != nil {
		return 0, fmt.Errorf("close stale sessions: %w", err)
	}
	return res.RowsAffected()
}
