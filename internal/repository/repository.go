package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ipnote/internal/models"
	"ipnote/internal/service"
	"ipnote/internal/types"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// schema is shared by both drivers; only the timestamp column type differs.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	from_ip     VARCHAR(45) NOT NULL,
	to_ip       VARCHAR(45) NOT NULL,
	subject     VARCHAR(120),
	body        VARCHAR(2000) NOT NULL,
	status      VARCHAR(16) NOT NULL DEFAULT 'sent' CHECK (status IN ('sent', 'canceled', 'failed')),
	created_at  %[1]s NOT NULL,
	updated_at  %[1]s NOT NULL,
	canceled_at %[1]s
);
CREATE INDEX IF NOT EXISTS idx_messages_to_created ON messages (to_ip, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_from_created ON messages (from_ip, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_status_created ON messages (status, created_at DESC, id DESC);
CREATE TABLE IF NOT EXISTS connection_sessions (
	id              TEXT PRIMARY KEY,
	ip              VARCHAR(45) NOT NULL,
	connected_at    %[1]s NOT NULL,
	last_seen_at    %[1]s NOT NULL,
	disconnected_at %[1]s
);
CREATE INDEX IF NOT EXISTS idx_sessions_live ON connection_sessions (disconnected_at, connected_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON connection_sessions (disconnected_at, last_seen_at);
`

const messageColumns = `id, from_ip, to_ip, subject, body, status, created_at, updated_at, canceled_at`

type SQLRepo struct {
	db *sql.DB
}

var (
	_ service.MessageRepository = (*SQLRepo)(nil)
	_ service.SessionRepository = (*SQLRepo)(nil)
)

func NewPostgresRepo(connStr string) (*SQLRepo, error) {
	return open(DriverPostgres, connStr)
}

// NewSQLiteRepo opens (or creates) a SQLite database file. Used for local
// runs and by the repository tests.
func NewSQLiteRepo(path string) (*SQLRepo, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	return open(DriverSQLite, dsn)
}

func open(driver, dsn string) (*SQLRepo, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	tsType := "TIMESTAMPTZ"
	if driver == DriverSQLite {
		// go-sqlite3 only parses declared TIMESTAMP/DATETIME columns back into time.Time.
		tsType = "TIMESTAMP"
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range strings.Split(fmt.Sprintf(schema, tsType), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return &SQLRepo{db: db}, nil
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (` + messageColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.FromIP, msg.ToIP, nullString(msg.Subject), msg.Body, string(msg.Status),
		msg.CreatedAt, msg.UpdatedAt, nullTime(msg.CanceledAt))
	if err != nil {
		return fmt.Errorf("insert message %q: %w", msg.ID, err)
	}
	return nil
}

func (r *SQLRepo) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1;`
	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %q: %w", id, err)
	}
	return msg, nil
}

// CancelMessage moves a sent message to canceled. It returns types.ErrNoRows
// when the message exists but is no longer in the sent state.
func (r *SQLRepo) CancelMessage(ctx context.Context, id string, at time.Time) (*models.Message, error) {
	query := `UPDATE messages
	          SET status = $1, canceled_at = $2, updated_at = $2
	          WHERE id = $3 AND status = $4;`
	res, err := r.db.ExecContext(ctx, query, string(models.StatusCanceled), at, id, string(models.StatusSent))
	if err != nil {
		return nil, fmt.Errorf("cancel message %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read rows affected for cancel %q: %w", id, err)
	}
	msg, err := r.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, types.ErrNoRows
	}
	return msg, nil
}

func (r *SQLRepo) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete message %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for delete %q: %w", id, err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ListMessages returns up to limit messages matching filter, ordered by
// (created_at DESC, id DESC) and strictly after the given cursor message.
func (r *SQLRepo) ListMessages(ctx context.Context, filter service.MessageFilter, after *models.Message, limit int) ([]models.Message, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + messageColumns + ` FROM messages`)

	where := make([]string, 0, 4)
	args := make([]any, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ToIP != "" {
		where = append(where, "to_ip = "+next(filter.ToIP))
	}
	if filter.FromIP != "" {
		where = append(where, "from_ip = "+next(filter.FromIP))
	}
	if filter.Status != "" {
		where = append(where, "status = "+next(string(filter.Status)))
	}
	if after != nil {
		ts := next(after.CreatedAt)
		id := next(after.ID)
		where = append(where, "(created_at < "+ts+" OR (created_at = "+ts+" AND id < "+id+"))")
	}

	if len(where) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(where, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + next(limit))

	return r.queryMessages(ctx, query.String(), args...)
}

// RecentMessagesByPrefix returns messages created at or after since where
// either endpoint address starts with prefix, newest first.
func (r *SQLRepo) RecentMessagesByPrefix(ctx context.Context, prefix string, since time.Time, limit int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
	          WHERE created_at >= $1 AND (from_ip LIKE $2 OR to_ip LIKE $2)
	          ORDER BY created_at DESC, id DESC
	          LIMIT $3;`
	return r.queryMessages(ctx, query, since, prefix+"%", limit)
}

func (r *SQLRepo) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	results := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		results = append(results, *msg)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*models.Message, error) {
	var (
		msg        models.Message
		status     string
		subject    sql.NullString
		canceledAt sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.FromIP, &msg.ToIP, &subject, &msg.Body, &status,
		&msg.CreatedAt, &msg.UpdatedAt, &canceledAt); err != nil {
		return nil, err
	}
	msg.Status = models.Status(status)
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.UpdatedAt = msg.UpdatedAt.UTC()
	if subject.Valid {
		s := subject.String
		msg.Subject = &s
	}
	if canceledAt.Valid {
		t := canceledAt.Time.UTC()
		msg.CanceledAt = &t
	}
	return &msg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
