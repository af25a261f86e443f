package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"heraldbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Users ---

func (s *sqliteStore) UpsertUser(ctx context.Context, id int64, username, firstName string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(telegram_id, username, first_name, joined_at, last_active)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(telegram_id) DO UPDATE SET
		   username=excluded.username,
		   first_name=excluded.first_name,
		   last_active=excluded.last_active`,
		id, nullStr(username), nullStr(firstName), ts, ts,
	)
	return err
}

func (s *sqliteStore) SetUserBlocked(ctx context.Context, id int64, blocked bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_blocked = ? WHERE telegram_id = ?`, boolInt(blocked), id)
	return err
}

func (s *sqliteStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telegram_id FROM users WHERE is_blocked = 0 ORDER BY telegram_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&st.Total); err != nil {
		return Stats{}, err
	}
	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour).Format(time.RFC3339Nano)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE last_active >= ?`, cutoff).Scan(&st.Active7d); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_blocked = 1`).Scan(&st.Blocked); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *sqliteStore) DeleteBlockedUsers(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE is_blocked = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Settings ---

func (s *sqliteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sqliteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// --- Forward mapping ---

func (s *sqliteStore) SaveForward(ctx context.Context, adminChatID int64, adminMessageID int, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forward_mapping(admin_chat_id, admin_message_id, user_telegram_id, created_at)
		 VALUES(?,?,?,?)
		 ON CONFLICT(admin_chat_id, admin_message_id) DO UPDATE SET
		   user_telegram_id=excluded.user_telegram_id,
		   created_at=excluded.created_at`,
		adminChatID, adminMessageID, userID, now(),
	)
	return err
}

func (s *sqliteStore) LookupForward(ctx context.Context, adminChatID int64, adminMessageID int) (int64, bool, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_telegram_id FROM forward_mapping
		 WHERE admin_chat_id = ? AND admin_message_id = ?`,
		adminChatID, adminMessageID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// --- Broadcasts ---

func (s *sqliteStore) CreateBroadcast(ctx context.Context, total int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO broadcasts(started_at, total, status) VALUES(?,?,'running')`,
		now(), total,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) FinishBroadcast(ctx context.Context, id int64, success, failed int, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE broadcasts SET success = ?, failed = ?, status = ? WHERE id = ?`,
		success, failed, status, id,
	)
	return err
}

func (s *sqliteStore) Broadcast(ctx context.Context, id int64) (BroadcastRecord, bool, error) {
	var (
		rec       BroadcastRecord
		startedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, total, success, failed, status FROM broadcasts WHERE id = ?`,
		id).Scan(&rec.ID, &startedAt, &rec.Total, &rec.Success, &rec.Failed, &rec.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return BroadcastRecord{}, false, nil
	}
	if err != nil {
		return BroadcastRecord{}, false, err
	}
	rec.StartedAt = parseTime(startedAt)
	return rec, true, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
