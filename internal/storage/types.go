package storage

import (
	"context"
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (the default for a running bot)
//   - "memory": in-process map store (tests, throwaway runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// User is a known recipient. Blocked is monotone-to-true from the broadcast
// engine's point of view; only the cleanup action removes blocked users.
type User struct {
	TelegramID int64
	Username   string
	FirstName  string
	JoinedAt   time.Time
	LastActive time.Time
	Blocked    bool
}

// Stats summarizes the user base for the admin panel.
type Stats struct {
	Total    int
	Active7d int
	Blocked  int
}

// BroadcastRecord is the persisted outcome of a broadcast run.
type BroadcastRecord struct {
	ID        int64
	StartedAt time.Time
	Total     int
	Success   int
	Failed    int
	Status    string
}

// Store is the persistence API used by the engine and the admin surface.
type Store interface {
	// Users. UpsertUser registers the user on first contact and refreshes
	// last_active on every later one.
	UpsertUser(ctx context.Context, id int64, username, firstName string) error
	SetUserBlocked(ctx context.Context, id int64, blocked bool) error
	ActiveUserIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (Stats, error)
	DeleteBlockedUsers(ctx context.Context) (int64, error)

	// Settings.
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	// Forward mapping: admin-group message -> originating user.
	SaveForward(ctx context.Context, adminChatID int64, adminMessageID int, userID int64) error
	LookupForward(ctx context.Context, adminChatID int64, adminMessageID int) (int64, bool, error)

	// Broadcast runs.
	CreateBroadcast(ctx context.Context, total int) (int64, error)
	FinishBroadcast(ctx context.Context, id int64, success, failed int, status string) error
	Broadcast(ctx context.Context, id int64) (BroadcastRecord, bool, error)

	Close() error
}
