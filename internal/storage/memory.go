package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore is a map-backed Store for tests and throwaway runs. It mirrors
// the sqlite semantics, including ordered ActiveUserIDs.
type memoryStore struct {
	mu        sync.Mutex
	users     map[int64]*User
	settings  map[string]string
	forwards  map[forwardKey]int64
	runs      map[int64]*BroadcastRecord
	nextRunID int64
}

type forwardKey struct {
	chatID    int64
	messageID int
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{
		users:    map[int64]*User{},
		settings: map[string]string{},
		forwards: map[forwardKey]int64{},
		runs:     map[int64]*BroadcastRecord{},
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) UpsertUser(ctx context.Context, id int64, username, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nowT := time.Now()
	if u, ok := m.users[id]; ok {
		u.Username = username
		u.FirstName = firstName
		u.LastActive = nowT
		return nil
	}
	m.users[id] = &User{
		TelegramID: id,
		Username:   username,
		FirstName:  firstName,
		JoinedAt:   nowT,
		LastActive: nowT,
	}
	return nil
}

func (m *memoryStore) SetUserBlocked(ctx context.Context, id int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Blocked = blocked
	}
	return nil
}

func (m *memoryStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, u := range m.users {
		if !u.Blocked {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	var st Stats
	for _, u := range m.users {
		st.Total++
		if u.LastActive.After(cutoff) {
			st.Active7d++
		}
		if u.Blocked {
			st.Blocked++
		}
	}
	return st, nil
}

func (m *memoryStore) DeleteBlockedUsers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.users {
		if u.Blocked {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *memoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *memoryStore) SaveForward(ctx context.Context, adminChatID int64, adminMessageID int, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwards[forwardKey{adminChatID, adminMessageID}] = userID
	return nil
}

func (m *memoryStore) LookupForward(ctx context.Context, adminChatID int64, adminMessageID int) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.forwards[forwardKey{adminChatID, adminMessageID}]
	return id, ok, nil
}

func (m *memoryStore) CreateBroadcast(ctx context.Context, total int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRunID++
	m.runs[m.nextRunID] = &BroadcastRecord{
		ID:        m.nextRunID,
		StartedAt: time.Now(),
		Total:     total,
		Status:    "running",
	}
	return m.nextRunID, nil
}

func (m *memoryStore) FinishBroadcast(ctx context.Context, id int64, success, failed int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		r.Success = success
		r.Failed = failed
		r.Status = status
	}
	return nil
}

func (m *memoryStore) Broadcast(ctx context.Context, id int64) (BroadcastRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return *r, true, nil
	}
	return BroadcastRecord{}, false, nil
}
