package storage

import (
	"context"
	"path/filepath"
	"testing"

	"heraldbot/pkg/logx"
)

// both drivers must behave identically.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestUserLifecycle(t *testing.T) {
	for name, st := range openStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []int64{30, 10, 20} {
				if err := st.UpsertUser(ctx, id, "user", "name"); err != nil {
					t.Fatalf("UpsertUser(%d): %v", id, err)
				}
			}

			ids, err := st.ActiveUserIDs(ctx)
			if err != nil {
				t.Fatalf("ActiveUserIDs: %v", err)
			}
			if len(ids) != 3 || ids[0] != 10 || ids[1] != 20 || ids[2] != 30 {
				t.Fatalf("ActiveUserIDs = %v, want ordered [10 20 30]", ids)
			}

			if err := st.SetUserBlocked(ctx, 20, true); err != nil {
				t.Fatalf("SetUserBlocked: %v", err)
			}
			ids, err = st.ActiveUserIDs(ctx)
			if err != nil {
				t.Fatalf("ActiveUserIDs: %v", err)
			}
			if len(ids) != 2 || ids[0] != 10 || ids[1] != 30 {
				t.Fatalf("ActiveUserIDs after block = %v, want [10 30]", ids)
			}

			stats, err := st.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if stats.Total != 3 || stats.Blocked != 1 || stats.Active7d != 3 {
				t.Fatalf("Stats = %+v, want total=3 blocked=1 active=3", stats)
			}

			n, err := st.DeleteBlockedUsers(ctx)
			if err != nil {
				t.Fatalf("DeleteBlockedUsers: %v", err)
			}
			if n != 1 {
				t.Fatalf("deleted %d users, want 1", n)
			}
			stats, _ = st.Stats(ctx)
			if stats.Total != 2 || stats.Blocked != 0 {
				t.Fatalf("Stats after cleanup = %+v, want total=2 blocked=0", stats)
			}
		})
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	for name, st := range openStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.UpsertUser(ctx, 1, "old", "Old"); err != nil {
				t.Fatal(err)
			}
			if err := st.UpsertUser(ctx, 1, "new", "New"); err != nil {
				t.Fatal(err)
			}
			ids, err := st.ActiveUserIDs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 1 {
				t.Fatalf("got %d users after double upsert, want 1", len(ids))
			}
		})
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	for name, st := range openStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := st.GetSetting(ctx, "welcome"); err != nil || ok {
				t.Fatalf("GetSetting on empty store = ok=%v err=%v", ok, err)
			}
			if err := st.SetSetting(ctx, "welcome", "hi"); err != nil {
				t.Fatal(err)
			}
			if err := st.SetSetting(ctx, "welcome", "hello"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := st.GetSetting(ctx, "welcome")
			if err != nil || !ok {
				t.Fatalf("GetSetting = ok=%v err=%v", ok, err)
			}
			if v != "hello" {
				t.Fatalf("GetSetting = %q, want overwrite to win", v)
			}
		})
	}
}

func TestForwardMapping(t *testing.T) {
	for name, st := range openStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := st.LookupForward(ctx, -1, 5); err != nil || ok {
				t.Fatalf("LookupForward on empty store = ok=%v err=%v", ok, err)
			}
			if err := st.SaveForward(ctx, -1, 5, 42); err != nil {
				t.Fatal(err)
			}
			if err := st.SaveForward(ctx, -1, 5, 43); err != nil {
				t.Fatal(err)
			}
			id, ok, err := st.LookupForward(ctx, -1, 5)
			if err != nil || !ok {
				t.Fatalf("LookupForward = ok=%v err=%v", ok, err)
			}
			if id != 43 {
				t.Fatalf("LookupForward = %d, want last write 43", id)
			}
		})
	}
}

func TestBroadcastLifecycle(t *testing.T) {
	for name, st := range openStores(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := st.CreateBroadcast(ctx, 100)
			if err != nil {
				t.Fatalf("CreateBroadcast: %v", err)
			}

			rec, ok, err := st.Broadcast(ctx, id)
			if err != nil || !ok {
				t.Fatalf("Broadcast = ok=%v err=%v", ok, err)
			}
			if rec.Total != 100 || rec.Status != "running" {
				t.Fatalf("fresh record = %+v, want total=100 running", rec)
			}

			if err := st.FinishBroadcast(ctx, id, 90, 10, "completed"); err != nil {
				t.Fatalf("FinishBroadcast: %v", err)
			}
			rec, ok, err = st.Broadcast(ctx, id)
			if err != nil || !ok {
				t.Fatalf("Broadcast = ok=%v err=%v", ok, err)
			}
			if rec.Success != 90 || rec.Failed != 10 || rec.Status != "completed" {
				t.Fatalf("finished record = %+v", rec)
			}

			if _, ok, _ := st.Broadcast(ctx, id+999); ok {
				t.Fatal("lookup of unknown broadcast id succeeded")
			}
		})
	}
}
