package synccache

import (
	"context"
	"testing"
	"time"

	"github.com/rentledger/rentledger/internal/docstore"
)

func seedRoom(t *testing.T, store docstore.Store, uid, id string, rent float64) {
	t.Helper()
	err := store.Set(context.Background(), uid, docstore.CollectionRooms, id,
		map[string]interface{}{"rent": rent})
	if err != nil {
		t.Fatalf("seed room %s: %v", id, err)
	}
}

func waitPush(t *testing.T, ch <-chan []docstore.Document) []docstore.Document {
	t.Helper()
	select {
	case docs, ok := <-ch:
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return docs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push")
	}
	return nil
}

func TestCacheSnapshotAfterStart(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedRoom(t, store, "u1", "1", 5000)
	seedRoom(t, store, "u1", "2", 4000)

	cache := New("u1", store)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cache.Close()

	rooms := cache.Snapshot(docstore.CollectionRooms)
	if len(rooms) != 2 {
		t.Fatalf("snapshot has %d rooms, want 2", len(rooms))
	}
	if rooms[0].ID != "1" || rooms[1].ID != "2" {
		t.Fatalf("rooms out of order: %s, %s", rooms[0].ID, rooms[1].ID)
	}
}

func TestCacheSubscribePush(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedRoom(t, store, "u1", "1", 5000)

	cache := New("u1", store)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cache.Close()

	snapshot, ch, cancel := cache.Subscribe(docstore.CollectionRooms)
	defer cancel()
	if len(snapshot) != 1 {
		t.Fatalf("subscribe snapshot has %d rooms, want 1", len(snapshot))
	}

	seedRoom(t, store, "u1", "2", 4000)
	docs := waitPush(t, ch)
	if len(docs) != 2 {
		t.Fatalf("push has %d rooms, want 2", len(docs))
	}

	// A cancelled subscription must stop; its channel closes.
	cancel()
	cancel()
	seedRoom(t, store, "u1", "3", 3500)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("push received after cancel")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("channel not closed after cancel")
	}
}

func TestCacheConflation(t *testing.T) {
	store := docstore.NewMemoryStore()
	cache := New("u1", store)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cache.Close()

	_, ch, cancel := cache.Subscribe(docstore.CollectionRooms)
	defer cancel()

	// Several writes without draining; the subscriber must end up seeing
	// a set that contains all three rooms, not each intermediate set.
	for i, id := range []string{"1", "2", "3"} {
		seedRoom(t, store, "u1", id, float64(5000-i*500))
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case docs := <-ch:
			if len(docs) == 3 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the full result set")
		}
	}
}

func TestCacheUserScoped(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedRoom(t, store, "alice", "1", 5000)
	seedRoom(t, store, "bob", "1", 9999)

	cache := New("alice", store)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cache.Close()

	_, ch, cancel := cache.Subscribe(docstore.CollectionRooms)
	defer cancel()

	// Bob's writes must never reach Alice's cache.
	seedRoom(t, store, "bob", "2", 8888)
	select {
	case <-ch:
		t.Fatal("push received for another user's write")
	case <-time.After(200 * time.Millisecond):
	}

	rooms := cache.Snapshot(docstore.CollectionRooms)
	if len(rooms) != 1 {
		t.Fatalf("snapshot has %d rooms, want 1", len(rooms))
	}
}

func TestCacheClose(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedRoom(t, store, "u1", "1", 5000)

	cache := New("u1", store)
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, ch, cancel := cache.Subscribe(docstore.CollectionRooms)
	defer cancel()

	cache.Close()
	cache.Close()

	if got := cache.Snapshot(docstore.CollectionRooms); len(got) != 0 {
		t.Fatalf("snapshot after close has %d docs, want 0", len(got))
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("push received after close")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber channel not closed on close")
	}

	// Writes after close are silent.
	seedRoom(t, store, "u1", "2", 4000)
	if got := cache.Snapshot(docstore.CollectionRooms); len(got) != 0 {
		t.Fatalf("snapshot refilled after close: %d docs", len(got))
	}
}

func TestCacheContractsNewestFirst(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	for id, createdAt := range map[string]string{
		"old": "2025-01-01T00:00:00Z",
		"new": "2025-06-01T00:00:00Z",
	} {
		err := store.Set(ctx, "u1", docstore.CollectionContracts, id,
			map[string]interface{}{"createdAt": createdAt, "status": "active"})
		if err != nil {
			t.Fatalf("seed contract: %v", err)
		}
	}

	cache := New("u1", store)
	if err := cache.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cache.Close()

	contracts := cache.Snapshot(docstore.CollectionContracts)
	if len(contracts) != 2 {
		t.Fatalf("snapshot has %d contracts, want 2", len(contracts))
	}
	if contracts[0].ID != "new" {
		t.Fatalf("first contract is %s, want the newest", contracts[0].ID)
	}
}
