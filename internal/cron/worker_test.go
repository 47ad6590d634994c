package cron

import (
	"context"
	"testing"
	"time"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

func TestMarkOverdue(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	user := &models.User{Email: "owner@example.com", PasswordHash: "x", IsActive: true}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	uid := user.ID.String()

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	seed := map[string]map[string]interface{}{
		"late":    {"status": "pending", "dueDate": yesterday, "total": 5000.0},
		"ontime":  {"status": "pending", "dueDate": tomorrow, "total": 4000.0},
		"no-due":  {"status": "pending", "total": 3000.0},
		"settled": {"status": "paid", "dueDate": yesterday, "total": 2000.0},
	}
	for id, data := range seed {
		if err := store.Set(ctx, uid, docstore.CollectionBillingHistory, id, data); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	w := NewWorker(store, "60")
	if err := w.MarkOverdue(ctx); err != nil {
		t.Fatalf("mark overdue: %v", err)
	}

	want := map[string]string{
		"late":    "overdue",
		"ontime":  "pending",
		"no-due":  "pending",
		"settled": "paid",
	}
	for id, status := range want {
		doc, err := store.Get(ctx, uid, docstore.CollectionBillingHistory, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if doc.Data["status"] != status {
			t.Errorf("%s status = %v, want %s", id, doc.Data["status"], status)
		}
	}

	// A second sweep changes nothing.
	if err := w.MarkOverdue(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	doc, err := store.Get(ctx, uid, docstore.CollectionBillingHistory, "late")
	if err != nil {
		t.Fatalf("get late: %v", err)
	}
	if doc.Data["status"] != "overdue" {
		t.Errorf("late status after second sweep = %v", doc.Data["status"])
	}
}

func TestNextRun(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	w := NewWorker(docstore.NewMemoryStore(), "300")
	if got := w.nextRun(base); got != base.Add(5*time.Minute) {
		t.Errorf("seconds schedule next = %v", got)
	}

	w = NewWorker(docstore.NewMemoryStore(), "10 0 * * *")
	got := w.nextRun(base)
	if got.Hour() != 0 || got.Minute() != 10 || got.Day() != 11 {
		t.Errorf("cron schedule next = %v, want next 00:10", got)
	}

	w = NewWorker(docstore.NewMemoryStore(), "not-a-schedule")
	if got := w.nextRun(base); got != base.Add(24*time.Hour) {
		t.Errorf("fallback next = %v", got)
	}
}
