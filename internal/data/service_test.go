package data

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/config"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := NewService(docstore.NewMemoryStore(), config.BillingConfig{})
	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: uuid.New()})
	t.Cleanup(svc.Shutdown)
	return svc, ctx
}

func TestUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SaveRoom(ctx, models.Room{ID: "1"}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("SaveRoom = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Rooms(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Rooms = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.SaveContract(ctx, models.Contract{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("SaveContract = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.DashboardSummary(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("DashboardSummary = %v, want ErrUnauthenticated", err)
	}
}

func TestSaveRoomStampsCreatedAtOnce(t *testing.T) {
	svc, ctx := newTestService(t)

	room := models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}
	if err := svc.SaveRoom(ctx, room); err != nil {
		t.Fatalf("save room: %v", err)
	}

	first, err := svc.GetRoom(ctx, "1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if first.CreatedAt == "" {
		t.Fatal("new room has no creation timestamp")
	}

	// Saving again must keep the original creation timestamp.
	room.Rent = 5500
	if err := svc.SaveRoom(ctx, room); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := svc.GetRoom(ctx, "1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("creation timestamp changed: %s -> %s", first.CreatedAt, second.CreatedAt)
	}
	if second.Rent != 5500 {
		t.Errorf("rent = %v, want 5500", second.Rent)
	}
}

func TestRoomsWithTotals(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.SaveRoom(ctx, models.Room{ID: "2", Rent: 4000, Water: 100, WiFi: 500, Electric: 15, Occupants: 2}); err != nil {
		t.Fatalf("save room: %v", err)
	}
	if err := svc.SaveRoom(ctx, models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}); err != nil {
		t.Fatalf("save room: %v", err)
	}

	rooms, err := svc.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if rooms[0].ID != "1" {
		t.Errorf("rooms not in id order: first is %s", rooms[0].ID)
	}
	if rooms[1].WaterTotal != 200 {
		t.Errorf("room 2 water total = %v, want 200", rooms[1].WaterTotal)
	}
	if rooms[1].FixedMonthlyTotal != 4700 {
		t.Errorf("room 2 fixed total = %v, want 4700", rooms[1].FixedMonthlyTotal)
	}
}

func TestContractConflict(t *testing.T) {
	svc, ctx := newTestService(t)

	first := models.Contract{RoomID: "1", Tenant: "Ana", StartDate: "2026-01-01"}
	id, err := svc.SaveContract(ctx, first)
	if err != nil {
		t.Fatalf("save contract: %v", err)
	}

	saved, err := svc.GetContract(ctx, id)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if saved.Status != models.ContractStatusActive {
		t.Errorf("status = %s, want active by default", saved.Status)
	}

	// A second open contract for the same room must be rejected.
	_, err = svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ben", StartDate: "2026-02-01"})
	if !errors.Is(err, ErrContractConflict) {
		t.Fatalf("second open contract = %v, want ErrContractConflict", err)
	}

	// A different room is fine, as is a closed contract for the same room.
	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "2", Tenant: "Ben", StartDate: "2026-02-01"}); err != nil {
		t.Fatalf("contract for other room: %v", err)
	}
	if _, err := svc.SaveContract(ctx, models.Contract{
		RoomID: "1", Tenant: "Old", StartDate: "2024-01-01",
		Status: models.ContractStatusExpired,
	}); err != nil {
		t.Fatalf("expired contract for same room: %v", err)
	}

	// After termination the room frees up.
	if err := svc.TerminateContract(ctx, id); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ben", StartDate: "2026-02-01"}); err != nil {
		t.Fatalf("contract after termination: %v", err)
	}
}

func TestContractConflictDisabled(t *testing.T) {
	off := false
	svc := NewService(docstore.NewMemoryStore(), config.BillingConfig{EnforceSingleActiveContract: &off})
	t.Cleanup(svc.Shutdown)
	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: uuid.New()})

	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ana"}); err != nil {
		t.Fatalf("save contract: %v", err)
	}
	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ben"}); err != nil {
		t.Fatalf("second contract with rule off: %v", err)
	}
}

func TestUpdateContractKeepsOmittedFields(t *testing.T) {
	svc, ctx := newTestService(t)

	id, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ana", StartDate: "2026-01-01"})
	if err != nil {
		t.Fatalf("save contract: %v", err)
	}

	// An update carrying only tenant details must not blank out status,
	// type or room.
	if err := svc.UpdateContract(ctx, id, models.Contract{Tenant: "Ana Marie", StartDate: "2026-02-01"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	c, err := svc.GetContract(ctx, id)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if c.Status != models.ContractStatusActive {
		t.Errorf("status = %q, want active", c.Status)
	}
	if c.Type != models.ContractTypeFixedTerm {
		t.Errorf("type = %q, want fixed-term", c.Type)
	}
	if c.RoomID != "1" {
		t.Errorf("room = %q, want 1", c.RoomID)
	}
	if c.Tenant != "Ana Marie" || c.StartDate != "2026-02-01" {
		t.Errorf("updated fields = %s / %s", c.Tenant, c.StartDate)
	}

	// The contract still counts as active everywhere downstream.
	active, err := svc.ActiveContracts(ctx)
	if err != nil {
		t.Fatalf("active contracts: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active contracts = %d, want 1", len(active))
	}
	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ben", StartDate: "2026-03-01"}); !errors.Is(err, ErrContractConflict) {
		t.Errorf("second contract after update = %v, want ErrContractConflict", err)
	}
}

func TestTerminateAndRenewContract(t *testing.T) {
	svc, ctx := newTestService(t)

	id, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ana", StartDate: "2026-01-01", EndDate: "2027-01-01"})
	if err != nil {
		t.Fatalf("save contract: %v", err)
	}

	if err := svc.TerminateContract(ctx, id); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	c, err := svc.GetContract(ctx, id)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if c.Status != models.ContractStatusTerminated {
		t.Errorf("status = %s, want terminated", c.Status)
	}
	if c.EndDate != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("end date = %s, want today", c.EndDate)
	}

	// Terminated contracts do not renew.
	if err := svc.RenewContract(ctx, id, "2028-01-01"); err == nil {
		t.Fatal("renew of terminated contract succeeded")
	}

	// An expired contract renews back to active.
	id2, err := svc.SaveContract(ctx, models.Contract{
		RoomID: "2", Tenant: "Ben", StartDate: "2025-01-01", EndDate: "2026-01-01",
		Status: models.ContractStatusExpired,
	})
	if err != nil {
		t.Fatalf("save contract: %v", err)
	}
	if err := svc.RenewContract(ctx, id2, "2027-01-01"); err != nil {
		t.Fatalf("renew: %v", err)
	}
	c, err = svc.GetContract(ctx, id2)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if c.Status != models.ContractStatusActive || c.EndDate != "2027-01-01" {
		t.Errorf("renewed contract = %s until %s, want active until 2027-01-01", c.Status, c.EndDate)
	}
}

func TestMeterReadings(t *testing.T) {
	svc, ctx := newTestService(t)

	id, err := svc.SaveMeterReading(ctx, models.MeterReading{
		RoomID: "1", Reading: 1500, PreviousReading: 1000,
		Date: "2026-01-15", Month: "1", Year: "2026", Rate: 15,
		Consumption: 999, // client value, must be recomputed
	})
	if err != nil {
		t.Fatalf("save reading: %v", err)
	}
	if id == "" {
		t.Fatal("save reading returned empty id")
	}

	if _, err := svc.SaveMeterReading(ctx, models.MeterReading{
		RoomID: "1", Reading: 1800, PreviousReading: 1500,
		Date: "2026-02-15", Month: "2", Year: "2026",
	}); err != nil {
		t.Fatalf("save reading: %v", err)
	}

	readings, err := svc.MeterReadings(ctx, "1")
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].Date != "2026-02-15" {
		t.Errorf("readings not newest first: %s", readings[0].Date)
	}

	latest, err := svc.LatestMeterReading(ctx, "1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Consumption != 300 {
		t.Errorf("latest consumption = %v, want 300", latest.Consumption)
	}

	older := readings[1]
	if older.Consumption != 500 {
		t.Errorf("consumption = %v, want recomputed 500", older.Consumption)
	}
	if older.Cost != 7500 {
		t.Errorf("cost = %v, want 7500", older.Cost)
	}

	if _, err := svc.LatestMeterReading(ctx, "9"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("latest for empty room = %v, want ErrNotFound", err)
	}
}

func TestGenerateBillingRecord(t *testing.T) {
	svc, ctx := newTestService(t)

	room := models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}
	if err := svc.SaveRoom(ctx, room); err != nil {
		t.Fatalf("save room: %v", err)
	}

	record, err := svc.GenerateBillingRecord(ctx, "1", "1", "2026", 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if record.ID == "" {
		t.Fatal("generated record has no id")
	}
	if record.Total != 13100 {
		t.Errorf("total = %v, want 13100", record.Total)
	}
	if record.Status != models.BillingStatusPending {
		t.Errorf("status = %s, want pending", record.Status)
	}

	// Unknown room propagates not-found.
	if _, err := svc.GenerateBillingRecord(ctx, "9", "1", "2026", 100); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("unknown room = %v, want ErrNotFound", err)
	}

	history, err := svc.BillingHistory(ctx, "1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d records, want 1", len(history))
	}
}

func TestMarkBillingPaid(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.SaveRoom(ctx, models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}); err != nil {
		t.Fatalf("save room: %v", err)
	}
	record, err := svc.GenerateBillingRecord(ctx, "1", "1", "2026", 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := svc.MarkBillingPaid(ctx, record.ID, models.PaymentMethodBankTransfer); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	history, err := svc.BillingHistory(ctx, "1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	paid := history[0]
	if paid.Status != models.BillingStatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}
	if paid.PaidDate == "" || paid.PaymentMethod != models.PaymentMethodBankTransfer {
		t.Errorf("paid record = %+v", paid)
	}

	// Marking again is a no-op, not an error.
	if err := svc.MarkBillingPaid(ctx, record.ID, models.PaymentMethodCash); err != nil {
		t.Fatalf("second mark paid: %v", err)
	}

	if err := svc.MarkBillingPaid(ctx, "missing", models.PaymentMethodCash); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing record = %v, want ErrNotFound", err)
	}
}

func TestDashboardSummary(t *testing.T) {
	svc, ctx := newTestService(t)

	for _, room := range []models.Room{
		{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1},
		{ID: "2", Rent: 4000, Water: 100, WiFi: 500, Electric: 15, Occupants: 2},
		{ID: "3", Rent: 3500, Water: 120, WiFi: 400, Electric: 12, Occupants: 1},
	} {
		if err := svc.SaveRoom(ctx, room); err != nil {
			t.Fatalf("save room: %v", err)
		}
	}
	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ana"}); err != nil {
		t.Fatalf("save contract: %v", err)
	}

	now := time.Now()
	record, err := svc.GenerateBillingRecord(ctx, "1",
		strconv.Itoa(int(now.Month())), strconv.Itoa(now.Year()), 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	summary, err := svc.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRooms != 3 {
		t.Errorf("total rooms = %d, want 3", summary.TotalRooms)
	}
	if summary.ActiveContracts != 1 {
		t.Errorf("active contracts = %d, want 1", summary.ActiveContracts)
	}
	if summary.OccupancyRate != 33 {
		t.Errorf("occupancy = %d, want 33", summary.OccupancyRate)
	}
	if summary.MonthlyRevenue != record.Total {
		t.Errorf("revenue = %v, want %v", summary.MonthlyRevenue, record.Total)
	}
}

func TestInitializeDefaultDataIdempotent(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.InitializeDefaultData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.InitializeDefaultData(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	rooms, err := svc.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("got %d rooms after double seed, want 3", len(rooms))
	}

	readings, err := svc.MeterReadings(ctx, "")
	if err != nil {
		t.Fatalf("readings: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings after double seed, want 3", len(readings))
	}
	for _, r := range readings {
		if r.Consumption <= 0 {
			t.Errorf("reading %s has consumption %v", r.ID, r.Consumption)
		}
	}
}

func TestWatchBillingHistory(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.SaveRoom(ctx, models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}); err != nil {
		t.Fatalf("save room: %v", err)
	}

	pushes := make(chan []models.BillingRecord, 8)
	release, err := svc.WatchBillingHistory(ctx, "", func(records []models.BillingRecord) {
		pushes <- records
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer release()

	if records := <-pushes; len(records) != 0 {
		t.Fatalf("initial push has %d records, want 0", len(records))
	}

	if _, err := svc.GenerateBillingRecord(ctx, "1", "1", "2026", 500); err != nil {
		t.Fatalf("generate: %v", err)
	}

	select {
	case records := <-pushes:
		if len(records) != 1 {
			t.Fatalf("push has %d records, want 1", len(records))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no push after generate")
	}
}

func TestWatchMeterReadingsFiltered(t *testing.T) {
	svc, ctx := newTestService(t)

	if _, err := svc.SaveMeterReading(ctx, models.MeterReading{RoomID: "1", Reading: 1500, PreviousReading: 1000, Rate: 15}); err != nil {
		t.Fatalf("save reading: %v", err)
	}

	pushes := make(chan []models.MeterReading, 8)
	release, err := svc.WatchMeterReadings(ctx, "1", func(readings []models.MeterReading) {
		pushes <- readings
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer release()

	if readings := <-pushes; len(readings) != 1 || readings[0].RoomID != "1" {
		t.Fatalf("initial push = %+v, want one reading for room 1", readings)
	}

	// A reading for another room re-runs the watch query but stays
	// filtered out of the result set.
	if _, err := svc.SaveMeterReading(ctx, models.MeterReading{RoomID: "2", Reading: 900, PreviousReading: 600, Rate: 12}); err != nil {
		t.Fatalf("save other room: %v", err)
	}
	if _, err := svc.SaveMeterReading(ctx, models.MeterReading{RoomID: "1", Reading: 1600, PreviousReading: 1500, Rate: 15}); err != nil {
		t.Fatalf("save second reading: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case readings := <-pushes:
			for _, r := range readings {
				if r.RoomID != "1" {
					t.Fatalf("push contains reading for room %s", r.RoomID)
				}
			}
			if len(readings) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("no push with both room 1 readings")
		}
	}
}

func TestWatchDashboardSummary(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.SaveRoom(ctx, models.Room{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1}); err != nil {
		t.Fatalf("save room: %v", err)
	}

	pushes := make(chan models.DashboardSummary, 8)
	release, err := svc.WatchDashboardSummary(ctx, func(s models.DashboardSummary) {
		pushes <- s
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer release()

	if summary := <-pushes; summary.TotalRooms != 1 || summary.ActiveContracts != 0 {
		t.Fatalf("initial summary = %+v", summary)
	}

	if _, err := svc.SaveContract(ctx, models.Contract{RoomID: "1", Tenant: "Ana", StartDate: "2026-01-01"}); err != nil {
		t.Fatalf("save contract: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case summary := <-pushes:
			if summary.ActiveContracts == 1 && summary.OccupancyRate == 100 {
				return
			}
		case <-deadline:
			t.Fatal("no summary push after contract save")
		}
	}
}
