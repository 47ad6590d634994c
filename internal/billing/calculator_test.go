package billing

import (
	"testing"
	"time"

	"github.com/rentledger/rentledger/internal/models"
)

func exampleRoom() models.Room {
	return models.Room{
		ID:        "1",
		Rent:      5000,
		Water:     100,
		WiFi:      500,
		Electric:  15,
		Occupants: 1,
	}
}

func TestWaterTotal(t *testing.T) {
	room := exampleRoom()
	if got := WaterTotal(room); got != 100 {
		t.Fatalf("WaterTotal = %v, want 100", got)
	}

	room.Occupants = 3
	if got := WaterTotal(room); got != 300 {
		t.Fatalf("WaterTotal with 3 occupants = %v, want 300", got)
	}
}

func TestFixedMonthlyTotal(t *testing.T) {
	room := exampleRoom()
	if got := FixedMonthlyTotal(room); got != 5600 {
		t.Fatalf("FixedMonthlyTotal = %v, want 5600", got)
	}

	// Always rent + wifi + waterTotal, whatever the occupant count.
	for occ := 1; occ <= 10; occ++ {
		room.Occupants = occ
		want := room.Rent + room.WiFi + WaterTotal(room)
		if got := FixedMonthlyTotal(room); got != want {
			t.Fatalf("occupants=%d: FixedMonthlyTotal = %v, want %v", occ, got, want)
		}
	}
}

func TestGenerateBillingRecord(t *testing.T) {
	room := exampleRoom()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rec := GenerateBillingRecord(room, "8", "2026", 500, now)

	if rec.Total != 13100 {
		t.Fatalf("Total = %v, want 13100", rec.Total)
	}
	if sum := rec.Rent + rec.Water + rec.WiFi + rec.Electric; sum != rec.Total {
		t.Fatalf("Total %v != component sum %v", rec.Total, sum)
	}
	if rec.Status != models.BillingStatusPending {
		t.Fatalf("Status = %q, want pending", rec.Status)
	}
	if rec.Month != "8" || rec.Year != "2026" || rec.RoomID != "1" {
		t.Fatalf("unexpected record identity: %+v", rec)
	}
	if rec.Date != "2026-08-30T12:00:00Z" {
		t.Fatalf("Date = %q", rec.Date)
	}
}

func TestGenerateBillingRecord_ComponentSumProperty(t *testing.T) {
	rooms := []models.Room{
		{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1},
		{ID: "2", Rent: 4000, Water: 100, WiFi: 500, Electric: 15, Occupants: 2},
		{ID: "3", Rent: 3500, Water: 120, WiFi: 400, Electric: 12, Occupants: 1},
		{ID: "4", Rent: 1234.56, Water: 33.33, WiFi: 99.99, Electric: 7.77, Occupants: 4},
	}
	consumptions := []float64{0, 1, 300, 367, 500, 123.45}

	now := time.Now()
	for _, room := range rooms {
		for _, c := range consumptions {
			rec := GenerateBillingRecord(room, "1", "2026", c, now)
			want := round2(room.Rent + room.Water*float64(room.Occupants) + room.WiFi + c*room.Electric)
			if rec.Total != want {
				t.Fatalf("room %s consumption %v: Total = %v, want %v", room.ID, c, rec.Total, want)
			}
			if sum := round2(rec.Rent + rec.Water + rec.WiFi + rec.Electric); sum != rec.Total {
				t.Fatalf("room %s consumption %v: Total %v != component sum %v", room.ID, c, rec.Total, sum)
			}
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.004, 1.0},
		{1.006, 1.01},
		{-1.006, -1.01},
		{0, 0},
		{959.3549999, 959.35},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMeterCost(t *testing.T) {
	if got := MeterCost(500, 15); got != 7500 {
		t.Fatalf("MeterCost = %v, want 7500", got)
	}
	if got := MeterCost(0, 15); got != 0 {
		t.Fatalf("MeterCost with zero consumption = %v, want 0", got)
	}
}

func TestConsumption(t *testing.T) {
	if got := Consumption(1500, 1000); got != 500 {
		t.Fatalf("Consumption = %v, want 500", got)
	}
}

func TestOccupancyRate(t *testing.T) {
	cases := []struct {
		active, rooms, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13}, // 12.5 rounds up
		{7, 9, 78},
	}
	for _, c := range cases {
		if got := OccupancyRate(c.active, c.rooms); got != c.want {
			t.Errorf("OccupancyRate(%d, %d) = %d, want %d", c.active, c.rooms, got, c.want)
		}
	}
}
