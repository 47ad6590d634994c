// Package billing contains the pure rate arithmetic that turns a room's
// rates and a meter reading into billed amounts. Nothing here touches
// storage; room lookup is the caller's job.
package billing

import (
	"math"
	"time"

	"github.com/rentledger/rentledger/internal/models"
)

// round2 rounds a monetary value half-up to 2 decimal places. All derived
// amounts go through here so the rounding policy lives in one place.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WaterTotal is the room's flat water rate times its occupant count.
func WaterTotal(room models.Room) float64 {
	return round2(room.Water * float64(room.Occupants))
}

// FixedMonthlyTotal is everything billed regardless of metered usage:
// rent, wifi and the occupant-scaled water total.
func FixedMonthlyTotal(room models.Room) float64 {
	return round2(room.Rent + room.WiFi + WaterTotal(room))
}

// MeterCost is the cost of a metered consumption at a given rate.
func MeterCost(consumption, rate float64) float64 {
	return round2(consumption * rate)
}

// Consumption derives consumption from two meter readings.
func Consumption(reading, previousReading float64) float64 {
	return reading - previousReading
}

// GenerateBillingRecord builds a pending billing record for the given room
// and month from the supplied electricity consumption. The returned record
// has no id; the caller assigns one when persisting. Total always equals
// the sum of the four stored components.
func GenerateBillingRecord(room models.Room, month, year string, electricConsumption float64, now time.Time) models.BillingRecord {
	water := WaterTotal(room)
	electric := MeterCost(electricConsumption, room.Electric)
	total := round2(room.Rent + water + room.WiFi + electric)

	return models.BillingRecord{
		RoomID:   room.ID,
		Month:    month,
		Year:     year,
		Rent:     room.Rent,
		Water:    water,
		WiFi:     room.WiFi,
		Electric: electric,
		Total:    total,
		Date:     now.UTC().Format(time.RFC3339),
		Status:   models.BillingStatusPending,
	}
}

// OccupancyRate is activeContracts/totalRooms*100 rounded to the nearest
// integer. Zero rooms yields 0, never a division by zero.
func OccupancyRate(activeContracts, totalRooms int) int {
	if totalRooms == 0 {
		return 0
	}
	return int(math.Round(float64(activeContracts) / float64(totalRooms) * 100))
}
