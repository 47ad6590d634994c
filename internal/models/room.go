package models

// Room represents a rentable room and its monthly rates.
// The id is assigned by the landlord (e.g. "1", "2A") and doubles as the
// document id in the rooms collection.
type Room struct {
	ID string `json:"id"`

	// Monthly rates
	Rent     float64 `json:"rent"`
	Water    float64 `json:"water"`    // flat rate per occupant
	WiFi     float64 `json:"wifi"`     // flat monthly fee
	Electric float64 `json:"electric"` // rate per consumption unit

	Occupants int `json:"occupants"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RoomWithTotals is a Room plus the derived monthly totals, used by
// list views so the client does not recompute rates.
type RoomWithTotals struct {
	Room
	WaterTotal        float64 `json:"waterTotal"`
	FixedMonthlyTotal float64 `json:"fixedMonthlyTotal"`
}
