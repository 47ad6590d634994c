package models

// MeterReading represents one electricity meter reading for a room
type MeterReading struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`

	Reading         float64 `json:"reading"`
	PreviousReading float64 `json:"previousReading"`
	// Consumption is reading - previousReading, computed at creation time
	Consumption float64 `json:"consumption"`

	Date  string `json:"date"` // ISO date (YYYY-MM-DD)
	Month string `json:"month"`
	Year  string `json:"year"`

	// Rate is the electricity rate at the time of the reading, Cost the
	// derived consumption cost. Both optional.
	Rate float64 `json:"rate,omitempty"`
	Cost float64 `json:"cost,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
}
