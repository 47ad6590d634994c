package data

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Default Data ==========

// defaultRooms is the starter portfolio seeded for a brand-new account
var defaultRooms = []models.Room{
	{ID: "1", Rent: 5000, Water: 100, WiFi: 500, Electric: 15, Occupants: 1},
	{ID: "2", Rent: 4000, Water: 100, WiFi: 500, Electric: 15, Occupants: 2},
	{ID: "3", Rent: 3500, Water: 120, WiFi: 400, Electric: 12, Occupants: 1},
}

// defaultReadings are the matching starter meter readings; month, year
// and date are filled in at seed time.
var defaultReadings = []models.MeterReading{
	{RoomID: "1", Reading: 1500, PreviousReading: 1000},
	{RoomID: "2", Reading: 1167, PreviousReading: 800},
	{RoomID: "3", Reading: 900, PreviousReading: 600},
}

// InitializeDefaultData seeds the starter rooms and meter readings for
// the authenticated user. A user with any existing room is left alone,
// so calling it on every login is safe.
func (s *Service) InitializeDefaultData(ctx context.Context) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}

	existing, err := s.store.Query(ctx, uid, docstore.CollectionRooms, docstore.Query{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	log.Info().Str("user_id", uid).Msg("Seeding default data for new user")

	for _, room := range defaultRooms {
		if err := s.SaveRoom(ctx, room); err != nil {
			return err
		}
	}

	now := s.now()
	for _, reading := range defaultReadings {
		reading.Month = strconv.Itoa(int(now.Month()))
		reading.Year = strconv.Itoa(now.Year())
		reading.Date = now.UTC().Format("2006-01-02")
		if _, err := s.SaveMeterReading(ctx, reading); err != nil {
			return err
		}
	}

	return nil
}
