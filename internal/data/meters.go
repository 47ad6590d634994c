package data

import (
	"context"
	"fmt"

	"github.com/rentledger/rentledger/internal/billing"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Meter Reading Methods ==========

// meterQuery orders readings newest first by reading date
func meterQuery(roomID string) docstore.Query {
	q := docstore.Query{OrderBy: "date", Desc: true}
	if roomID != "" {
		q.FilterField = "roomId"
		q.FilterValue = roomID
	}
	return q
}

// SaveMeterReading stores a meter reading and returns its id. Consumption
// is derived from the two readings; when a rate is supplied the cost is
// derived too. Client-supplied values for either are ignored.
func (s *Service) SaveMeterReading(ctx context.Context, reading models.MeterReading) (string, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return "", err
	}

	reading.Consumption = billing.Consumption(reading.Reading, reading.PreviousReading)
	if reading.Rate > 0 {
		reading.Cost = billing.MeterCost(reading.Consumption, reading.Rate)
	}
	if reading.Date == "" {
		reading.Date = todayISO()
	}
	reading.CreatedAt = nowISO()

	data, err := docstore.Encode(reading)
	if err != nil {
		return "", fmt.Errorf("encode meter reading: %w", err)
	}

	if reading.ID != "" {
		if err := s.store.Set(ctx, uid, docstore.CollectionMeterReadings, reading.ID, data); err != nil {
			return "", err
		}
		return reading.ID, nil
	}
	return s.store.Add(ctx, uid, docstore.CollectionMeterReadings, data)
}

// MeterReadings returns readings newest first, optionally for one room
func (s *Service) MeterReadings(ctx context.Context, roomID string) ([]models.MeterReading, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, uid, docstore.CollectionMeterReadings, meterQuery(roomID))
	if err != nil {
		return nil, err
	}
	return decodeReadings(docs)
}

// LatestMeterReading returns the most recent reading for a room, or
// ErrNotFound when the room has none.
func (s *Service) LatestMeterReading(ctx context.Context, roomID string) (*models.MeterReading, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	q := meterQuery(roomID)
	q.Limit = 1
	docs, err := s.store.Query(ctx, uid, docstore.CollectionMeterReadings, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNotFound
	}

	var reading models.MeterReading
	if err := docs[0].DecodeInto(&reading); err != nil {
		return nil, fmt.Errorf("decode meter reading %s: %w", docs[0].ID, err)
	}
	return &reading, nil
}

// WatchMeterReadings pushes the reading list now and after every change
func (s *Service) WatchMeterReadings(ctx context.Context, roomID string, push func([]models.MeterReading)) (func(), error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	return s.store.Watch(ctx, uid, docstore.CollectionMeterReadings, meterQuery(roomID), func(docs []docstore.Document) {
		readings, err := decodeReadings(docs)
		if err != nil {
			return
		}
		push(readings)
	})
}

func decodeReadings(docs []docstore.Document) ([]models.MeterReading, error) {
	readings := make([]models.MeterReading, 0, len(docs))
	for _, doc := range docs {
		var reading models.MeterReading
		if err := doc.DecodeInto(&reading); err != nil {
			return nil, fmt.Errorf("decode meter reading %s: %w", doc.ID, err)
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
