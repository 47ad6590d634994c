package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/rentledger/rentledger/internal/billing"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Room Methods ==========

// SaveRoom upserts a room under its landlord-assigned id. A new room gets
// a creation timestamp; an existing one keeps it and gets a fresh update
// timestamp. Unmentioned stored fields persist (merge write).
func (s *Service) SaveRoom(ctx context.Context, room models.Room) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}
	if room.ID == "" {
		return fmt.Errorf("%w: room id is required", docstore.ErrInvalidData)
	}

	room.UpdatedAt = nowISO()

	_, err = s.store.Get(ctx, uid, docstore.CollectionRooms, room.ID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		room.CreatedAt = room.UpdatedAt
	case err != nil:
		return fmt.Errorf("check room: %w", err)
	default:
		// Existing room: never overwrite the creation timestamp.
		room.CreatedAt = ""
	}

	// CreatedAt is omitempty: when cleared above it stays out of the
	// merge write and the stored value survives.
	data, err := docstore.Encode(room)
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}

	return s.store.Set(ctx, uid, docstore.CollectionRooms, room.ID, data)
}

// GetRoom reads one room directly from the store
func (s *Service) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, uid, docstore.CollectionRooms, id)
	if err != nil {
		return nil, err
	}

	var room models.Room
	if err := doc.DecodeInto(&room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &room, nil
}

// Rooms returns the cached room list in id order, each with its derived
// monthly totals.
func (s *Service) Rooms(ctx context.Context) ([]models.RoomWithTotals, error) {
	_, cache, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	docs := cache.Snapshot(docstore.CollectionRooms)
	rooms := make([]models.RoomWithTotals, 0, len(docs))
	for _, doc := range docs {
		var room models.Room
		if err := doc.DecodeInto(&room); err != nil {
			return nil, fmt.Errorf("decode room %s: %w", doc.ID, err)
		}
		rooms = append(rooms, models.RoomWithTotals{
			Room:              room,
			WaterTotal:        billing.WaterTotal(room),
			FixedMonthlyTotal: billing.FixedMonthlyTotal(room),
		})
	}
	return rooms, nil
}

// DeleteRoom removes a room. Contracts and history referencing it are
// kept; they carry the room id and remain meaningful on their own.
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, uid, docstore.CollectionRooms, id)
}
