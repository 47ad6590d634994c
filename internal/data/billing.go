package data

import (
	"context"
	"fmt"

	"github.com/rentledger/rentledger/internal/billing"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/metrics"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Billing Methods ==========

// billingQuery orders records newest first by generation timestamp
func billingQuery(roomID string) docstore.Query {
	q := docstore.Query{OrderBy: "date", Desc: true}
	if roomID != "" {
		q.FilterField = "roomId"
		q.FilterValue = roomID
	}
	return q
}

// SaveBillingRecord stores a billing record and returns its id
func (s *Service) SaveBillingRecord(ctx context.Context, record models.BillingRecord) (string, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return "", err
	}

	if record.Status == "" {
		record.Status = models.BillingStatusPending
	}
	if record.Date == "" {
		record.Date = nowISO()
	}
	record.CreatedAt = nowISO()

	data, err := docstore.Encode(record)
	if err != nil {
		return "", fmt.Errorf("encode billing record: %w", err)
	}

	if record.ID != "" {
		if err := s.store.Set(ctx, uid, docstore.CollectionBillingHistory, record.ID, data); err != nil {
			return "", err
		}
		return record.ID, nil
	}
	return s.store.Add(ctx, uid, docstore.CollectionBillingHistory, data)
}

// GenerateBillingRecord builds a bill for a room and month from the given
// electricity consumption, persists it as pending and returns it with its
// assigned id. An unknown room fails with ErrNotFound.
func (s *Service) GenerateBillingRecord(ctx context.Context, roomID, month, year string, electricConsumption float64) (*models.BillingRecord, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	record := billing.GenerateBillingRecord(*room, month, year, electricConsumption, s.now())
	id, err := s.SaveBillingRecord(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id

	metrics.IncBillingGenerated()
	return &record, nil
}

// MarkBillingPaid settles a pending or overdue bill
func (s *Service) MarkBillingPaid(ctx context.Context, id string, method models.PaymentMethod) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}

	doc, err := s.store.Get(ctx, uid, docstore.CollectionBillingHistory, id)
	if err != nil {
		return err
	}
	var record models.BillingRecord
	if err := doc.DecodeInto(&record); err != nil {
		return fmt.Errorf("decode billing record %s: %w", id, err)
	}
	if record.Status == models.BillingStatusPaid {
		return nil
	}
	if record.Status == models.BillingStatusCancelled {
		return fmt.Errorf("%w: billing record %s is cancelled", docstore.ErrInvalidData, id)
	}

	update := map[string]interface{}{
		"status":   string(models.BillingStatusPaid),
		"paidDate": todayISO(),
	}
	if method != "" {
		update["paymentMethod"] = string(method)
	}
	return s.store.Update(ctx, uid, docstore.CollectionBillingHistory, id, update)
}

// BillingHistory returns billing records newest first, optionally for
// one room.
func (s *Service) BillingHistory(ctx context.Context, roomID string) ([]models.BillingRecord, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, uid, docstore.CollectionBillingHistory, billingQuery(roomID))
	if err != nil {
		return nil, err
	}
	return decodeBillingRecords(docs)
}

// WatchBillingHistory pushes the billing list now and after every change
func (s *Service) WatchBillingHistory(ctx context.Context, roomID string, push func([]models.BillingRecord)) (func(), error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	return s.store.Watch(ctx, uid, docstore.CollectionBillingHistory, billingQuery(roomID), func(docs []docstore.Document) {
		records, err := decodeBillingRecords(docs)
		if err != nil {
			return
		}
		push(records)
	})
}

func decodeBillingRecords(docs []docstore.Document) ([]models.BillingRecord, error) {
	records := make([]models.BillingRecord, 0, len(docs))
	for _, doc := range docs {
		var record models.BillingRecord
		if err := doc.DecodeInto(&record); err != nil {
			return nil, fmt.Errorf("decode billing record %s: %w", doc.ID, err)
		}
		records = append(records, record)
	}
	return records, nil
}
