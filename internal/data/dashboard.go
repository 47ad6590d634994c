package data

import (
	"context"
	"strconv"
	"sync"

	"github.com/rentledger/rentledger/internal/billing"
	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Dashboard Methods ==========

// DashboardSummary computes the portfolio summary from the cached rooms
// and contracts plus the billing history for the current month.
func (s *Service) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	_, cache, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	rooms := cache.Snapshot(docstore.CollectionRooms)
	contracts, err := decodeContracts(cache.Snapshot(docstore.CollectionContracts))
	if err != nil {
		return nil, err
	}

	records, err := s.BillingHistory(ctx, "")
	if err != nil {
		return nil, err
	}

	return s.buildSummary(len(rooms), contracts, records), nil
}

// buildSummary does the pure aggregation
func (s *Service) buildSummary(totalRooms int, contracts []models.Contract, records []models.BillingRecord) *models.DashboardSummary {
	active := 0
	for _, c := range contracts {
		if c.Status == models.ContractStatusActive {
			active++
		}
	}

	now := s.now()
	month := strconv.Itoa(int(now.Month()))
	year := strconv.Itoa(now.Year())

	var revenue float64
	for _, r := range records {
		if sameMonth(r.Month, month) && r.Year == year {
			revenue += r.Total
		}
	}

	return &models.DashboardSummary{
		TotalRooms:      totalRooms,
		ActiveContracts: active,
		MonthlyRevenue:  revenue,
		OccupancyRate:   billing.OccupancyRate(active, totalRooms),
	}
}

// sameMonth compares month strings tolerating a leading zero ("8" == "08")
func sameMonth(a, b string) bool {
	if a == b {
		return true
	}
	ai, erra := strconv.Atoi(a)
	bi, errb := strconv.Atoi(b)
	return erra == nil && errb == nil && ai == bi
}

// WatchDashboardSummary pushes a fresh summary whenever rooms, contracts
// or billing history change. The returned func releases the watch.
func (s *Service) WatchDashboardSummary(ctx context.Context, push func(models.DashboardSummary)) (func(), error) {
	uid, cache, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	_, roomCh, cancelRooms := cache.Subscribe(docstore.CollectionRooms)
	_, contractCh, cancelContracts := cache.Subscribe(docstore.CollectionContracts)

	recompute := func() {
		rooms := cache.Snapshot(docstore.CollectionRooms)
		contracts, err := decodeContracts(cache.Snapshot(docstore.CollectionContracts))
		if err != nil {
			return
		}
		records, err := s.BillingHistory(ctx, "")
		if err != nil {
			return
		}
		push(*s.buildSummary(len(rooms), contracts, records))
	}

	// The billing watch fires the initial push; room and contract pushes
	// arrive through the subscription channels afterwards.
	releaseBilling, err := s.store.Watch(ctx, uid, docstore.CollectionBillingHistory,
		billingQuery(""), func([]docstore.Document) { recompute() })
	if err != nil {
		cancelRooms()
		cancelContracts()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-roomCh:
				if !ok {
					return
				}
				recompute()
			case _, ok := <-contractCh:
				if !ok {
					return
				}
				recompute()
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			cancelRooms()
			cancelContracts()
			releaseBilling()
		})
	}
	return release, nil
}
