// Package cron runs the scheduled housekeeping jobs. The only job today
// marks pending bills overdue once their due date passes.
package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/metrics"
	"github.com/rentledger/rentledger/internal/models"
)

const jobName = "mark_overdue"

// Worker periodically sweeps billing history for overdue bills
type Worker struct {
	store    docstore.Store
	schedule string
}

// NewWorker creates a worker. schedule is either integer seconds or a
// standard cron expression.
func NewWorker(store docstore.Store, schedule string) *Worker {
	return &Worker{store: store, schedule: schedule}
}

// nextRun calculates the run after lastRun under the configured schedule
func (w *Worker) nextRun(lastRun time.Time) time.Time {
	if v, err := strconv.Atoi(w.schedule); err == nil && v > 0 {
		return lastRun.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(w.schedule); err == nil {
		return sched.Next(lastRun)
	}
	// Fallback: daily
	return lastRun.Add(24 * time.Hour)
}

// Run executes the sweep on schedule until ctx is cancelled. The first
// sweep runs immediately.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	nextRun := time.Now()

	log.Info().Str("schedule", w.schedule).Msg("Cron worker starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()
			err := w.MarkOverdue(ctx)
			metrics.UpdateJobMetrics(jobName, started, err)

			if err != nil {
				log.Error().Err(err).Str("job", jobName).Msg("Scheduled job failed")
			} else {
				log.Debug().Str("job", jobName).Dur("duration", time.Since(started)).Msg("Scheduled job completed")
			}

			nextRun = w.nextRun(time.Now())
		}
	}
}

// MarkOverdue flips every pending bill whose due date has passed to
// overdue, across all users. One failing record does not stop the sweep.
func (w *Worker) MarkOverdue(ctx context.Context) error {
	uids, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	var firstErr error
	flipped := 0

	for _, uid := range uids {
		docs, err := w.store.Query(ctx, uid, docstore.CollectionBillingHistory, docstore.Query{
			FilterField: "status",
			FilterValue: string(models.BillingStatusPending),
		})
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("query billing for %s: %w", uid, err)
			}
			continue
		}

		for _, doc := range docs {
			var record models.BillingRecord
			if err := doc.DecodeInto(&record); err != nil {
				continue
			}
			if record.DueDate == "" || record.DueDate >= today {
				continue
			}

			err := w.store.Update(ctx, uid, docstore.CollectionBillingHistory, doc.ID, map[string]interface{}{
				"status": string(models.BillingStatusOverdue),
			})
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("mark %s overdue: %w", doc.ID, err)
				}
				continue
			}
			flipped++
		}
	}

	if flipped > 0 {
		log.Info().Int("count", flipped).Msg("Marked bills overdue")
	}
	return firstErr
}
