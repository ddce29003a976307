package reservations

import (
	"context"
	"sync"
	"time"

	"ticketry/pkg/logger"
)

// Reaper sweeps expired reservations in the background and returns
// their inventory. A sweep is idempotent: the row delete decides
// ownership, so overlapping sweeps or a racing explicit cancel release
// each reservation at most once.
type Reaper struct {
	service   *service
	interval  time.Duration
	batchSize int
	log       *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewReaper(svc Service, interval time.Duration, batchSize int, log *logger.Logger) *Reaper {
	if interval <= 0 || interval > time.Minute {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{
		service:   svc.(*service),
		interval:  interval,
		batchSize: batchSize,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart clears any backlog without waiting a full interval.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		defer close(r.done)

		r.Sweep(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Sweep releases one batch of expired reservations. Individual failures
// are logged and skipped; the next pass retries them.
func (r *Reaper) Sweep(ctx context.Context) (released int) {
	start := time.Now()
	now := start.UTC()

	expired, err := r.service.repo.FindExpired(ctx, now, r.batchSize)
	if err != nil {
		r.log.ErrorWithContext(ctx, "reaper scan failed", err, nil)
		return 0
	}

	for i := range expired {
		res := &expired[i]

		won, err := r.service.repo.DeleteByID(ctx, res.ID)
		if err != nil {
			r.log.ErrorWithContext(ctx, "reaper delete failed", err, map[string]interface{}{
				"reservation_id": res.ID,
			})
			continue
		}
		if !won {
			continue
		}

		if err := r.service.rollbackHold(ctx, res); err != nil {
			r.log.ErrorWithContext(ctx, "reaper rollback failed", err, map[string]interface{}{
				"reservation_id": res.ID,
				"event_id":       res.EventID.String(),
			})
			continue
		}

		r.service.invalidate(ctx, res.EventID)
		r.log.LogReservationReleased(ctx, res.ID, res.EventID.String(), "expired")
		if r.service.notifier != nil {
			r.service.notifier.ReservationExpired(ctx, res)
		}
		released++
	}

	r.log.LogReaperSweep(ctx, len(expired), released, time.Since(start))
	return released
}
