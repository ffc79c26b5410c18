// Package scheduler runs the engine's periodic jobs: the expiry sweep that
// closes overdue digital leases, and the daily enqueue of the access-event
// retention task.
package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
)

// ExpirySweeper periodically force-closes digital leases past their planned
// end date. Hardcopy leases are never swept; late returns are settled with a
// fee instead.
type ExpirySweeper struct {
	db     *gorm.DB
	ledger *ledger.Repository

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

func NewExpirySweeper(db *gorm.DB, ledgerRepo *ledger.Repository) *ExpirySweeper {
	return &ExpirySweeper{
		db:     db,
		ledger: ledgerRepo,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start schedules the sweep. No-op when already running.
func (s *ExpirySweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.SweepOnce(time.Now()); err != nil {
			log.Printf("Expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true
	log.Printf("Expiry sweeper started with schedule %q", schedule)
	return nil
}

// Stop halts the scheduler, waiting for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	log.Printf("Expiry sweeper stopped")
}

// SweepOnce closes every digital lease overdue at the given instant. Each
// lease is handled in its own transaction so one failure does not roll back
// the rest of the sweep.
func (s *ExpirySweeper) SweepOnce(now time.Time) error {
	expired, err := s.ledger.FindExpiredDigital(now)
	if err != nil {
		return fmt.Errorf("find expired leases: %w", err)
	}

	var failed int
	for i := range expired {
		lease := expired[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			ledgerTx := s.ledger.WithTx(tx)

			// Re-read inside the transaction: the lease may have been
			// stopped or terminated since the query.
			current, err := ledgerTx.GetLease(lease.ID)
			if err != nil {
				return err
			}
			if current.State != entities.LeaseStateActive {
				return nil
			}

			if err := ledgerTx.AppendEvent(current.ID, &entities.AccessEvent{
				UserID:    current.UserID,
				Type:      entities.AccessEventRentalEnd,
				Timestamp: now,
				Details:   "rental period expired",
			}); err != nil {
				return err
			}
			return ledgerTx.UpdateLeaseState(current, entities.LeaseStateCompleted)
		})
		if err != nil {
			failed++
			log.Printf("Expiry sweep: lease %d failed: %v", lease.ID, err)
		}
	}

	if len(expired) > 0 {
		log.Printf("Expiry sweep closed %d/%d overdue digital leases", len(expired)-failed, len(expired))
	}
	if failed > 0 {
		return fmt.Errorf("expiry sweep: %d of %d leases failed", failed, len(expired))
	}
	return nil
}
