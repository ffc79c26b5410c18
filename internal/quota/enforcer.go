// Package quota is admission control for concurrent digital consumption.
// It decides whether a user may open another ebook read or audiobook listen,
// given their subscription grant, and owns the digital leg of the lease
// lifecycle (start, stop, progress).
package quota

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/database/books"
	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/database/users"
	"github.com/libraria-al/libraria/internal/entities"
)

// ErrQuotaExceeded indicates the user already holds their maximum number of
// concurrent active sessions of this kind. An expected business outcome, not
// a system failure.
var ErrQuotaExceeded = errors.New("concurrent limit reached")

// ErrNotAvailable indicates the book has no digital edition of the
// requested kind.
var ErrNotAvailable = errors.New("book not available in this format")

// Snapshot describes a user's current quota position for one lease kind.
type Snapshot struct {
	CurrentActive int64
	MaxConcurrent int
	CanStartMore  bool
	HasAccess     bool // whether the user holds an active lease for the queried book
}

type Enforcer struct {
	db     *gorm.DB
	ledger *ledger.Repository
	users  *users.Repository
	books  *books.Repository

	// AudiobookRentalDays bounds audiobook leases; ebook subscription
	// reads are open-ended.
	AudiobookRentalDays int
}

func NewEnforcer(db *gorm.DB, ledgerRepo *ledger.Repository, usersRepo *users.Repository, booksRepo *books.Repository, audiobookRentalDays int) *Enforcer {
	return &Enforcer{
		db:                  db,
		ledger:              ledgerRepo,
		users:               usersRepo,
		books:               booksRepo,
		AudiobookRentalDays: audiobookRentalDays,
	}
}

// StartSession admits or denies a new concurrent session. The duplicate
// check, the active count, the limit comparison and the lease creation all
// run inside one transaction; with the database configured for immediate
// write transactions two racing starts cannot both observe a free slot.
//
// Returns ErrQuotaExceeded on a full quota, ledger.ErrDuplicateActiveLease
// when the user already has this book open, both without any mutation.
func (e *Enforcer) StartSession(userID, bookID uint, kind entities.LeaseKind) (*entities.RentalLease, error) {
	if !kind.Digital() {
		return nil, fmt.Errorf("start session: %s is not a digital lease kind", kind)
	}

	var lease *entities.RentalLease
	err := e.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := e.ledger.WithTx(tx)
		usersTx := e.users.WithTx(tx)
		booksTx := e.books.WithTx(tx)

		book, err := booksTx.GetByID(bookID)
		if err != nil {
			return err
		}
		if kind == entities.LeaseKindEbookRead && !book.HasEbook {
			return ErrNotAvailable
		}
		if kind == entities.LeaseKindAudiobookRent && !book.HasAudiobook {
			return ErrNotAvailable
		}

		limit, err := e.maxConcurrent(usersTx, userID, kind, book)
		if err != nil {
			return err
		}

		active, err := ledgerTx.CountActive(userID, kind)
		if err != nil {
			return err
		}
		if active >= int64(limit) {
			return ErrQuotaExceeded
		}

		token, err := generateSecurityToken()
		if err != nil {
			return fmt.Errorf("generate security token: %w", err)
		}

		now := time.Now()
		lease = &entities.RentalLease{
			UserID:        userID,
			BookID:        bookID,
			Kind:          kind,
			State:         entities.LeaseStateActive,
			StartDate:     now,
			SecurityToken: token,
		}
		if kind == entities.LeaseKindAudiobookRent {
			due := now.AddDate(0, 0, e.AudiobookRentalDays)
			lease.EndDate = &due
		}
		if err := ledgerTx.CreateLease(lease); err != nil {
			return err
		}

		return ledgerTx.AppendEvent(lease.ID, &entities.AccessEvent{
			UserID:    userID,
			Type:      entities.AccessEventStart,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// StopSession ends the user's active session for a book. Idempotent: when no
// active lease exists it succeeds as a no-op.
func (e *Enforcer) StopSession(userID, bookID uint, kind entities.LeaseKind) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := e.ledger.WithTx(tx)

		lease, err := ledgerTx.FindActiveLease(userID, bookID, kind)
		if err != nil {
			return err
		}
		if lease == nil {
			return nil
		}

		now := time.Now()
		lease.EndDate = &now
		if err := ledgerTx.UpdateLeaseState(lease, entities.LeaseStateCompleted); err != nil {
			return err
		}

		return ledgerTx.AppendEvent(lease.ID, &entities.AccessEvent{
			UserID:    userID,
			Type:      entities.AccessEventComplete,
			Timestamp: now,
		})
	})
}

// RecordProgress updates playtime/progress on the active session. Progress
// pings are best-effort: a ping against a missing or inactive lease is
// logged and swallowed, never surfaced to the caller.
func (e *Enforcer) RecordProgress(userID, bookID uint, kind entities.LeaseKind, playTime float64) error {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := e.ledger.WithTx(tx)

		lease, err := ledgerTx.FindActiveLease(userID, bookID, kind)
		if err != nil {
			return err
		}
		if lease == nil {
			log.Printf("WARNING: progress ping for user %d book %d ignored, no active lease", userID, bookID)
			return nil
		}

		lease.PlayTime = playTime
		if err := tx.Model(lease).UpdateColumn("play_time", playTime).Error; err != nil {
			return err
		}

		return ledgerTx.AppendEvent(lease.ID, &entities.AccessEvent{
			UserID:    userID,
			Type:      entities.AccessEventPlaytimeUpdate,
			Timestamp: time.Now(),
			PlayTime:  playTime,
		})
	})
	if err != nil {
		log.Printf("WARNING: progress ping for user %d book %d failed: %v", userID, bookID, err)
	}
	return nil
}

// GetSnapshot reports the user's quota position for a kind and whether they
// currently hold the queried book open.
func (e *Enforcer) GetSnapshot(userID, bookID uint, kind entities.LeaseKind) (*Snapshot, error) {
	book, err := e.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}

	limit, err := e.maxConcurrent(e.users, userID, kind, book)
	if err != nil {
		return nil, err
	}

	active, err := e.ledger.CountActive(userID, kind)
	if err != nil {
		return nil, err
	}

	lease, err := e.ledger.FindActiveLease(userID, bookID, kind)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		CurrentActive: active,
		MaxConcurrent: limit,
		CanStartMore:  active < int64(limit),
		HasAccess:     lease != nil,
	}, nil
}

// maxConcurrent resolves the effective concurrency limit: audiobooks may
// carry a per-book rule that overrides the user's grant.
func (e *Enforcer) maxConcurrent(usersRepo *users.Repository, userID uint, kind entities.LeaseKind, book *entities.Book) (int, error) {
	if kind == entities.LeaseKindAudiobookRent && book.MaxConcurrentListens > 0 {
		return book.MaxConcurrentListens, nil
	}
	grant, err := usersRepo.GetGrant(userID, kind)
	if err != nil {
		return 0, err
	}
	return grant.MaxConcurrent, nil
}

func generateSecurityToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
