// Package rental drives the hardcopy rental lifecycle:
//
//	RESERVED → ACTIVE → RETURNED|RETURNED_LATE|RETURNED_DAMAGED → CLOSED
//
// Checkout, return and settlement run as single transactions so a crash
// mid-operation leaves the lease in its pre-operation state.
package rental

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/database/books"
	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
)

// ErrInvalidTransition indicates the lease is not in a state that permits
// the requested operation.
var ErrInvalidTransition = errors.New("invalid lease state transition")

// ReturnRequest carries the details of a hardcopy return. Damaged marks the
// copy damaged regardless of the graded condition; the refund fraction still
// follows the condition.
type ReturnRequest struct {
	RentalID       uint
	Condition      entities.ReturnCondition
	ConditionNotes string
	ReturnTracking string
	Damaged        bool
	DamageNotes    string
}

type Service struct {
	db     *gorm.DB
	ledger *ledger.Repository
	books  *books.Repository

	// DefaultRentalDays is the loan period for books that carry none.
	DefaultRentalDays int
}

func NewService(db *gorm.DB, ledgerRepo *ledger.Repository, booksRepo *books.Repository, defaultRentalDays int) *Service {
	return &Service{
		db:                db,
		ledger:            ledgerRepo,
		books:             booksRepo,
		DefaultRentalDays: defaultRentalDays,
	}
}

// Reserve claims a copy for later pickup. The copy leaves the shelf at
// reservation time so two reservations can never promise the same copy.
func (s *Service) Reserve(userID, bookID uint) (*entities.RentalLease, error) {
	return s.createLease(userID, bookID, entities.LeaseStateReserved)
}

// Checkout hands a copy to the user immediately, skipping the reservation
// step.
func (s *Service) Checkout(userID, bookID uint) (*entities.RentalLease, error) {
	return s.createLease(userID, bookID, entities.LeaseStateActive)
}

func (s *Service) createLease(userID, bookID uint, state entities.LeaseState) (*entities.RentalLease, error) {
	var lease *entities.RentalLease
	err := s.db.Transaction(func(tx *gorm.DB) error {
		booksTx := s.books.WithTx(tx)
		ledgerTx := s.ledger.WithTx(tx)

		book, err := booksTx.GetByID(bookID)
		if err != nil {
			return err
		}

		if err := booksTx.DecrementStock(bookID); err != nil {
			return err
		}

		days := book.RentalDays
		if days <= 0 {
			days = s.DefaultRentalDays
		}

		now := time.Now()
		due := now.AddDate(0, 0, days)
		lease = &entities.RentalLease{
			UserID:          userID,
			BookID:          bookID,
			Kind:            entities.LeaseKindHardcopyRental,
			State:           state,
			StartDate:       now,
			EndDate:         &due,
			GuaranteeAmount: book.GuaranteeAmount,
			RentalPrice:     book.RentalPrice,
			Currency:        book.Currency,
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

// Activate marks a reserved copy as picked up. The loan clock restarts at
// pickup.
func (s *Service) Activate(rentalID uint) (*entities.RentalLease, error) {
	var lease *entities.RentalLease
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)

		var err error
		lease, err = ledgerTx.GetLease(rentalID)
		if err != nil {
			return err
		}
		if lease.State != entities.LeaseStateReserved {
			return fmt.Errorf("%w: %s lease cannot be activated", ErrInvalidTransition, lease.State)
		}

		now := time.Now()
		days := 0
		if lease.EndDate != nil {
			days = int(lease.EndDate.Sub(lease.StartDate).Hours() / 24)
		}
		due := now.AddDate(0, 0, days)
		lease.StartDate = now
		lease.EndDate = &due
		return ledgerTx.UpdateLeaseState(lease, entities.LeaseStateActive)
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// ProcessReturn settles and closes out an active hardcopy loan: it computes
// the settlement, transitions the lease to the matching RETURNED_* state,
// appends a RENTAL_END event, and puts the copy back in stock. All steps
// commit together or not at all.
func (s *Service) ProcessReturn(req ReturnRequest) (*entities.SettlementRecord, error) {
	if !req.Condition.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, req.Condition)
	}

	var record *entities.SettlementRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)
		booksTx := s.books.WithTx(tx)

		lease, err := ledgerTx.GetLease(req.RentalID)
		if err != nil {
			return err
		}
		if lease.Kind != entities.LeaseKindHardcopyRental {
			return fmt.Errorf("%w: %s lease has no return flow", ErrInvalidTransition, lease.Kind)
		}
		if lease.State != entities.LeaseStateActive {
			return fmt.Errorf("%w: lease is %s, not ACTIVE", ErrInvalidTransition, lease.State)
		}

		now := time.Now()
		record, err = ComputeSettlement(
			lease.GuaranteeAmount, lease.RentalPrice, lease.Currency,
			req.Condition, lease.EndDate, now)
		if err != nil {
			return err
		}
		record.RentalID = lease.ID
		if err := ledgerTx.CreateSettlement(record); err != nil {
			return err
		}

		state := entities.LeaseStateReturned
		switch {
		case req.Damaged || req.Condition == entities.ConditionDamaged:
			state = entities.LeaseStateReturnedDamaged
		case record.IsLate:
			state = entities.LeaseStateReturnedLate
		}

		lease.ReturnDate = &now
		lease.ReturnCondition = req.Condition
		lease.ConditionNotes = req.ConditionNotes
		lease.ReturnTracking = req.ReturnTracking
		lease.DamageNotes = req.DamageNotes
		if err := ledgerTx.UpdateLeaseState(lease, state); err != nil {
			return err
		}

		if err := ledgerTx.AppendEvent(lease.ID, &entities.AccessEvent{
			UserID:    lease.UserID,
			Type:      entities.AccessEventRentalEnd,
			Timestamp: now,
			Details:   string(req.Condition),
		}); err != nil {
			return err
		}

		return booksTx.IncrementStock(lease.BookID)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Processed return for lease %d: condition=%s refund=%.2f %s late=%t",
		req.RentalID, record.Condition, record.RefundAmount, record.Currency, record.IsLate)
	return record, nil
}

// Close moves a returned lease to CLOSED once its settlement has been
// posted. Terminal leases stay in the ledger for audit.
func (s *Service) Close(rentalID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)

		lease, err := ledgerTx.GetLease(rentalID)
		if err != nil {
			return err
		}
		if !lease.State.Returned() {
			return fmt.Errorf("%w: lease is %s, not returned", ErrInvalidTransition, lease.State)
		}

		settlement, err := ledgerTx.SettlementForLease(rentalID)
		if err != nil {
			return err
		}
		if settlement == nil {
			return fmt.Errorf("%w: no settlement posted for lease %d", ErrInvalidTransition, rentalID)
		}

		return ledgerTx.UpdateLeaseState(lease, entities.LeaseStateClosed)
	})
}
