// Package ledger is the durable record of every rental lease and every
// access event against it. All other engine components read and write
// through it.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/entities"
)

var (
	// ErrLeaseNotFound indicates the referenced lease does not exist.
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrDuplicateActiveLease indicates an unreturned lease of the same
	// kind already exists for the user and book.
	ErrDuplicateActiveLease = errors.New("active lease already exists for this user and book")

	// ErrViolationRecorded indicates a lease with a recorded security
	// violation was asked to re-enter an active state.
	ErrViolationRecorded = errors.New("security violation recorded, lease cannot become active")
)

// Repository handles lease and access event persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction, so multi-step
// operations can combine ledger calls with other writes atomically.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateLease persists a new lease after checking the duplicate rule:
// digital kinds forbid a second unreturned lease of the same kind for the
// same (user, book); hardcopy forbids one only while a copy is outstanding.
// Callers that need the check to be race-free must run inside a transaction
// (see quota.Enforcer and rental.Service).
func (r *Repository) CreateLease(lease *entities.RentalLease) error {
	var count int64
	err := r.db.Model(&entities.RentalLease{}).
		Where("user_id = ? AND book_id = ? AND kind = ? AND state IN ?",
			lease.UserID, lease.BookID, lease.Kind,
			[]entities.LeaseState{entities.LeaseStateReserved, entities.LeaseStateActive}).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("duplicate lease check: %w", err)
	}
	if count > 0 {
		return ErrDuplicateActiveLease
	}

	if lease.StartDate.IsZero() {
		lease.StartDate = time.Now()
	}
	return r.db.Create(lease).Error
}

// GetLease loads a lease by ID.
func (r *Repository) GetLease(id uint) (*entities.RentalLease, error) {
	var lease entities.RentalLease
	err := r.db.First(&lease, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// FindActiveLease returns the user's ACTIVE lease of the given kind for a
// book, or nil when there is none.
func (r *Repository) FindActiveLease(userID, bookID uint, kind entities.LeaseKind) (*entities.RentalLease, error) {
	var lease entities.RentalLease
	err := r.db.
		Where("user_id = ? AND book_id = ? AND kind = ? AND state = ?",
			userID, bookID, kind, entities.LeaseStateActive).
		First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// CountActive returns how many leases of the kind the user currently holds
// in the ACTIVE state. The count is always derived from the lease table; it
// is never cached, so it cannot drift from the ledger.
func (r *Repository) CountActive(userID uint, kind entities.LeaseKind) (int64, error) {
	var count int64
	err := r.db.Model(&entities.RentalLease{}).
		Where("user_id = ? AND kind = ? AND state = ?", userID, kind, entities.LeaseStateActive).
		Count(&count).Error
	return count, err
}

// UpdateLeaseState transitions a lease. A lease with a recorded
// SECURITY_VIOLATION event can never re-enter an active state.
func (r *Repository) UpdateLeaseState(lease *entities.RentalLease, state entities.LeaseState) error {
	if state == entities.LeaseStateActive {
		violated, err := r.HasViolation(lease.ID)
		if err != nil {
			return err
		}
		if violated {
			return ErrViolationRecorded
		}
	}
	lease.State = state
	return r.db.Save(lease).Error
}

// AppendEvent records an immutable access event for a lease. Events are only
// rejected for integrity reasons (unknown lease), never for business ones.
// Caller-supplied timestamps come from client clocks; a timestamp earlier
// than the lease's latest event is clamped forward so the trail never reads
// out of order.
func (r *Repository) AppendEvent(rentalID uint, event *entities.AccessEvent) error {
	var exists int64
	if err := r.db.Model(&entities.RentalLease{}).Where("id = ?", rentalID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrLeaseNotFound
	}

	event.RentalID = rentalID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var last entities.AccessEvent
	err := r.db.
		Where("rental_id = ?", rentalID).
		Order("timestamp DESC, id DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil && event.Timestamp.Before(last.Timestamp) {
		event.Timestamp = last.Timestamp
	}

	return r.db.Create(event).Error
}

// EventsForLease returns a lease's events in timestamp order.
func (r *Repository) EventsForLease(rentalID uint) ([]entities.AccessEvent, error) {
	var events []entities.AccessEvent
	err := r.db.
		Where("rental_id = ?", rentalID).
		Order("timestamp ASC, id ASC").
		Find(&events).Error
	return events, err
}

// HasViolation reports whether a SECURITY_VIOLATION event was ever recorded
// for the lease.
func (r *Repository) HasViolation(rentalID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.AccessEvent{}).
		Where("rental_id = ? AND type = ?", rentalID, entities.AccessEventViolation).
		Count(&count).Error
	return count > 0, err
}

// FindExpiredDigital returns digital leases still ACTIVE past their planned
// end date.
func (r *Repository) FindExpiredDigital(now time.Time) ([]entities.RentalLease, error) {
	var leases []entities.RentalLease
	err := r.db.
		Where("kind IN ? AND state = ? AND end_date IS NOT NULL AND end_date < ?",
			[]entities.LeaseKind{entities.LeaseKindEbookRead, entities.LeaseKindAudiobookRent},
			entities.LeaseStateActive, now).
		Find(&leases).Error
	return leases, err
}

// CreateSettlement persists a settlement record. The unique index on
// rental_id makes a second settlement for the same lease a storage error.
func (r *Repository) CreateSettlement(record *entities.SettlementRecord) error {
	return r.db.Create(record).Error
}

// SettlementForLease returns the settlement posted for a lease, or nil.
func (r *Repository) SettlementForLease(rentalID uint) (*entities.SettlementRecord, error) {
	var record entities.SettlementRecord
	err := r.db.Where("rental_id = ?", rentalID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteRoutineEventsBefore prunes routine progress events older than the
// cutoff. Suspicious and violation events are never deleted; the security
// audit trail is permanent.
func (r *Repository) DeleteRoutineEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("timestamp < ? AND suspicious = ? AND type = ?",
			cutoff, false, entities.AccessEventPlaytimeUpdate).
		Delete(&entities.AccessEvent{})
	return result.RowsAffected, result.Error
}
