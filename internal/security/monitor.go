// Package security turns access events into forced lifecycle transitions
// for digital leases. The policy is fail-closed: a single violation or
// suspicious-activity event ends the lease immediately, with no grace period
// and no retry. The affected user cannot undo a forced termination.
package security

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
)

// ErrSecurityTokenMismatch indicates the caller presented the wrong token
// for the lease, or a lease they do not own. Logged at security-audit level.
var ErrSecurityTokenMismatch = errors.New("security token mismatch")

// ErrUnknownEventType indicates an event type outside the accepted set.
var ErrUnknownEventType = errors.New("unknown security event type")

// EventInput is one reported access event from a reading/listening client.
type EventInput struct {
	RentalID      uint
	SecurityToken string
	EventType     entities.AccessEventType
	Details       string

	DeviceFingerprint string
	IPAddress         string
	Referrer          string
	Timestamp         time.Time
}

// Result describes how the monitor classified an accepted event.
type Result struct {
	LogID      uint
	EventType  entities.AccessEventType
	Suspicious bool
	Terminated bool
}

type Monitor struct {
	db     *gorm.DB
	ledger *ledger.Repository
}

func NewMonitor(db *gorm.DB, ledgerRepo *ledger.Repository) *Monitor {
	return &Monitor{db: db, ledger: ledgerRepo}
}

// RecordAccessEvent validates, classifies and persists one access event,
// forcing the lease out of its active state when the event warrants it. The
// event row is committed first, in its own transaction, so the audit trail
// survives even when the lease transition afterwards fails. A failed
// transition is retried once; the transition re-reads the lease and is a
// no-op when the lease has already left its active state.
func (m *Monitor) RecordAccessEvent(userID, bookID uint, input EventInput) (*Result, error) {
	switch input.EventType {
	case entities.AccessEventViolation, entities.AccessEventSuspicious, entities.AccessEventRentalEnd:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, input.EventType)
	}

	suspicious := input.EventType == entities.AccessEventViolation ||
		input.EventType == entities.AccessEventSuspicious

	var (
		event     *entities.AccessEvent
		wasActive bool
	)
	err := m.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := m.ledger.WithTx(tx)

		lease, err := ledgerTx.GetLease(input.RentalID)
		if err != nil {
			return err
		}
		if !lease.Kind.Digital() {
			return ledger.ErrLeaseNotFound
		}
		if lease.UserID != userID || lease.BookID != bookID || lease.SecurityToken != input.SecurityToken {
			log.Printf("SECURITY: token mismatch for lease %d (user %d, book %d, ip %s)",
				input.RentalID, userID, bookID, input.IPAddress)
			return ErrSecurityTokenMismatch
		}
		wasActive = lease.State == entities.LeaseStateActive

		when := input.Timestamp
		if when.IsZero() {
			when = time.Now()
		}
		event = &entities.AccessEvent{
			UserID:            userID,
			Type:              input.EventType,
			Timestamp:         when,
			Suspicious:        suspicious,
			DeviceFingerprint: input.DeviceFingerprint,
			IPAddress:         input.IPAddress,
			Referrer:          input.Referrer,
			Details:           input.Details,
		}
		return ledgerTx.AppendEvent(input.RentalID, event)
	})
	if err != nil {
		return nil, err
	}

	terminated := false
	if wasActive {
		target := entities.LeaseStateCompleted
		if suspicious {
			target = entities.LeaseStateTerminated
		}
		applied, err := m.applyTransition(input.RentalID, target)
		if err != nil {
			log.Printf("SECURITY: lease %d transition to %s failed, retrying once: %v",
				input.RentalID, target, err)
			applied, err = m.applyTransition(input.RentalID, target)
			if err != nil {
				return nil, err
			}
		}
		if applied && suspicious {
			terminated = true
			log.Printf("SECURITY: lease %d terminated after %s (user %d, fingerprint %q)",
				input.RentalID, input.EventType, userID, input.DeviceFingerprint)
		}
	}

	return &Result{
		LogID:      event.ID,
		EventType:  input.EventType,
		Suspicious: suspicious,
		Terminated: terminated,
	}, nil
}

// applyTransition moves the lease out of its active state in its own
// transaction. It re-reads the lease so a repeated call after a partial
// failure is idempotent: once the lease has left ACTIVE there is nothing
// left to do.
func (m *Monitor) applyTransition(rentalID uint, target entities.LeaseState) (bool, error) {
	applied := false
	err := m.db.Transaction(func(tx *gorm.DB) error {
		ledgerTx := m.ledger.WithTx(tx)

		lease, err := ledgerTx.GetLease(rentalID)
		if err != nil {
			return err
		}
		if lease.State != entities.LeaseStateActive {
			return nil
		}
		now := time.Now()
		lease.EndDate = &now
		if err := ledgerTx.UpdateLeaseState(lease, target); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
