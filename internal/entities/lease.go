package entities

import (
	"time"
)

type LeaseKind string

const (
	LeaseKindEbookRead      LeaseKind = "EBOOK_SUBSCRIPTION_READ"
	LeaseKindAudiobookRent  LeaseKind = "AUDIOBOOK_RENTAL"
	LeaseKindHardcopyRental LeaseKind = "HARDCOPY_RENTAL"
)

// Digital reports whether leases of this kind are consumed on-device and
// therefore carry a security token and count against a concurrency quota.
func (k LeaseKind) Digital() bool {
	return k == LeaseKindEbookRead || k == LeaseKindAudiobookRent
}

type LeaseState string

const (
	// Digital lifecycle
	LeaseStateActive     LeaseState = "ACTIVE"
	LeaseStateCompleted  LeaseState = "COMPLETED"
	LeaseStateTerminated LeaseState = "TERMINATED" // forced by the security monitor

	// Hardcopy lifecycle
	LeaseStateReserved        LeaseState = "RESERVED"
	LeaseStateReturned        LeaseState = "RETURNED"
	LeaseStateReturnedLate    LeaseState = "RETURNED_LATE"
	LeaseStateReturnedDamaged LeaseState = "RETURNED_DAMAGED"
	LeaseStateClosed          LeaseState = "CLOSED"
)

// Counting reports whether a lease in this state occupies a quota slot or an
// inventory copy. Only RESERVED and ACTIVE do; every other state is terminal
// for lending purposes.
func (s LeaseState) Counting() bool {
	return s == LeaseStateActive || s == LeaseStateReserved
}

// Returned reports whether the state is one of the hardcopy return variants.
func (s LeaseState) Returned() bool {
	switch s {
	case LeaseStateReturned, LeaseStateReturnedLate, LeaseStateReturnedDamaged:
		return true
	}
	return false
}

// RentalLease is one user's claim on one book copy or license. Terminal
// leases are kept for audit; nothing hard-deletes them.
type RentalLease struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"index:idx_lease_user_kind" json:"user_id"`
	BookID uint       `gorm:"index" json:"book_id"`
	Kind   LeaseKind  `gorm:"index:idx_lease_user_kind;size:30" json:"kind"`
	State  LeaseState `gorm:"index;size:20" json:"state"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // planned due date; nil for open-ended ebook reads

	// Digital only. Opaque token required on every access event.
	SecurityToken string  `gorm:"size:64;index" json:"-"`
	PlayTime      float64 `json:"play_time,omitempty"` // seconds of consumed audio/pages progress

	// Hardcopy only. Amounts are copied from the book at checkout so later
	// price changes never affect an open lease.
	GuaranteeAmount float64 `json:"guarantee_amount,omitempty"`
	RentalPrice     float64 `json:"rental_price,omitempty"`
	Currency        string  `gorm:"size:3" json:"currency,omitempty"`

	ReturnDate      *time.Time      `json:"return_date,omitempty"`
	ReturnCondition ReturnCondition `gorm:"size:20" json:"return_condition,omitempty"`
	ConditionNotes  string          `gorm:"size:500" json:"condition_notes,omitempty"`
	ReturnTracking  string          `gorm:"size:100" json:"return_tracking,omitempty"`
	DamageNotes     string          `gorm:"size:500" json:"damage_notes,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RentalLease) TableName() string {
	return "rental_leases"
}
