package entities

import "time"

type AccessEventType string

const (
	AccessEventStart          AccessEventType = "START"
	AccessEventPlaytimeUpdate AccessEventType = "PLAYTIME_UPDATE"
	AccessEventComplete       AccessEventType = "COMPLETE"
	AccessEventViolation      AccessEventType = "SECURITY_VIOLATION"
	AccessEventSuspicious     AccessEventType = "SUSPICIOUS_ACTIVITY"
	AccessEventRentalEnd      AccessEventType = "RENTAL_END"
)

// AccessEvent is an immutable fact about a lease. Events are append-only and
// ordered by timestamp; they are never updated or deleted for business
// reasons (the retention task prunes only routine, non-suspicious ones).
type AccessEvent struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	RentalID  uint            `gorm:"index" json:"rental_id"`
	UserID    uint            `gorm:"index" json:"user_id"`
	Type      AccessEventType `gorm:"index;size:30" json:"type"`
	Timestamp time.Time       `gorm:"index" json:"timestamp"`

	Suspicious bool `gorm:"index" json:"suspicious"`

	// Client context, captured as structured columns so the audit trail
	// stays queryable.
	DeviceFingerprint string `gorm:"size:128" json:"device_fingerprint,omitempty"`
	IPAddress         string `gorm:"size:45" json:"ip_address,omitempty"`
	Referrer          string `gorm:"size:500" json:"referrer,omitempty"`

	Details  string  `gorm:"size:500" json:"details,omitempty"`
	PlayTime float64 `json:"play_time,omitempty"`
}

func (AccessEvent) TableName() string {
	return "access_events"
}
