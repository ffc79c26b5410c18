package entities

import "time"

type ReturnCondition string

const (
	ConditionExcellent ReturnCondition = "EXCELLENT"
	ConditionVeryGood  ReturnCondition = "VERY_GOOD"
	ConditionGood      ReturnCondition = "GOOD"
	ConditionFair      ReturnCondition = "FAIR"
	ConditionPoor      ReturnCondition = "POOR"
	ConditionDamaged   ReturnCondition = "DAMAGED"
)

// Valid reports whether the condition is one of the known grades. Unknown
// grades are rejected before any mutation.
func (c ReturnCondition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood,
		ConditionFair, ConditionPoor, ConditionDamaged:
		return true
	}
	return false
}

// SettlementRecord is produced exactly once when a hardcopy lease is
// returned. The unique index on RentalID enforces the once-only rule at the
// storage layer.
type SettlementRecord struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	RentalID uint `gorm:"uniqueIndex" json:"rental_id"`

	Condition       ReturnCondition `gorm:"size:20" json:"condition"`
	GuaranteeAmount float64         `json:"guarantee_amount"`
	DamageDeduction float64         `json:"damage_deduction"`
	LateFee         float64         `json:"late_fee"`
	RefundAmount    float64         `json:"refund_amount"`
	Currency        string          `gorm:"size:3" json:"currency"`

	IsLate     bool      `json:"is_late"`
	DaysLate   int       `json:"days_late"`
	ReturnDate time.Time `json:"return_date"`

	CreatedAt time.Time `json:"created_at"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}
