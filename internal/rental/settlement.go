package rental

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/libraria-al/libraria/internal/entities"
)

// ErrUnknownCondition indicates a return condition outside the known grades.
// This is an input validation failure for the caller, never silently
// defaulted.
var ErrUnknownCondition = errors.New("unknown return condition")

// Fraction of the guarantee refunded for each return condition. Fixed policy.
var refundFractions = map[entities.ReturnCondition]float64{
	entities.ConditionExcellent: 1.00,
	entities.ConditionVeryGood:  0.95,
	entities.ConditionGood:      0.90,
	entities.ConditionFair:      0.75,
	entities.ConditionPoor:      0.50,
	entities.ConditionDamaged:   0.10,
}

// Daily late fee as a fraction of the rental price.
const lateFeeRate = 0.10

// roundMoney rounds to 2 decimals. Amounts cross the API as plain numbers,
// so binary float residue like 99.99999999999997 must never leave the
// calculator.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeSettlement derives the damage deduction, late fee and final refund
// for a hardcopy return. Pure: no side effects, no storage access.
//
// The refund is clamped to zero when deduction plus fee exceed the
// guarantee; the engine does not create a payable for the remainder.
func ComputeSettlement(
	guaranteeAmount, rentalPrice float64,
	currency string,
	condition entities.ReturnCondition,
	plannedEndDate *time.Time,
	actualReturnDate time.Time,
) (*entities.SettlementRecord, error) {
	fraction, ok := refundFractions[condition]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, condition)
	}

	damageDeduction := roundMoney(guaranteeAmount * (1 - fraction))

	var daysLate int
	isLate := plannedEndDate != nil && actualReturnDate.After(*plannedEndDate)
	if isLate {
		overdue := actualReturnDate.Sub(*plannedEndDate)
		daysLate = int(math.Ceil(overdue.Hours() / 24))
	}
	lateFee := roundMoney(float64(daysLate) * rentalPrice * lateFeeRate)

	refund := roundMoney(guaranteeAmount - damageDeduction - lateFee)
	if refund < 0 {
		refund = 0
	}

	return &entities.SettlementRecord{
		Condition:       condition,
		GuaranteeAmount: guaranteeAmount,
		DamageDeduction: damageDeduction,
		LateFee:         lateFee,
		RefundAmount:    refund,
		Currency:        currency,
		IsLate:          isLate,
		DaysLate:        daysLate,
		ReturnDate:      actualReturnDate,
	}, nil
}
