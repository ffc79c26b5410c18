package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/database/books"
	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
	"github.com/libraria-al/libraria/internal/rental"
)

// RentalService defines the hardcopy lifecycle operations.
type RentalService interface {
	Reserve(userID, bookID uint) (*entities.RentalLease, error)
	Checkout(userID, bookID uint) (*entities.RentalLease, error)
	Activate(rentalID uint) (*entities.RentalLease, error)
	ProcessReturn(req rental.ReturnRequest) (*entities.SettlementRecord, error)
	Close(rentalID uint) error
}

type HardcopyController struct {
	rentals RentalService
}

func NewHardcopyController(rentals RentalService) *HardcopyController {
	return &HardcopyController{rentals: rentals}
}

// Checkout hands a physical copy to the caller.
// POST /api/hardcopy-rental/:bookId/checkout
func (hc *HardcopyController) Checkout(c *gin.Context) {
	hc.createLease(c, hc.rentals.Checkout)
}

// Reserve holds a physical copy for later pickup.
// POST /api/hardcopy-rental/:bookId/reserve
func (hc *HardcopyController) Reserve(c *gin.Context) {
	hc.createLease(c, hc.rentals.Reserve)
}

func (hc *HardcopyController) createLease(c *gin.Context, create func(userID, bookID uint) (*entities.RentalLease, error)) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	userID := GetUserID(c)

	lease, err := create(userID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, books.ErrOutOfStock):
			respondConflict(c, "no copies in stock")
		case errors.Is(err, ledger.ErrDuplicateActiveLease):
			respondConflict(c, "you already have an unreturned copy of this book")
		case errors.Is(err, books.ErrBookNotFound):
			respondNotFound(c, "book")
		default:
			respondInternalError(c, err, "hardcopy checkout")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"rentalId":        lease.ID,
		"state":           lease.State,
		"startDate":       lease.StartDate,
		"dueDate":         lease.EndDate,
		"guaranteeAmount": lease.GuaranteeAmount,
		"rentalPrice":     lease.RentalPrice,
		"currency":        lease.Currency,
	})
}

type rentalRef struct {
	RentalID uint `json:"rentalId" binding:"required"`
}

// Activate marks a reserved copy as picked up.
// POST /api/hardcopy-rental/:bookId/activate
func (hc *HardcopyController) Activate(c *gin.Context) {
	if _, ok := parseIDParam(c, "bookId"); !ok {
		return
	}

	var req rentalRef
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: rentalId is required")
		return
	}

	lease, err := hc.rentals.Activate(req.RentalID)
	if err != nil {
		hc.respondLifecycleError(c, err, "hardcopy activate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"rentalId":  lease.ID,
		"state":     lease.State,
		"startDate": lease.StartDate,
		"dueDate":   lease.EndDate,
	})
}

// Close acknowledges a settled return, retiring the lease.
// POST /api/hardcopy-rental/:bookId/close
func (hc *HardcopyController) Close(c *gin.Context) {
	if _, ok := parseIDParam(c, "bookId"); !ok {
		return
	}

	var req rentalRef
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: rentalId is required")
		return
	}

	if err := hc.rentals.Close(req.RentalID); err != nil {
		hc.respondLifecycleError(c, err, "hardcopy close")
		return
	}
	respondSuccess(c, "rental closed")
}

func (hc *HardcopyController) respondLifecycleError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, ledger.ErrLeaseNotFound):
		respondNotFound(c, "rental")
	case errors.Is(err, rental.ErrInvalidTransition):
		respondConflict(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

type returnRequest struct {
	RentalID        uint   `json:"rentalId" binding:"required"`
	ReturnCondition string `json:"returnCondition" binding:"required"`
	ConditionNotes  string `json:"conditionNotes,omitempty"`
	ReturnTracking  string `json:"returnTracking,omitempty"`
	IsDamaged       bool   `json:"isDamaged,omitempty"`
	DamageNotes     string `json:"damageNotes,omitempty"`
}

// Return settles an active hardcopy loan.
// POST /api/hardcopy-rental/:bookId/return
func (hc *HardcopyController) Return(c *gin.Context) {
	if _, ok := parseIDParam(c, "bookId"); !ok {
		return
	}

	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: rentalId and returnCondition are required")
		return
	}

	condition := entities.ReturnCondition(req.ReturnCondition)
	if !condition.Valid() {
		respondBadRequest(c, "unrecognized returnCondition: "+req.ReturnCondition)
		return
	}

	record, err := hc.rentals.ProcessReturn(rental.ReturnRequest{
		RentalID:       req.RentalID,
		Condition:      condition,
		ConditionNotes: req.ConditionNotes,
		ReturnTracking: req.ReturnTracking,
		Damaged:        req.IsDamaged,
		DamageNotes:    req.DamageNotes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrLeaseNotFound), errors.Is(err, rental.ErrInvalidTransition):
			// An already-returned rental reads as not found to the
			// caller, matching the storefront's contract.
			respondNotFound(c, "rental")
		case errors.Is(err, rental.ErrUnknownCondition):
			respondBadRequest(c, err.Error())
		default:
			respondInternalError(c, err, "hardcopy return")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"rentalId":        req.RentalID,
		"returnDate":      record.ReturnDate,
		"returnCondition": record.Condition,
		"damageDeduction": record.DamageDeduction,
		"lateFee":         record.LateFee,
		"refundAmount":    record.RefundAmount,
		"guaranteeAmount": record.GuaranteeAmount,
		"isLate":          record.IsLate,
	})
}
