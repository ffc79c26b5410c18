package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
	"github.com/libraria-al/libraria/internal/security"
)

// SecurityService ingests access events reported by reading clients.
type SecurityService interface {
	RecordAccessEvent(userID, bookID uint, input security.EventInput) (*security.Result, error)
}

type SecurityLogController struct {
	monitor SecurityService
}

func NewSecurityLogController(monitor SecurityService) *SecurityLogController {
	return &SecurityLogController{monitor: monitor}
}

type securityLogRequest struct {
	RentalID          uint   `json:"rentalId" binding:"required"`
	SecurityToken     string `json:"securityToken" binding:"required"`
	EventType         string `json:"eventType" binding:"required"`
	Details           string `json:"details,omitempty"`
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
	Referrer          string `json:"referrer,omitempty"`
	Timestamp         string `json:"timestamp,omitempty"` // RFC 3339; server time when absent
}

// LogEvent records one access event against a digital lease.
// POST /api/security-log/:bookId
func (sc *SecurityLogController) LogEvent(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	userID := GetUserID(c)

	var req securityLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: rentalId, securityToken and eventType are required")
		return
	}

	var when time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			respondBadRequest(c, "invalid timestamp, expected RFC 3339")
			return
		}
		when = parsed
	}

	result, err := sc.monitor.RecordAccessEvent(userID, bookID, security.EventInput{
		RentalID:          req.RentalID,
		SecurityToken:     req.SecurityToken,
		EventType:         entities.AccessEventType(req.EventType),
		Details:           req.Details,
		DeviceFingerprint: req.DeviceFingerprint,
		IPAddress:         c.ClientIP(),
		Referrer:          req.Referrer,
		Timestamp:         when,
	})
	if err != nil {
		switch {
		case errors.Is(err, security.ErrSecurityTokenMismatch):
			respondForbidden(c, "security token mismatch")
		case errors.Is(err, security.ErrUnknownEventType):
			respondBadRequest(c, "unknown event type: "+req.EventType)
		case errors.Is(err, ledger.ErrLeaseNotFound):
			respondNotFound(c, "rental")
		default:
			respondInternalError(c, err, "security log")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"logId":              result.LogID,
		"eventType":          result.EventType,
		"suspiciousActivity": result.Suspicious,
	})
}
