package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/database/books"
	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/entities"
	"github.com/libraria-al/libraria/internal/quota"
)

// QuotaService defines the admission operations for digital sessions.
type QuotaService interface {
	StartSession(userID, bookID uint, kind entities.LeaseKind) (*entities.RentalLease, error)
	StopSession(userID, bookID uint, kind entities.LeaseKind) error
	RecordProgress(userID, bookID uint, kind entities.LeaseKind, playTime float64) error
	GetSnapshot(userID, bookID uint, kind entities.LeaseKind) (*quota.Snapshot, error)
}

// CatalogStore defines the book lookups the access endpoints need.
type CatalogStore interface {
	GetByID(id uint) (*entities.Book, error)
}

type AccessController struct {
	quota   QuotaService
	catalog CatalogStore
}

func NewAccessController(quotaService QuotaService, catalog CatalogStore) *AccessController {
	return &AccessController{quota: quotaService, catalog: catalog}
}

type accessRequest struct {
	Action   string  `json:"action" binding:"required"`
	Kind     string  `json:"kind,omitempty"` // "ebook" or "audiobook"; inferred from the book when absent
	PlayTime float64 `json:"playTime,omitempty"`
}

type startResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RentalID      uint   `json:"rentalId,omitempty"`
	SecurityToken string `json:"securityToken,omitempty"`
}

// HandleAction starts, stops or updates a digital session.
// POST /api/access/:bookId
func (ac *AccessController) HandleAction(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	userID := GetUserID(c)

	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: action is required")
		return
	}

	kind, ok := ac.resolveKind(c, bookID, req.Kind)
	if !ok {
		return
	}

	switch req.Action {
	case "start":
		lease, err := ac.quota.StartSession(userID, bookID, kind)
		if err != nil {
			ac.respondStartError(c, err)
			return
		}
		c.JSON(http.StatusOK, startResponse{
			Success:       true,
			Message:       "session started",
			RentalID:      lease.ID,
			SecurityToken: lease.SecurityToken,
		})

	case "stop":
		if err := ac.quota.StopSession(userID, bookID, kind); err != nil {
			respondInternalError(c, err, "stop session")
			return
		}
		respondSuccess(c, "session stopped")

	case "update_playtime":
		// Best-effort by contract: the service logs and swallows
		// failures, so the ping always succeeds from the client's view.
		_ = ac.quota.RecordProgress(userID, bookID, kind, req.PlayTime)
		respondSuccess(c, "progress recorded")

	default:
		respondBadRequest(c, "unknown action: "+req.Action)
	}
}

// GetStatus reports the caller's quota position for a book.
// GET /api/access/:bookId
func (ac *AccessController) GetStatus(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	userID := GetUserID(c)

	book, err := ac.catalog.GetByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "access status")
		return
	}

	resp := gin.H{"hasAccess": false}

	if book.HasEbook {
		snap, err := ac.quota.GetSnapshot(userID, bookID, entities.LeaseKindEbookRead)
		if err != nil {
			respondInternalError(c, err, "access status")
			return
		}
		resp["currentReads"] = snap.CurrentActive
		resp["maxConcurrentReads"] = snap.MaxConcurrent
		resp["canReadMore"] = snap.CanStartMore
		if snap.HasAccess {
			resp["hasAccess"] = true
		}
	}

	if book.HasAudiobook {
		snap, err := ac.quota.GetSnapshot(userID, bookID, entities.LeaseKindAudiobookRent)
		if err != nil {
			respondInternalError(c, err, "access status")
			return
		}
		resp["currentListens"] = snap.CurrentActive
		resp["maxConcurrentListens"] = snap.MaxConcurrent
		resp["canListenMore"] = snap.CanStartMore
		if snap.HasAccess {
			resp["hasAccess"] = true
		}
	}

	c.JSON(http.StatusOK, resp)
}

// resolveKind maps the request's kind field to a lease kind, falling back to
// whichever digital format the book offers.
func (ac *AccessController) resolveKind(c *gin.Context, bookID uint, kind string) (entities.LeaseKind, bool) {
	switch kind {
	case "ebook":
		return entities.LeaseKindEbookRead, true
	case "audiobook":
		return entities.LeaseKindAudiobookRent, true
	case "":
		book, err := ac.catalog.GetByID(bookID)
		if err != nil {
			if errors.Is(err, books.ErrBookNotFound) {
				respondNotFound(c, "book")
				return "", false
			}
			respondInternalError(c, err, "resolve kind")
			return "", false
		}
		if book.HasAudiobook && !book.HasEbook {
			return entities.LeaseKindAudiobookRent, true
		}
		return entities.LeaseKindEbookRead, true
	default:
		respondBadRequest(c, "unknown kind: "+kind)
		return "", false
	}
}

// respondStartError maps admission outcomes to their status codes. Admission
// denials are expected business results, never logged as failures.
func (ac *AccessController) respondStartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		respondForbidden(c, "concurrent limit reached")
	case errors.Is(err, ledger.ErrDuplicateActiveLease):
		respondBadRequest(c, "you already have an active session for this book")
	case errors.Is(err, quota.ErrNotAvailable):
		respondBadRequest(c, "book not available in this format")
	case errors.Is(err, books.ErrBookNotFound):
		respondNotFound(c, "book")
	default:
		respondInternalError(c, err, "start session")
	}
}
