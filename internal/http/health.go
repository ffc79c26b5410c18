package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/database"
	"github.com/libraria-al/libraria/internal/entities"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports whether the engine can serve traffic: the
// storage connection must answer a ping and the lease ledger must be
// queryable. A readable lease table is what admission and settlement
// ultimately depend on.
type HealthController struct {
	db      *database.Database
	version string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := map[string]string{
		"storage": h.checkStorage(),
		"ledger":  h.checkLedger(),
	}

	status := "healthy"
	for _, result := range checks {
		if strings.HasPrefix(result, "error") {
			status = "unhealthy"
			break
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) checkStorage() string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *HealthController) checkLedger() string {
	if h.db == nil {
		return "not configured"
	}
	var leases int64
	if err := h.db.DB.Model(&entities.RentalLease{}).Count(&leases).Error; err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("ok (%d leases)", leases)
}
