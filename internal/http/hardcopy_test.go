package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraria-al/libraria/internal/entities"
)

func hardcopyBook(title string, stock int) *entities.Book {
	return &entities.Book{
		Title:           title,
		Author:          "Author",
		StockCount:      stock,
		GuaranteeAmount: 1000,
		RentalPrice:     500,
		Currency:        "ALL",
		RentalDays:      30,
	}
}

type checkoutResponse struct {
	Success         bool       `json:"success"`
	RentalID        uint       `json:"rentalId"`
	State           string     `json:"state"`
	DueDate         *time.Time `json:"dueDate"`
	GuaranteeAmount float64    `json:"guaranteeAmount"`
	RentalPrice     float64    `json:"rentalPrice"`
	Currency        string     `json:"currency"`
}

type returnResponse struct {
	Success         bool    `json:"success"`
	RentalID        uint    `json:"rentalId"`
	ReturnCondition string  `json:"returnCondition"`
	DamageDeduction float64 `json:"damageDeduction"`
	LateFee         float64 `json:"lateFee"`
	RefundAmount    float64 `json:"refundAmount"`
	GuaranteeAmount float64 `json:"guaranteeAmount"`
	IsLate          bool    `json:"isLate"`
}

func TestHardcopyController_Checkout(t *testing.T) {
	t.Run("hands out a copy with the book's rental terms", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Pallati i ëndrrave", 3))

		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, string(entities.LeaseStateActive), resp.State)
		assert.Equal(t, 1000.0, resp.GuaranteeAmount)
		assert.Equal(t, 500.0, resp.RentalPrice)
		assert.Equal(t, "ALL", resp.Currency)
		require.NotNil(t, resp.DueDate)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *resp.DueDate, time.Minute)

		book, err := env.books.GetByID(1)
		require.NoError(t, err)
		assert.Equal(t, 2, book.StockCount)
	})

	t.Run("out of stock conflicts", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Sold Out", 0))

		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("second copy of the same book conflicts", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Popular", 5))

		require.Equal(t, http.StatusOK, env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{}).Code)
		assert.Equal(t, http.StatusConflict, env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{}).Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		w := env.postJSON(t, "/api/hardcopy-rental/77/checkout", gin.H{})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHardcopyController_Reserve(t *testing.T) {
	t.Run("holds a copy in RESERVED state", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Reserved Title", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/reserve", gin.H{})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(entities.LeaseStateReserved), resp.State)

		// The held copy leaves the shelf immediately.
		book, err := env.books.GetByID(1)
		require.NoError(t, err)
		assert.Equal(t, 0, book.StockCount)
	})
}

func TestHardcopyController_Activate(t *testing.T) {
	t.Run("marks a reservation as picked up", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Held Title", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/reserve", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		var reserved checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reserved))

		w = env.postJSON(t, "/api/hardcopy-rental/1/activate", gin.H{"rentalId": reserved.RentalID})
		assert.Equal(t, http.StatusOK, w.Code)

		lease, err := env.ledger.GetLease(reserved.RentalID)
		require.NoError(t, err)
		assert.Equal(t, entities.LeaseStateActive, lease.State)
	})

	t.Run("an already active rental conflicts", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		w = env.postJSON(t, "/api/hardcopy-rental/1/activate", gin.H{"rentalId": resp.RentalID})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown rental", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/activate", gin.H{"rentalId": 555})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHardcopyController_Close(t *testing.T) {
	t.Run("retires a settled return", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		ret := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        resp.RentalID,
			"returnCondition": "VERY_GOOD",
		})
		require.Equal(t, http.StatusOK, ret.Code)

		closed := env.postJSON(t, "/api/hardcopy-rental/1/close", gin.H{"rentalId": resp.RentalID})
		assert.Equal(t, http.StatusOK, closed.Code)

		lease, err := env.ledger.GetLease(resp.RentalID)
		require.NoError(t, err)
		assert.Equal(t, entities.LeaseStateClosed, lease.State)
	})

	t.Run("cannot close before the return is settled", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		closed := env.postJSON(t, "/api/hardcopy-rental/1/close", gin.H{"rentalId": resp.RentalID})
		assert.Equal(t, http.StatusConflict, closed.Code)
	})
}

func TestHardcopyController_Return(t *testing.T) {
	checkout := func(t *testing.T, env *apiEnv) uint {
		t.Helper()
		w := env.postJSON(t, "/api/hardcopy-rental/1/checkout", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.RentalID
	}

	t.Run("settles a timely return in good condition", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Dimri i madh", 2))
		rentalID := checkout(t, env)

		w := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        rentalID,
			"returnCondition": "GOOD",
			"conditionNotes":  "light shelf wear",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp returnResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "GOOD", resp.ReturnCondition)
		assert.Equal(t, 100.0, resp.DamageDeduction)
		assert.Equal(t, 0.0, resp.LateFee)
		assert.Equal(t, 900.0, resp.RefundAmount)
		assert.False(t, resp.IsLate)

		// The copy goes back on the shelf.
		book, err := env.books.GetByID(1)
		require.NoError(t, err)
		assert.Equal(t, 2, book.StockCount)
	})

	t.Run("charges a late fee on overdue returns", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Overdue", 1))
		rentalID := checkout(t, env)

		// An hour inside the second overdue day, so the fee stays at two
		// days regardless of test duration.
		due := time.Now().Add(-47 * time.Hour)
		require.NoError(t, env.db.DB.Model(&entities.RentalLease{}).
			Where("id = ?", rentalID).Update("end_date", due).Error)

		w := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        rentalID,
			"returnCondition": "EXCELLENT",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp returnResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.IsLate)
		assert.Equal(t, 100.0, resp.LateFee) // 2 days x 10% of the rental price
		assert.Equal(t, 900.0, resp.RefundAmount)
	})

	t.Run("rejects an unrecognized condition", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))
		rentalID := checkout(t, env)

		w := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        rentalID,
			"returnCondition": "PRISTINE",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("a second return reads as not found", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))
		rentalID := checkout(t, env)

		first := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        rentalID,
			"returnCondition": "FAIR",
		})
		require.Equal(t, http.StatusOK, first.Code)

		second := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        rentalID,
			"returnCondition": "FAIR",
		})
		assert.Equal(t, http.StatusNotFound, second.Code)
	})

	t.Run("unknown rental", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{
			"rentalId":        9999,
			"returnCondition": "GOOD",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		env, cleanup := setupAPITest(t)
		defer cleanup()

		env.seedBook(t, hardcopyBook("Book", 1))

		w := env.postJSON(t, "/api/hardcopy-rental/1/return", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
