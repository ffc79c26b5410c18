package entities

import "time"

// Book is the narrow slice of the catalog this engine needs: identity,
// physical inventory, digital availability, and hardcopy pricing. Catalog
// browsing and search live elsewhere.
type Book struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Title  string `gorm:"index;size:512" json:"title"`
	Author string `gorm:"index;size:256" json:"author"`
	ISBN   string `gorm:"index;size:20" json:"isbn,omitempty"`

	// Physical copies available for hardcopy rental.
	StockCount int `json:"stock_count"`

	HasEbook     bool `json:"has_ebook"`
	HasAudiobook bool `json:"has_audiobook"`

	// Per-book audiobook concurrency rule. Zero means the user's
	// subscription grant applies instead.
	MaxConcurrentListens int `json:"max_concurrent_listens,omitempty"`

	// Hardcopy rental terms.
	GuaranteeAmount float64 `json:"guarantee_amount"`
	RentalPrice     float64 `json:"rental_price"`
	Currency        string  `gorm:"size:3" json:"currency"`
	RentalDays      int     `json:"rental_days"` // planned loan period

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:100" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255" json:"email"`
	Token    string `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SubscriptionGrant is a user's entitlement to concurrent digital
// consumption of one lease kind. The current active count is never stored
// here; it is always derived from the lease table so the two cannot drift.
type SubscriptionGrant struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex:idx_grant_user_kind" json:"user_id"`
	Kind          LeaseKind `gorm:"uniqueIndex:idx_grant_user_kind;size:30" json:"kind"`
	Tier          string    `gorm:"size:50" json:"tier"`
	MaxConcurrent int       `json:"max_concurrent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SubscriptionGrant) TableName() string {
	return "subscription_grants"
}
