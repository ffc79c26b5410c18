// Package users provides user and subscription grant lookups.
//
// # Usage
//
//	repo := users.NewRepository(db, users.Defaults{Tier: "standard", MaxConcurrent: 2})
//	user, err := repo.GetUserByToken(token)
package users

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/entities"
)

// ErrUserNotFound indicates no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Defaults describes the grant seeded for users without an explicit
// subscription row.
type Defaults struct {
	Tier          string
	MaxConcurrent int
}

// Repository handles user and grant database operations.
type Repository struct {
	db       *gorm.DB
	defaults Defaults
}

func NewRepository(db *gorm.DB, defaults Defaults) *Repository {
	return &Repository{db: db, defaults: defaults}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, defaults: r.defaults}
}

// CreateUser creates a new user with a generated API token.
func (r *Repository) CreateUser(username, email string) (*entities.User, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user := &entities.User{
		Username: username,
		Email:    email,
		Token:    token,
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) GetUserByToken(token string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetGrant returns the user's subscription grant for a lease kind, seeding a
// default-tier grant on first use so every user has a well-defined quota.
func (r *Repository) GetGrant(userID uint, kind entities.LeaseKind) (*entities.SubscriptionGrant, error) {
	var grant entities.SubscriptionGrant
	err := r.db.Where("user_id = ? AND kind = ?", userID, kind).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		grant = entities.SubscriptionGrant{
			UserID:        userID,
			Kind:          kind,
			Tier:          r.defaults.Tier,
			MaxConcurrent: r.defaults.MaxConcurrent,
		}
		if err := r.db.Create(&grant).Error; err != nil {
			return nil, fmt.Errorf("seed default grant: %w", err)
		}
		return &grant, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// SetGrant upserts a user's grant for a kind, used by tier changes.
func (r *Repository) SetGrant(userID uint, kind entities.LeaseKind, tier string, maxConcurrent int) (*entities.SubscriptionGrant, error) {
	var grant entities.SubscriptionGrant
	err := r.db.Where("user_id = ? AND kind = ?", userID, kind).First(&grant).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		grant = entities.SubscriptionGrant{
			UserID:        userID,
			Kind:          kind,
			Tier:          tier,
			MaxConcurrent: maxConcurrent,
		}
		if err := r.db.Create(&grant).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		grant.Tier = tier
		grant.MaxConcurrent = maxConcurrent
		if err := r.db.Save(&grant).Error; err != nil {
			return nil, err
		}
	}
	return &grant, nil
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
