// Package books exposes the narrow inventory surface the engine needs from
// the catalog: lookups and atomic stock movements.
package books

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/libraria-al/libraria/internal/entities"
)

// ErrOutOfStock indicates no physical copy is available to claim.
var ErrOutOfStock = errors.New("no copies in stock")

// ErrBookNotFound indicates the book does not exist in the catalog.
var ErrBookNotFound = errors.New("book not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DecrementStock claims one physical copy. The guard lives in the UPDATE
// statement itself, so the stock count can never go negative regardless of
// how many checkouts race.
func (r *Repository) DecrementStock(bookID uint) error {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND stock_count > 0", bookID).
		UpdateColumn("stock_count", gorm.Expr("stock_count - 1"))
	if result.Error != nil {
		return fmt.Errorf("decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrBookNotFound
		}
		return ErrOutOfStock
	}
	return nil
}

// IncrementStock puts a returned copy back on the shelf.
func (r *Repository) IncrementStock(bookID uint) error {
	result := r.db.Model(&entities.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("stock_count", gorm.Expr("stock_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("increment stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}
