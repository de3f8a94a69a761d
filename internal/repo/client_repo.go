// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client model.
//
// All functions are context-aware and accept a *gorm.DB handle, so callers can
// run them inside a transaction by passing the tx handle.
// Repositories stay thin: no validation, only persistence and query
// composition.
//
// Error semantics:
//   - A missing client yields ErrNotFound (an alias of gorm.ErrRecordNotFound).
//   - Any other DB error is propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/client-tracker-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer
// and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListClients returns every client ordered by id ascending. The result is an
// empty, non-nil slice when the table has no rows.
func ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	out := []domain.Client{}
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CreateClient inserts c and fills in its assigned ID.
func CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetClient fetches a client by id, or ErrNotFound.
func GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	var c domain.Client
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateClientFields writes the given column values to c's row. Keys are
// column names and a nil value stores SQL NULL. An empty map is a no-op.
func UpdateClientFields(ctx context.Context, db *gorm.DB, c *domain.Client, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).Model(c).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes the client with the given id. It returns ErrNotFound
// when no row matched.
func DeleteClient(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Client{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
