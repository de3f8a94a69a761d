// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/client-tracker-backend/internal/domain"
)

// ClientsStats summarizes the clients table so callers can detect changes
// without loading every row.
type ClientsStats struct {
	Count        int64
	MaxID        uint
	MaxUpdatedAt *time.Time
}

// GetClientsStats returns the row count, the highest id and the greatest
// UpdatedAt across all clients. On an empty table it returns a zero value
// with a nil MaxUpdatedAt.
func GetClientsStats(ctx context.Context, db *gorm.DB) (ClientsStats, error) {
	var st ClientsStats
	q := db.WithContext(ctx).Model(&domain.Client{})

	if err := q.Session(&gorm.Session{}).Count(&st.Count).Error; err != nil {
		return ClientsStats{}, err
	}
	if st.Count == 0 {
		return ClientsStats{}, nil
	}

	var idRow struct{ ID uint }
	if err := q.Session(&gorm.Session{}).Select("id").Order("id DESC").Limit(1).Scan(&idRow).Error; err != nil {
		return ClientsStats{}, err
	}
	st.MaxID = idRow.ID

	// Order/limit instead of MAX(): SQLite returns MAX() over datetimes as TEXT.
	var row struct {
		UpdatedAt time.Time
	}
	if err := q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return ClientsStats{}, err
	}
	st.MaxUpdatedAt = &row.UpdatedAt
	return st, nil
}
