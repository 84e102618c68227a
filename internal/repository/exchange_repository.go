package repository

import (
	"fmt"

	"gorm.io/gorm"

	"tutorchat/internal/model"
)

type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) Create(exchange *model.Exchange) error {
	if err := r.db.Create(exchange).Error; err != nil {
		return fmt.Errorf("create exchange failed: %w", err)
	}
	return nil
}

// ListByOwnerAndCourse returns the newest exchanges first.
func (r *ExchangeRepository) ListByOwnerAndCourse(identity, courseID string, limit int) ([]model.Exchange, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var exchanges []model.Exchange
	err := r.db.
		Where("identity = ? AND course_id = ?", identity, courseID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, fmt.Errorf("list exchanges failed: %w", err)
	}
	return exchanges, nil
}
