package repository

import (
	"context"

	"storefront/internal/app/storefront/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderItemRepository struct {
	db *gorm.DB
}

// NewOrderItemRepository создает новый репозиторий позиций заказа
func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

// CreateBulk создает все позиции заказа одним INSERT
func (r *orderItemRepository) CreateBulk(ctx context.Context, items []entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Create(&items)
	return result.Error
}

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	var items []entity.OrderItem
	result := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items)

	if result.Error != nil {
		return nil, result.Error
	}

	return items, nil
}
