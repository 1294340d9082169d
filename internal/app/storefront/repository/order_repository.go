package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/app/storefront/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создает новый репозиторий заказов
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	return result.Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	result := r.db.WithContext(ctx).First(&order, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, result.Error
	}

	return &order, nil
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Order, error) {
	var orders []entity.Order
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders)

	if result.Error != nil {
		return nil, result.Error
	}

	return orders, nil
}

func (r *orderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*entity.Order, error) {
	var order entity.Order
	result := r.db.WithContext(ctx).First(&order, "payment_id = ?", paymentID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, result.Error
	}

	return &order, nil
}

// GetWithItems получает заказ с полным списком позиций
func (r *orderRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.OrderWithItems, error) {
	var order entity.Order
	result := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, result.Error
	}

	return &entity.OrderWithItems{
		Order: order,
		Items: order.Items,
	}, nil
}

// SetPaymentID присваивает заказу платёжный идентификатор.
// Уникальность payment_id обеспечивается индексом в PostgreSQL.
func (r *orderRepository) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", id).
		Update("payment_id", paymentID)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicatePaymentID
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdateStatusFrom переводит заказ из статуса from в to одним условным UPDATE.
// Конкурентное повторное уведомление об оплате не пройдёт условие по from
// и не продублирует побочные эффекты.
func (r *orderRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status": to,
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}

	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// CountByStatus считает заказы по статусам (для gauge orders_by_status)
func (r *orderRepository) CountByStatus(ctx context.Context) (map[entity.OrderStatus]int64, error) {
	type statusCount struct {
		Status entity.OrderStatus
		Count  int64
	}

	var rows []statusCount
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows)

	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[entity.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
