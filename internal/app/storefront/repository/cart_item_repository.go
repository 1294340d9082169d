package repository

import (
	"context"
	"errors"

	"storefront/internal/app/storefront/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type cartItemRepository struct {
	db *gorm.DB
}

// NewCartItemRepository создает новый репозиторий строк корзины
func NewCartItemRepository(db *gorm.DB) CartItemRepository {
	return &cartItemRepository{db: db}
}

func (r *cartItemRepository) Create(ctx context.Context, item *entity.CartItem) error {
	result := r.db.WithContext(ctx).Create(item)
	return result.Error
}

func (r *cartItemRepository) GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error) {
	var item entity.CartItem
	result := r.db.WithContext(ctx).First(&item, "user_id = ? AND product_id = ?", userID, productID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, result.Error
	}

	return &item, nil
}

// ListByUser возвращает строки корзины в порядке их добавления
func (r *cartItemRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.CartItem, error) {
	var items []entity.CartItem
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items)

	if result.Error != nil {
		return nil, result.Error
	}

	return items, nil
}

func (r *cartItemRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	result := r.db.WithContext(ctx).Model(&entity.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartItemRepository) DeleteByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&entity.CartItem{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// DeleteByUser очищает корзину пользователя (в том числе при checkout)
func (r *cartItemRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.CartItem{})

	return result.Error
}
