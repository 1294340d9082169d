package repository

import (
	"context"
	"errors"

	"storefront/internal/app/storefront/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	result := r.db.WithContext(ctx).Create(review)
	return result.Error
}

func (r *reviewRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).First(&review, "id = ? AND is_active = true", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

func (r *reviewRepository) GetAllActive(ctx context.Context) ([]entity.Review, error) {
	var reviews []entity.Review
	result := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("created_at DESC").
		Find(&reviews)

	if result.Error != nil {
		return nil, result.Error
	}

	return reviews, nil
}

func (r *reviewRepository) GetActiveByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error) {
	var reviews []entity.Review
	result := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = true", productID).
		Order("created_at DESC").
		Find(&reviews)

	if result.Error != nil {
		return nil, result.Error
	}

	return reviews, nil
}

// Deactivate выполняет мягкое удаление отзыва
func (r *reviewRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entity.Review{}).
		Where("id = ? AND is_active = true", id).
		Update("is_active", false)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// AverageActiveGrade считает среднюю оценку по активным отзывам товара.
// COALESCE сводит отсутствие отзывов к 0.
func (r *reviewRepository) AverageActiveGrade(ctx context.Context, productID uuid.UUID) (float64, error) {
	var avg float64
	result := r.db.WithContext(ctx).Model(&entity.Review{}).
		Select("COALESCE(AVG(grade), 0)").
		Where("product_id = ? AND is_active = true", productID).
		Scan(&avg)

	if result.Error != nil {
		return 0, result.Error
	}

	return avg, nil
}
