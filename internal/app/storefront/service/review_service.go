package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/repository"
	"storefront/internal/app/storefront/util"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// ReviewService обрабатывает отзывы и рейтинг товаров.
// Запись отзыва и пересчёт рейтинга выполняются в одной транзакции,
// поэтому рейтинг всегда равен среднему по активным отзывам
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	txManager   repository.TransactionManager
	producer    util.MessagePublisher
}

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	txManager repository.TransactionManager,
	producer util.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		txManager:   txManager,
		producer:    producer,
	}
}

// CreateReview создает отзыв покупателя и пересчитывает рейтинг товара
func (s *ReviewService) CreateReview(ctx context.Context, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if req.Grade < 1 || req.Grade > 5 {
		return nil, ErrInvalidGrade
	}

	review := &entity.Review{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: req.ProductID,
		Grade:     req.Grade,
		Comment:   req.Comment,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	var rating float64

	err := s.txManager.WithinTx(ctx, func(r repository.TxRepos) error {
		if _, err := r.Products().GetActiveByID(ctx, req.ProductID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return ErrProductUnavailable
			}
			return fmt.Errorf("failed to get product: %w", err)
		}

		if err := r.Reviews().Create(ctx, review); err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		var err error
		rating, err = s.recomputeRating(ctx, r, req.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewGrades.Observe(float64(req.Grade))

	s.publishReviewEvent(ctx, entity.ReviewEvent{
		EventType: "REVIEW_CREATED",
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Grade:     review.Grade,
		Rating:    rating,
		Timestamp: time.Now(),
	})

	return review, nil
}

// DeleteReview логически удаляет отзыв и пересчитывает рейтинг товара.
// Доступно администратору и продавцу, владеющему товаром отзыва
func (s *ReviewService) DeleteReview(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, reviewID uuid.UUID) error {
	var (
		review *entity.Review
		rating float64
	)

	err := s.txManager.WithinTx(ctx, func(r repository.TxRepos) error {
		var err error
		review, err = r.Reviews().GetActiveByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to get review: %w", err)
		}

		if actorRole != entity.RoleAdmin {
			product, err := r.Products().GetByID(ctx, review.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return ErrProductNotFound
				}
				return fmt.Errorf("failed to get product: %w", err)
			}
			if product.SellerID != actorID {
				return ErrForbidden
			}
		}

		if err := r.Reviews().Deactivate(ctx, reviewID); err != nil {
			return fmt.Errorf("failed to deactivate review: %w", err)
		}

		rating, err = s.recomputeRating(ctx, r, review.ProductID)
		return err
	})
	if err != nil {
		return err
	}

	s.publishReviewEvent(ctx, entity.ReviewEvent{
		EventType: "REVIEW_DELETED",
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Grade:     review.Grade,
		Rating:    rating,
		Timestamp: time.Now(),
	})

	return nil
}

// GetProductReviews возвращает активные отзывы существующего активного товара
func (s *ReviewService) GetProductReviews(ctx context.Context, productID uuid.UUID) ([]entity.Review, error) {
	if _, err := s.productRepo.GetActiveByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	reviews, err := s.reviewRepo.GetActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// GetAllReviews возвращает все активные отзывы магазина
func (s *ReviewService) GetAllReviews(ctx context.Context) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// recomputeRating пересчитывает рейтинг товара по активным отзывам.
// Товар без отзывов получает рейтинг 0.
// Если товар исчез после проверки, вся мутация отзыва откатывается
func (s *ReviewService) recomputeRating(ctx context.Context, r repository.TxRepos, productID uuid.UUID) (float64, error) {
	rating, err := r.Reviews().AverageActiveGrade(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rating: %w", err)
	}

	if err := r.Products().UpdateRating(ctx, productID, rating); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to update rating: %w", err)
	}

	return rating, nil
}

// publishReviewEvent отправляет событие об отзыве в Kafka.
// Ошибки публикации логируются, но операцию не откатывают
func (s *ReviewService) publishReviewEvent(ctx context.Context, event entity.ReviewEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal review event")
		return
	}

	// Ключ = ProductID, события одного товара попадают в одну партицию
	if err := s.producer.PublishMessage(ctx, event.ProductID.String(), eventData); err != nil {
		logger.Error().Err(err).
			Str("review_id", event.ReviewID.String()).
			Str("event_type", event.EventType).
			Msg("failed to publish review event")
	}
}
