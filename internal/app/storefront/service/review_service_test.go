package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/repository"
	"storefront/internal/app/storefront/repository/mocks"
)

func newReviewServiceForTest() (*ReviewService, *mocks.MockReviewRepository, *mocks.MockProductRepository, *mocks.MockTxRepos, *mocks.MockMessagePublisher) {
	reviewRepo := new(mocks.MockReviewRepository)
	productRepo := new(mocks.MockProductRepository)
	txRepos := mocks.NewMockTxRepos()
	producer := &mocks.MockMessagePublisher{Messages: make([][]byte, 0)}
	svc := NewReviewService(reviewRepo, productRepo, mocks.NewMockTxManager(txRepos), producer)
	return svc, reviewRepo, productRepo, txRepos, producer
}

func TestCreateReview_Success(t *testing.T) {
	svc, _, _, txRepos, producer := newReviewServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()
	product := &entity.Product{ID: productID, IsActive: true}

	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(product, nil)
	txRepos.ReviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	txRepos.ReviewRepo.On("AverageActiveGrade", ctx, productID).Return(4.5, nil)
	txRepos.ProductRepo.On("UpdateRating", ctx, productID, 4.5).Return(nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	review, err := svc.CreateReview(ctx, userID, &entity.CreateReviewRequest{ProductID: productID, Grade: 5, Comment: "Great"})

	assert.NoError(t, err)
	assert.NotNil(t, review)
	assert.Equal(t, 5, review.Grade)
	assert.True(t, review.IsActive)
	// Рейтинг пересчитан в той же транзакции
	txRepos.ProductRepo.AssertCalled(t, "UpdateRating", ctx, productID, 4.5)
	assert.Len(t, producer.Messages, 1)
}

func TestCreateReview_InvalidGrade(t *testing.T) {
	svc, _, _, txRepos, _ := newReviewServiceForTest()

	ctx := context.Background()

	for _, grade := range []int{0, 6, -1} {
		review, err := svc.CreateReview(ctx, uuid.New(), &entity.CreateReviewRequest{ProductID: uuid.New(), Grade: grade})
		assert.ErrorIs(t, err, ErrInvalidGrade)
		assert.Nil(t, review)
	}
	txRepos.ReviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_ProductGoneBeforeRecompute(t *testing.T) {
	svc, _, _, txRepos, producer := newReviewServiceForTest()

	ctx := context.Background()
	productID := uuid.New()
	product := &entity.Product{ID: productID, IsActive: true}

	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(product, nil)
	txRepos.ReviewRepo.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return(nil)
	txRepos.ReviewRepo.On("AverageActiveGrade", ctx, productID).Return(5.0, nil)
	// Товар исчез между проверкой и записью рейтинга
	txRepos.ProductRepo.On("UpdateRating", ctx, productID, 5.0).Return(repository.ErrProductNotFound)

	review, err := svc.CreateReview(ctx, uuid.New(), &entity.CreateReviewRequest{ProductID: productID, Grade: 5})

	// Транзакция откатывается целиком, отзыв не сохраняется
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, review)
	assert.Empty(t, producer.Messages)
}

func TestCreateReview_InactiveProduct(t *testing.T) {
	svc, _, _, txRepos, _ := newReviewServiceForTest()

	ctx := context.Background()
	productID := uuid.New()

	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(nil, repository.ErrProductNotFound)

	review, err := svc.CreateReview(ctx, uuid.New(), &entity.CreateReviewRequest{ProductID: productID, Grade: 4})

	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Nil(t, review)
}

func TestDeleteReview_AdminRecomputesRating(t *testing.T) {
	svc, _, _, txRepos, producer := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()
	productID := uuid.New()

	review := &entity.Review{ID: reviewID, UserID: uuid.New(), ProductID: productID, Grade: 1, IsActive: true}

	txRepos.ReviewRepo.On("GetActiveByID", ctx, reviewID).Return(review, nil)
	txRepos.ReviewRepo.On("Deactivate", ctx, reviewID).Return(nil)
	txRepos.ReviewRepo.On("AverageActiveGrade", ctx, productID).Return(4.0, nil)
	txRepos.ProductRepo.On("UpdateRating", ctx, productID, 4.0).Return(nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.DeleteReview(ctx, uuid.New(), entity.RoleAdmin, reviewID)

	assert.NoError(t, err)
	txRepos.ProductRepo.AssertCalled(t, "UpdateRating", ctx, productID, 4.0)
}

func TestDeleteReview_OwningSeller(t *testing.T) {
	svc, _, _, txRepos, producer := newReviewServiceForTest()

	ctx := context.Background()
	sellerID := uuid.New()
	reviewID := uuid.New()
	productID := uuid.New()

	review := &entity.Review{ID: reviewID, ProductID: productID, Grade: 2, IsActive: true}
	product := &entity.Product{ID: productID, SellerID: sellerID}

	txRepos.ReviewRepo.On("GetActiveByID", ctx, reviewID).Return(review, nil)
	txRepos.ProductRepo.On("GetByID", ctx, productID).Return(product, nil)
	txRepos.ReviewRepo.On("Deactivate", ctx, reviewID).Return(nil)
	txRepos.ReviewRepo.On("AverageActiveGrade", ctx, productID).Return(0.0, nil)
	txRepos.ProductRepo.On("UpdateRating", ctx, productID, 0.0).Return(nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.DeleteReview(ctx, sellerID, entity.RoleSeller, reviewID)

	assert.NoError(t, err)
}

func TestDeleteReview_ForeignSeller(t *testing.T) {
	svc, _, _, txRepos, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()
	productID := uuid.New()

	review := &entity.Review{ID: reviewID, ProductID: productID, Grade: 2, IsActive: true}
	product := &entity.Product{ID: productID, SellerID: uuid.New()}

	txRepos.ReviewRepo.On("GetActiveByID", ctx, reviewID).Return(review, nil)
	txRepos.ProductRepo.On("GetByID", ctx, productID).Return(product, nil)

	err := svc.DeleteReview(ctx, uuid.New(), entity.RoleSeller, reviewID)

	assert.ErrorIs(t, err, ErrForbidden)
	txRepos.ReviewRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestDeleteReview_SellerMissingProduct(t *testing.T) {
	svc, _, _, txRepos, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()
	productID := uuid.New()

	review := &entity.Review{ID: reviewID, ProductID: productID, Grade: 3, IsActive: true}

	txRepos.ReviewRepo.On("GetActiveByID", ctx, reviewID).Return(review, nil)
	txRepos.ProductRepo.On("GetByID", ctx, productID).Return(nil, repository.ErrProductNotFound)

	err := svc.DeleteReview(ctx, uuid.New(), entity.RoleSeller, reviewID)

	assert.ErrorIs(t, err, ErrProductNotFound)
	txRepos.ReviewRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestDeleteReview_NotFound(t *testing.T) {
	svc, _, _, txRepos, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviewID := uuid.New()

	txRepos.ReviewRepo.On("GetActiveByID", ctx, reviewID).Return(nil, repository.ErrReviewNotFound)

	err := svc.DeleteReview(ctx, uuid.New(), entity.RoleAdmin, reviewID)

	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestGetProductReviews_Success(t *testing.T) {
	svc, reviewRepo, productRepo, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	productID := uuid.New()
	reviews := []entity.Review{
		{ID: uuid.New(), ProductID: productID, Grade: 5, IsActive: true},
		{ID: uuid.New(), ProductID: productID, Grade: 3, IsActive: true},
	}

	productRepo.On("GetActiveByID", ctx, productID).Return(&entity.Product{ID: productID, IsActive: true}, nil)
	reviewRepo.On("GetActiveByProduct", ctx, productID).Return(reviews, nil)

	got, err := svc.GetProductReviews(ctx, productID)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetProductReviews_InactiveProduct(t *testing.T) {
	svc, reviewRepo, productRepo, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	productID := uuid.New()

	productRepo.On("GetActiveByID", ctx, productID).Return(nil, repository.ErrProductNotFound)

	_, err := svc.GetProductReviews(ctx, productID)

	assert.ErrorIs(t, err, ErrProductNotFound)
	reviewRepo.AssertNotCalled(t, "GetActiveByProduct", mock.Anything, mock.Anything)
}

func TestGetAllReviews_Success(t *testing.T) {
	svc, reviewRepo, _, _, _ := newReviewServiceForTest()

	ctx := context.Background()
	reviews := []entity.Review{
		{ID: uuid.New(), Grade: 5, IsActive: true},
		{ID: uuid.New(), Grade: 2, IsActive: true},
	}

	reviewRepo.On("GetAllActive", ctx).Return(reviews, nil)

	got, err := svc.GetAllReviews(ctx)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}
