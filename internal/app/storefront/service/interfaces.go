package service

import (
	"context"

	"github.com/google/uuid"

	"storefront/internal/app/storefront/entity"
)

// AuthServiceInterface определяет контракт сервиса идентичности
type AuthServiceInterface interface {
	Register(ctx context.Context, req *entity.RegisterRequest) (*entity.TokenResponse, error)
	Login(ctx context.Context, req *entity.LoginRequest) (*entity.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*entity.TokenResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}

// CatalogServiceInterface определяет контракт сервиса каталога
type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	GetActiveCategories(ctx context.Context) ([]entity.Category, error)
	DeactivateCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, sellerID uuid.UUID, req *entity.CreateProductRequest) (*entity.Product, error)
	UpdateProduct(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, id uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetActiveProducts(ctx context.Context) ([]entity.Product, error)
	GetProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]entity.Product, error)
	DeactivateProduct(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, id uuid.UUID) error
}

// CartServiceInterface определяет контракт сервиса корзины
type CartServiceInterface interface {
	AddItem(ctx context.Context, userID uuid.UUID, req *entity.AddCartItemRequest) (*entity.CartItem, error)
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*entity.CartView, error)
}

// OrderServiceInterface определяет контракт сервиса заказов
type OrderServiceInterface interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*entity.OrderWithItems, error)
	InitiatePayment(ctx context.Context, userID, orderID uuid.UUID) (string, error)
	ConfirmPayment(ctx context.Context, req *entity.PaymentWebhookRequest) error
	CancelOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) error
	GetOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) (*entity.OrderWithItems, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]entity.OrderWithItems, error)
}

// ReviewServiceInterface определяет контракт сервиса отзывов
type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, reviewID uuid.UUID) error
	GetProductReviews(ctx context.Context, productID uuid.UUID) ([]entity.Review, error)
	GetAllReviews(ctx context.Context) ([]entity.Review, error)
}
