package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/app/storefront/entity"

	"github.com/google/uuid"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrUserNotFound       = errors.New("user not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrReviewNotFound     = errors.New("review not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicatePaymentID = errors.New("payment id already assigned to another order")
	// Условное обновление не прошло: статус заказа успел измениться
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAllActive(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID возвращает товар независимо от is_active (нужно для проверок владения)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	// GetActiveByID возвращает только активный товар
	GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetAllActive(ctx context.Context) ([]entity.Product, error)
	GetActiveByCategory(ctx context.Context, categoryID uuid.UUID) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// UpdateRating пишет пересчитанный рейтинг
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
	// DecrementStockIfEnough уменьшает остаток только если его хватает.
	// Возвращает false без ошибки, если остатка недостаточно.
	DecrementStockIfEnough(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	// IncrementStock возвращает остаток при отмене заказа
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetAllActive(ctx context.Context) ([]entity.Review, error)
	GetActiveByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error)
	// Deactivate выполняет мягкое удаление активного отзыва
	Deactivate(ctx context.Context, id uuid.UUID) error
	// AverageActiveGrade возвращает среднюю оценку по активным отзывам, 0 если их нет
	AverageActiveGrade(ctx context.Context, productID uuid.UUID) (float64, error)
}

type CartItemRepository interface {
	Create(ctx context.Context, item *entity.CartItem) error
	GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error)
	// ListByUser возвращает строки корзины в порядке добавления
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.CartItem, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	DeleteByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*entity.Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.OrderWithItems, error)
	// SetPaymentID присваивает заказу внешний платёжный идентификатор.
	// Возвращает ErrDuplicatePaymentID при нарушении уникальности payment_id.
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	// UpdateStatusFrom переводит заказ из from в to одним условным UPDATE.
	// Возвращает ErrStatusConflict, если заказ уже не в статусе from.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus, paidAt *time.Time) error
	// CountByStatus считает заказы по статусам для метрик
	CountByStatus(ctx context.Context) (map[entity.OrderStatus]int64, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, items []entity.OrderItem) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error)
}

// TxRepos - репозитории, привязанные к одной транзакции
type TxRepos interface {
	Categories() CategoryRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
}

// TransactionManager скрывает от service layer начало/commit/rollback транзакции.
// Возврат ошибки из fn откатывает все изменения.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
