package service

import "errors"

// Ошибки бизнес-логики для обработки в handlers.
// Все они обнаруживаются до каких-либо частичных записей:
// транзакция либо применяет операцию целиком, либо не применяет ничего.
var (
	// Идентичность и доступ
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("operation is not permitted for this identity")

	// Каталог
	ErrCategoryNotFound   = errors.New("category not found or inactive")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not found or inactive")

	// Отзывы
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidGrade   = errors.New("grade must be between 1 and 5")

	// Корзина и заказы
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownPayment    = errors.New("no order matches this payment reference")
	ErrInvalidTransition = errors.New("invalid order status transition")
)
