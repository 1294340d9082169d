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

// OrderService обрабатывает жизненный цикл заказа.
// Оформление, подтверждение оплаты и отмена выполняются в транзакциях:
// резервирование остатков и смена статуса либо применяются целиком, либо нет
type OrderService struct {
	orderRepo     repository.OrderRepository
	orderItemRepo repository.OrderItemRepository
	txManager     repository.TransactionManager
	producer      util.MessagePublisher
}

// NewOrderService создает новый сервис заказов с внедрением зависимостей
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderItemRepo repository.OrderItemRepository,
	txManager repository.TransactionManager,
	producer util.MessagePublisher,
) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		txManager:     txManager,
		producer:      producer,
	}
}

// Checkout оформляет заказ из корзины пользователя.
// В одной транзакции: читает корзину, фиксирует текущие цены,
// резервирует остатки условным UPDATE, создает заказ и очищает корзину.
// Нехватка остатка по любой позиции откатывает всё
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID) (*entity.OrderWithItems, error) {
	var result *entity.OrderWithItems

	err := s.txManager.WithinTx(ctx, func(r repository.TxRepos) error {
		cartItems, err := r.CartItems().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list cart items: %w", err)
		}
		if len(cartItems) == 0 {
			return ErrEmptyCart
		}

		order := &entity.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    entity.OrderStatusPending,
			CreatedAt: time.Now(),
		}

		var totalAmount float64
		orderItems := make([]entity.OrderItem, 0, len(cartItems))

		for _, cartItem := range cartItems {
			product, err := r.Products().GetActiveByID(ctx, cartItem.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return ErrProductUnavailable
				}
				return fmt.Errorf("failed to get product: %w", err)
			}

			// Условный UPDATE защищает от гонки конкурентных оформлений
			ok, err := r.Products().DecrementStockIfEnough(ctx, product.ID, cartItem.Quantity)
			if err != nil {
				return fmt.Errorf("failed to reserve stock: %w", err)
			}
			if !ok {
				metrics.StockConflicts.Inc()
				return ErrInsufficientStock
			}

			item := entity.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  cartItem.Quantity,
				// Цена фиксируется на момент оформления
				UnitPrice: product.Price,
			}
			orderItems = append(orderItems, item)
			totalAmount += product.Price * float64(cartItem.Quantity)
		}

		order.TotalAmount = totalAmount

		if err := r.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, orderItems); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		if err := r.CartItems().DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		result = &entity.OrderWithItems{
			Order: *order,
			Items: orderItems,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()

	s.publishOrderEvent(ctx, entity.OrderEvent{
		EventType:   "ORDER_CREATED",
		OrderID:     result.ID,
		UserID:      result.UserID,
		TotalAmount: result.TotalAmount,
		Status:      result.Status,
		ItemsCount:  len(result.Items),
		Timestamp:   time.Now(),
	})

	return result, nil
}

// InitiatePayment выдает платёжный идентификатор для pending заказа.
// Повторный вызов возвращает уже присвоенный идентификатор
func (s *OrderService) InitiatePayment(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to get order: %w", err)
	}

	if order.UserID != userID {
		return "", ErrForbidden
	}
	if order.PaymentID != nil {
		return *order.PaymentID, nil
	}
	if order.Status != entity.OrderStatusPending {
		return "", ErrInvalidTransition
	}

	paymentID := "pay_" + uuid.NewString()
	if err := s.orderRepo.SetPaymentID(ctx, orderID, paymentID); err != nil {
		if errors.Is(err, repository.ErrDuplicatePaymentID) {
			// Конкурентный вызов успел первым, возвращаем его идентификатор
			fresh, ferr := s.orderRepo.GetByID(ctx, orderID)
			if ferr == nil && fresh.PaymentID != nil {
				return *fresh.PaymentID, nil
			}
		}
		return "", fmt.Errorf("failed to set payment id: %w", err)
	}

	return paymentID, nil
}

// ConfirmPayment обрабатывает уведомление платёжного шлюза.
// Доставка at-least-once: повтор того же исхода — no-op.
// Успех переводит заказ в paid, отказ отменяет заказ и возвращает остатки
func (s *OrderService) ConfirmPayment(ctx context.Context, req *entity.PaymentWebhookRequest) error {
	order, err := s.orderRepo.GetByPaymentID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			metrics.PaymentConfirmations.WithLabelValues("unknown").Inc()
			return ErrUnknownPayment
		}
		return fmt.Errorf("failed to get order by payment id: %w", err)
	}

	var target entity.OrderStatus
	switch req.Status {
	case entity.PaymentStatusSucceeded:
		target = entity.OrderStatusPaid
	case entity.PaymentStatusCanceled:
		target = entity.OrderStatusCancelled
	default:
		return ErrInvalidTransition
	}

	if order.Status == target {
		// Повторная доставка уже обработанного уведомления
		metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		return nil
	}
	if order.Status != entity.OrderStatusPending {
		return ErrInvalidTransition
	}

	switch target {
	case entity.OrderStatusPaid:
		now := time.Now()
		err = s.orderRepo.UpdateStatusFrom(ctx, order.ID, entity.OrderStatusPending, entity.OrderStatusPaid, &now)
	case entity.OrderStatusCancelled:
		err = s.cancelAndRestock(ctx, order.ID)
	}

	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Гонка двух доставок: проверяем, не пришли ли мы к тому же исходу
			fresh, ferr := s.orderRepo.GetByID(ctx, order.ID)
			if ferr == nil && fresh.Status == target {
				metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
				return nil
			}
			return ErrInvalidTransition
		}
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	if target == entity.OrderStatusPaid {
		metrics.PaymentConfirmations.WithLabelValues("paid").Inc()
	} else {
		metrics.PaymentConfirmations.WithLabelValues("cancelled").Inc()
	}

	items, _ := s.orderItemRepo.GetByOrderID(ctx, order.ID)
	eventType := "ORDER_PAID"
	if target == entity.OrderStatusCancelled {
		eventType = "ORDER_CANCELLED"
	}
	s.publishOrderEvent(ctx, entity.OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      target,
		ItemsCount:  len(items),
		Timestamp:   time.Now(),
	})

	return nil
}

// CancelOrder отменяет pending заказ и возвращает остатки.
// Доступен владельцу и администратору
func (s *OrderService) CancelOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	if role != entity.RoleAdmin && order.UserID != userID {
		return ErrForbidden
	}
	if order.Status != entity.OrderStatusPending {
		return ErrInvalidTransition
	}

	if err := s.cancelAndRestock(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	items, _ := s.orderItemRepo.GetByOrderID(ctx, orderID)
	s.publishOrderEvent(ctx, entity.OrderEvent{
		EventType:   "ORDER_CANCELLED",
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      entity.OrderStatusCancelled,
		ItemsCount:  len(items),
		Timestamp:   time.Now(),
	})

	return nil
}

// GetOrder возвращает заказ с позициями.
// Доступен владельцу и администратору
func (s *OrderService) GetOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) (*entity.OrderWithItems, error) {
	order, err := s.orderRepo.GetWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if role != entity.RoleAdmin && order.UserID != userID {
		// Чужой заказ неотличим от несуществующего
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// GetUserOrders возвращает все заказы пользователя с позициями
func (s *OrderService) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]entity.OrderWithItems, error) {
	orders, err := s.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}

	result := make([]entity.OrderWithItems, 0, len(orders))
	for _, order := range orders {
		items, err := s.orderItemRepo.GetByOrderID(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order items: %w", err)
		}
		result = append(result, entity.OrderWithItems{Order: order, Items: items})
	}

	return result, nil
}

// cancelAndRestock в одной транзакции переводит заказ в cancelled
// и возвращает зарезервированные остатки.
// Условный UPDATE статуса гарантирует, что возврат выполнится не более одного раза
func (s *OrderService) cancelAndRestock(ctx context.Context, orderID uuid.UUID) error {
	return s.txManager.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Orders().UpdateStatusFrom(ctx, orderID, entity.OrderStatusPending, entity.OrderStatusCancelled, nil); err != nil {
			return err
		}

		items, err := r.OrderItems().GetByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order items: %w", err)
		}
		for _, item := range items {
			if err := r.Products().IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("failed to restock product: %w", err)
			}
		}
		return nil
	})
}

// publishOrderEvent отправляет событие о заказе в Kafka.
// Ошибки публикации логируются, но операцию не откатывают
func (s *OrderService) publishOrderEvent(ctx context.Context, event entity.OrderEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal order event")
		return
	}

	// Ключ = OrderID для партиционирования
	if err := s.producer.PublishMessage(ctx, event.OrderID.String(), eventData); err != nil {
		logger.Error().Err(err).
			Str("order_id", event.OrderID.String()).
			Str("event_type", event.EventType).
			Msg("failed to publish order event")
	}
}
