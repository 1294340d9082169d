package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/repository"
	"storefront/internal/app/storefront/repository/mocks"
)

func newOrderServiceForTest() (*OrderService, *mocks.MockOrderRepository, *mocks.MockOrderItemRepository, *mocks.MockTxRepos, *mocks.MockMessagePublisher) {
	orderRepo := new(mocks.MockOrderRepository)
	orderItemRepo := new(mocks.MockOrderItemRepository)
	txRepos := mocks.NewMockTxRepos()
	producer := &mocks.MockMessagePublisher{Messages: make([][]byte, 0)}
	svc := NewOrderService(orderRepo, orderItemRepo, mocks.NewMockTxManager(txRepos), producer)
	return svc, orderRepo, orderItemRepo, txRepos, producer
}

func TestCheckout_Success(t *testing.T) {
	svc, _, _, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	cartItems := []entity.CartItem{
		{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: 2},
	}
	product := &entity.Product{ID: productID, Name: "Keyboard", Price: 49.90, Stock: 10, IsActive: true}

	txRepos.CartItemRepo.On("ListByUser", ctx, userID).Return(cartItems, nil)
	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(product, nil)
	txRepos.ProductRepo.On("DecrementStockIfEnough", ctx, productID, 2).Return(true, nil)
	txRepos.OrderRepo.On("Create", ctx, mock.AnythingOfType("*entity.Order")).Return(nil)
	txRepos.OrderItemRepo.On("CreateBulk", ctx, mock.AnythingOfType("[]entity.OrderItem")).Return(nil)
	txRepos.CartItemRepo.On("DeleteByUser", ctx, userID).Return(nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	order, err := svc.Checkout(ctx, userID)

	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.InDelta(t, 99.80, order.TotalAmount, 0.001)
	assert.Len(t, order.Items, 1)
	// Цена позиции зафиксирована на момент оформления
	assert.Equal(t, 49.90, order.Items[0].UnitPrice)
	assert.Len(t, producer.Messages, 1)
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, _, txRepos, _ := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()

	txRepos.CartItemRepo.On("ListByUser", ctx, userID).Return([]entity.CartItem{}, nil)

	order, err := svc.Checkout(ctx, userID)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, order)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	svc, _, _, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	firstID := uuid.New()
	secondID := uuid.New()

	cartItems := []entity.CartItem{
		{ID: uuid.New(), UserID: userID, ProductID: firstID, Quantity: 1},
		{ID: uuid.New(), UserID: userID, ProductID: secondID, Quantity: 5},
	}
	first := &entity.Product{ID: firstID, Price: 10, Stock: 3, IsActive: true}
	second := &entity.Product{ID: secondID, Price: 20, Stock: 2, IsActive: true}

	txRepos.CartItemRepo.On("ListByUser", ctx, userID).Return(cartItems, nil)
	txRepos.ProductRepo.On("GetActiveByID", ctx, firstID).Return(first, nil)
	txRepos.ProductRepo.On("DecrementStockIfEnough", ctx, firstID, 1).Return(true, nil)
	txRepos.ProductRepo.On("GetActiveByID", ctx, secondID).Return(second, nil)
	txRepos.ProductRepo.On("DecrementStockIfEnough", ctx, secondID, 5).Return(false, nil)

	order, err := svc.Checkout(ctx, userID)

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Nil(t, order)
	// Ошибка по второй позиции откатывает транзакцию: заказ не создавался
	txRepos.OrderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, producer.Messages)
}

func TestCheckout_ProductDeactivated(t *testing.T) {
	svc, _, _, txRepos, _ := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	cartItems := []entity.CartItem{
		{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: 1},
	}

	txRepos.CartItemRepo.On("ListByUser", ctx, userID).Return(cartItems, nil)
	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(nil, repository.ErrProductNotFound)

	order, err := svc.Checkout(ctx, userID)

	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Nil(t, order)
}

func TestInitiatePayment_Success(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: userID, Status: entity.OrderStatusPending}
	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)
	orderRepo.On("SetPaymentID", ctx, orderID, mock.AnythingOfType("string")).Return(nil)

	paymentID, err := svc.InitiatePayment(ctx, userID, orderID)

	assert.NoError(t, err)
	assert.NotEmpty(t, paymentID)
}

func TestInitiatePayment_Idempotent(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	existing := "pay_existing"

	order := &entity.Order{ID: orderID, UserID: userID, Status: entity.OrderStatusPending, PaymentID: &existing}
	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)

	paymentID, err := svc.InitiatePayment(ctx, userID, orderID)

	assert.NoError(t, err)
	assert.Equal(t, existing, paymentID)
	orderRepo.AssertNotCalled(t, "SetPaymentID", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePayment_ForeignOrder(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	orderID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: uuid.New(), Status: entity.OrderStatusPending}
	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := svc.InitiatePayment(ctx, uuid.New(), orderID)

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConfirmPayment_Succeeded(t *testing.T) {
	svc, orderRepo, orderItemRepo, _, producer := newOrderServiceForTest()

	ctx := context.Background()
	orderID := uuid.New()
	paymentID := "pay_abc"

	order := &entity.Order{ID: orderID, UserID: uuid.New(), Status: entity.OrderStatusPending, PaymentID: &paymentID}
	orderRepo.On("GetByPaymentID", ctx, paymentID).Return(order, nil)
	orderRepo.On("UpdateStatusFrom", ctx, orderID, entity.OrderStatusPending, entity.OrderStatusPaid, mock.AnythingOfType("*time.Time")).Return(nil)
	orderItemRepo.On("GetByOrderID", ctx, orderID).Return([]entity.OrderItem{}, nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: paymentID, Status: entity.PaymentStatusSucceeded})

	assert.NoError(t, err)
	assert.Len(t, producer.Messages, 1)
}

func TestConfirmPayment_CanceledRestocks(t *testing.T) {
	svc, orderRepo, orderItemRepo, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	orderID := uuid.New()
	productID := uuid.New()
	paymentID := "pay_abc"

	order := &entity.Order{ID: orderID, UserID: uuid.New(), Status: entity.OrderStatusPending, PaymentID: &paymentID}
	items := []entity.OrderItem{{ID: uuid.New(), OrderID: orderID, ProductID: productID, Quantity: 3, UnitPrice: 15}}

	orderRepo.On("GetByPaymentID", ctx, paymentID).Return(order, nil)
	txRepos.OrderRepo.On("UpdateStatusFrom", ctx, orderID, entity.OrderStatusPending, entity.OrderStatusCancelled, (*time.Time)(nil)).Return(nil)
	txRepos.OrderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	txRepos.ProductRepo.On("IncrementStock", ctx, productID, 3).Return(nil)
	orderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: paymentID, Status: entity.PaymentStatusCanceled})

	assert.NoError(t, err)
	txRepos.ProductRepo.AssertCalled(t, "IncrementStock", ctx, productID, 3)
}

func TestConfirmPayment_DuplicateDelivery(t *testing.T) {
	svc, orderRepo, _, _, producer := newOrderServiceForTest()

	ctx := context.Background()
	paymentID := "pay_abc"
	paidAt := time.Now()

	order := &entity.Order{ID: uuid.New(), Status: entity.OrderStatusPaid, PaymentID: &paymentID, PaidAt: &paidAt}
	orderRepo.On("GetByPaymentID", ctx, paymentID).Return(order, nil)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: paymentID, Status: entity.PaymentStatusSucceeded})

	// Повторная доставка того же исхода обрабатывается без изменений
	assert.NoError(t, err)
	orderRepo.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, producer.Messages)
}

func TestConfirmPayment_UnknownPayment(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	orderRepo.On("GetByPaymentID", ctx, "pay_missing").Return(nil, repository.ErrOrderNotFound)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: "pay_missing", Status: entity.PaymentStatusSucceeded})

	assert.ErrorIs(t, err, ErrUnknownPayment)
}

func TestConfirmPayment_ConflictingOutcome(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	paymentID := "pay_abc"

	order := &entity.Order{ID: uuid.New(), Status: entity.OrderStatusCancelled, PaymentID: &paymentID}
	orderRepo.On("GetByPaymentID", ctx, paymentID).Return(order, nil)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: paymentID, Status: entity.PaymentStatusSucceeded})

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmPayment_ConcurrentRace(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	orderID := uuid.New()
	paymentID := "pay_abc"

	pending := &entity.Order{ID: orderID, Status: entity.OrderStatusPending, PaymentID: &paymentID}
	paid := &entity.Order{ID: orderID, Status: entity.OrderStatusPaid, PaymentID: &paymentID}

	// Конкурентная доставка успела перевести заказ между чтением и UPDATE
	orderRepo.On("GetByPaymentID", ctx, paymentID).Return(pending, nil)
	orderRepo.On("UpdateStatusFrom", ctx, orderID, entity.OrderStatusPending, entity.OrderStatusPaid, mock.AnythingOfType("*time.Time")).Return(repository.ErrStatusConflict)
	orderRepo.On("GetByID", ctx, orderID).Return(paid, nil)

	err := svc.ConfirmPayment(ctx, &entity.PaymentWebhookRequest{PaymentID: paymentID, Status: entity.PaymentStatusSucceeded})

	assert.NoError(t, err)
}

func TestCancelOrder_Success(t *testing.T) {
	svc, orderRepo, orderItemRepo, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	productID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: userID, Status: entity.OrderStatusPending}
	items := []entity.OrderItem{{ID: uuid.New(), OrderID: orderID, ProductID: productID, Quantity: 2, UnitPrice: 30}}

	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)
	txRepos.OrderRepo.On("UpdateStatusFrom", ctx, orderID, entity.OrderStatusPending, entity.OrderStatusCancelled, (*time.Time)(nil)).Return(nil)
	txRepos.OrderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	txRepos.ProductRepo.On("IncrementStock", ctx, productID, 2).Return(nil)
	orderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.CancelOrder(ctx, userID, entity.RoleBuyer, orderID)

	assert.NoError(t, err)
	txRepos.ProductRepo.AssertCalled(t, "IncrementStock", ctx, productID, 2)
}

func TestCancelOrder_AdminAllowed(t *testing.T) {
	svc, orderRepo, orderItemRepo, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	adminID := uuid.New()
	orderID := uuid.New()
	productID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: uuid.New(), Status: entity.OrderStatusPending}
	items := []entity.OrderItem{{ID: uuid.New(), OrderID: orderID, ProductID: productID, Quantity: 1, UnitPrice: 15}}

	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)
	txRepos.OrderRepo.On("UpdateStatusFrom", ctx, orderID, entity.OrderStatusPending, entity.OrderStatusCancelled, (*time.Time)(nil)).Return(nil)
	txRepos.OrderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	txRepos.ProductRepo.On("IncrementStock", ctx, productID, 1).Return(nil)
	orderItemRepo.On("GetByOrderID", ctx, orderID).Return(items, nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

	err := svc.CancelOrder(ctx, adminID, entity.RoleAdmin, orderID)

	assert.NoError(t, err)
	txRepos.ProductRepo.AssertCalled(t, "IncrementStock", ctx, productID, 1)
}

func TestCancelOrder_PaidOrder(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: userID, Status: entity.OrderStatusPaid}
	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)

	err := svc.CancelOrder(ctx, userID, entity.RoleBuyer, orderID)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelOrder_ForeignOrder(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	orderID := uuid.New()

	order := &entity.Order{ID: orderID, UserID: uuid.New(), Status: entity.OrderStatusPending}
	orderRepo.On("GetByID", ctx, orderID).Return(order, nil)

	err := svc.CancelOrder(ctx, uuid.New(), entity.RoleBuyer, orderID)

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetOrder_OwnerAndAdmin(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest()

	ctx := context.Background()
	ownerID := uuid.New()
	orderID := uuid.New()

	order := &entity.OrderWithItems{Order: entity.Order{ID: orderID, UserID: ownerID, Status: entity.OrderStatusPending}}
	orderRepo.On("GetWithItems", ctx, orderID).Return(order, nil)

	got, err := svc.GetOrder(ctx, ownerID, entity.RoleBuyer, orderID)
	assert.NoError(t, err)
	assert.Equal(t, orderID, got.ID)

	got, err = svc.GetOrder(ctx, uuid.New(), entity.RoleAdmin, orderID)
	assert.NoError(t, err)
	assert.Equal(t, orderID, got.ID)

	// Чужой заказ для обычного пользователя неотличим от несуществующего
	_, err = svc.GetOrder(ctx, uuid.New(), entity.RoleBuyer, orderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCheckout_KafkaErrorIgnored(t *testing.T) {
	svc, _, _, txRepos, producer := newOrderServiceForTest()

	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	cartItems := []entity.CartItem{
		{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: 1},
	}
	product := &entity.Product{ID: productID, Price: 5, Stock: 1, IsActive: true}

	txRepos.CartItemRepo.On("ListByUser", ctx, userID).Return(cartItems, nil)
	txRepos.ProductRepo.On("GetActiveByID", ctx, productID).Return(product, nil)
	txRepos.ProductRepo.On("DecrementStockIfEnough", ctx, productID, 1).Return(true, nil)
	txRepos.OrderRepo.On("Create", ctx, mock.Anything).Return(nil)
	txRepos.OrderItemRepo.On("CreateBulk", ctx, mock.Anything).Return(nil)
	txRepos.CartItemRepo.On("DeleteByUser", ctx, userID).Return(nil)
	producer.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka error"))

	order, err := svc.Checkout(ctx, userID)

	assert.NoError(t, err)
	assert.NotNil(t, order)
}
