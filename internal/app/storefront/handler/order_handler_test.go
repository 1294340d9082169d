package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/service"
)

// MockOrderService мок для OrderService в тестах handler
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*entity.OrderWithItems, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OrderWithItems), args.Error(1)
}

func (m *MockOrderService) InitiatePayment(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, orderID)
	return args.String(0), args.Error(1)
}

func (m *MockOrderService) ConfirmPayment(ctx context.Context, req *entity.PaymentWebhookRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) error {
	args := m.Called(ctx, userID, role, orderID)
	return args.Error(0)
}

func (m *MockOrderService) GetOrder(ctx context.Context, userID uuid.UUID, role entity.Role, orderID uuid.UUID) (*entity.OrderWithItems, error) {
	args := m.Called(ctx, userID, role, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OrderWithItems), args.Error(1)
}

func (m *MockOrderService) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]entity.OrderWithItems, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.OrderWithItems), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// identityStub подставляет пользователя в контекст вместо JWT middleware
func identityStub(userID uuid.UUID, role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func TestCheckoutHandler_Success(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	orderID := uuid.New()
	order := &entity.OrderWithItems{
		Order: entity.Order{
			ID:          orderID,
			UserID:      userID,
			Status:      entity.OrderStatusPending,
			TotalAmount: 99.80,
			CreatedAt:   time.Now(),
		},
		Items: []entity.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), Quantity: 2, UnitPrice: 49.90},
		},
	}

	mockService := new(MockOrderService)
	mockService.On("Checkout", mock.Anything, userID).Return(order, nil)

	h := NewOrderHandler(mockService)
	router.POST("/orders", identityStub(userID, entity.RoleBuyer), h.Checkout)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var got entity.OrderWithItems
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, orderID, got.ID)
	assert.Len(t, got.Items, 1)
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	mockService := new(MockOrderService)
	mockService.On("Checkout", mock.Anything, userID).Return(nil, service.ErrEmptyCart)

	h := NewOrderHandler(mockService)
	router.POST("/orders", identityStub(userID, entity.RoleBuyer), h.Checkout)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_InsufficientStock(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	mockService := new(MockOrderService)
	mockService.On("Checkout", mock.Anything, userID).Return(nil, service.ErrInsufficientStock)

	h := NewOrderHandler(mockService)
	router.POST("/orders", identityStub(userID, entity.RoleBuyer), h.Checkout)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentWebhookHandler_Success(t *testing.T) {
	router := setupTestRouter()

	mockService := new(MockOrderService)
	mockService.On("ConfirmPayment", mock.Anything, mock.AnythingOfType("*entity.PaymentWebhookRequest")).Return(nil)

	h := NewOrderHandler(mockService)
	router.POST("/payments/webhook", h.PaymentWebhook)

	body, _ := json.Marshal(entity.PaymentWebhookRequest{PaymentID: "pay_abc", Status: entity.PaymentStatusSucceeded})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentWebhookHandler_UnknownPayment(t *testing.T) {
	router := setupTestRouter()

	mockService := new(MockOrderService)
	mockService.On("ConfirmPayment", mock.Anything, mock.Anything).Return(service.ErrUnknownPayment)

	h := NewOrderHandler(mockService)
	router.POST("/payments/webhook", h.PaymentWebhook)

	body, _ := json.Marshal(entity.PaymentWebhookRequest{PaymentID: "pay_missing", Status: entity.PaymentStatusSucceeded})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhookHandler_InvalidStatus(t *testing.T) {
	router := setupTestRouter()

	mockService := new(MockOrderService)

	h := NewOrderHandler(mockService)
	router.POST("/payments/webhook", h.PaymentWebhook)

	body := []byte(`{"payment_id": "pay_abc", "status": "refunded"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	orderID := uuid.New()

	mockService := new(MockOrderService)
	mockService.On("GetOrder", mock.Anything, userID, entity.RoleBuyer, orderID).Return(nil, service.ErrOrderNotFound)

	h := NewOrderHandler(mockService)
	router.GET("/orders/:id", identityStub(userID, entity.RoleBuyer), h.GetOrder)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrderHandler_InvalidTransition(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	orderID := uuid.New()

	mockService := new(MockOrderService)
	mockService.On("CancelOrder", mock.Anything, userID, entity.RoleBuyer, orderID).Return(service.ErrInvalidTransition)

	h := NewOrderHandler(mockService)
	router.POST("/orders/:id/cancel", identityStub(userID, entity.RoleBuyer), h.CancelOrder)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiatePaymentHandler_Success(t *testing.T) {
	router := setupTestRouter()

	userID := uuid.New()
	orderID := uuid.New()

	mockService := new(MockOrderService)
	mockService.On("InitiatePayment", mock.Anything, userID, orderID).Return("pay_abc", nil)

	h := NewOrderHandler(mockService)
	router.POST("/orders/:id/payment", identityStub(userID, entity.RoleBuyer), h.InitiatePayment)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/payment", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pay_abc")
}
