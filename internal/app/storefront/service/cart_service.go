package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/repository"
)

// CartService обрабатывает бизнес-логику корзины.
// Корзина хранит только ссылки на товары и количество:
// цены фиксируются позже, при оформлении заказа
type CartService struct {
	cartRepo    repository.CartItemRepository
	productRepo repository.ProductRepository
}

// NewCartService создает новый сервис корзины с внедрением зависимостей
func NewCartService(cartRepo repository.CartItemRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItem добавляет товар в корзину.
// Повторное добавление того же товара увеличивает количество.
// Суммарное количество в строке не может превышать текущий остаток
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *entity.AddCartItemRequest) (*entity.CartItem, error) {
	product, err := s.productRepo.GetActiveByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	existing, err := s.cartRepo.GetByUserAndProduct(ctx, userID, req.ProductID)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	if existing != nil {
		newQuantity := existing.Quantity + req.Quantity
		if newQuantity > product.Stock {
			return nil, ErrInsufficientStock
		}
		if err := s.cartRepo.UpdateQuantity(ctx, existing.ID, newQuantity); err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
		existing.Quantity = newQuantity
		return existing, nil
	}

	if req.Quantity > product.Stock {
		return nil, ErrInsufficientStock
	}

	item := &entity.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		CreatedAt: time.Now(),
	}
	if err := s.cartRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create cart item: %w", err)
	}

	return item, nil
}

// UpdateItemQuantity выставляет количество в строке корзины.
// Нулевое количество удаляет строку
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	product, err := s.productRepo.GetActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("failed to get product: %w", err)
	}
	if quantity > product.Stock {
		return ErrInsufficientStock
	}

	item, err := s.cartRepo.GetByUserAndProduct(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("failed to get cart item: %w", err)
	}

	if err := s.cartRepo.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

// RemoveItem убирает товар из корзины
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.cartRepo.DeleteByUserAndProduct(ctx, userID, productID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// ClearCart удаляет все строки корзины пользователя
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// GetCart возвращает содержимое корзины по текущим ценам каталога.
// Товары, ставшие неактивными после добавления, в выдачу не попадают
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*entity.CartView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	view := &entity.CartView{Items: make([]entity.CartLineView, 0, len(items))}

	for _, item := range items {
		product, err := s.productRepo.GetActiveByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get product: %w", err)
		}

		subtotal := product.Price * float64(item.Quantity)
		view.Items = append(view.Items, entity.CartLineView{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Stock:     product.Stock,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
		view.Total += subtotal
	}

	return view, nil
}
