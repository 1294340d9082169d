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
)

const categoriesCacheTTL = 5 * time.Minute

// CatalogService обрабатывает бизнес-логику категорий и товаров.
// Справочник активных категорий кэшируется в Redis,
// изменение цены товара порождает событие PRODUCT_UPDATED в Kafka.
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        *util.RedisClient
	producer     util.MessagePublisher
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cache *util.RedisClient,
	producer util.MessagePublisher,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		producer:     producer,
	}
}

// CreateCategory создает новую категорию и сбрасывает кэш справочника
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	category := &entity.Category{
		ID:        uuid.New(),
		Name:      req.Name,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	return category, nil
}

// UpdateCategory переименовывает активную категорию
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !category.IsActive {
		return nil, ErrCategoryNotFound
	}

	category.Name = req.Name
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	return category, nil
}

// GetActiveCategories возвращает активные категории, сначала пробуя кэш
func (s *CatalogService) GetActiveCategories(ctx context.Context) ([]entity.Category, error) {
	if cached, err := s.cache.GetCategories(ctx); err == nil && cached != nil {
		return cached, nil
	}

	categories, err := s.categoryRepo.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.cache.SetCategories(ctx, categories, categoriesCacheTTL); err != nil {
		// Кэш не критичен, справочник уже получен из БД
		logger.Warn().Err(err).Msg("failed to cache categories")
	}

	return categories, nil
}

// DeactivateCategory логически удаляет категорию.
// Существующие товары категории остаются активными
func (s *CatalogService) DeactivateCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to deactivate category: %w", err)
	}

	s.invalidateCategoriesCache(ctx)

	return nil
}

// CreateProduct создает товар от имени продавца.
// Категория должна существовать и быть активной
func (s *CatalogService) CreateProduct(ctx context.Context, sellerID uuid.UUID, req *entity.CreateProductRequest) (*entity.Product, error) {
	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !category.IsActive {
		return nil, ErrCategoryNotFound
	}

	product := &entity.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		SellerID:    sellerID,
		Rating:      0,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct обновляет товар.
// Доступно владеющему продавцу и администратору.
// При изменении цены публикуется событие PRODUCT_UPDATED
func (s *CatalogService) UpdateProduct(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, id uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if actorRole != entity.RoleAdmin && product.SellerID != actorID {
		return nil, ErrForbidden
	}

	priceChanged := false

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil && *req.Price != product.Price {
		product.Price = *req.Price
		priceChanged = true
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != uuid.Nil && req.CategoryID != product.CategoryID {
		category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		if !category.IsActive {
			return nil, ErrCategoryNotFound
		}
		product.CategoryID = req.CategoryID
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if priceChanged {
		event := entity.ProductEvent{
			EventType: "PRODUCT_UPDATED",
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Timestamp: time.Now(),
		}
		if err := s.publishProductEvent(ctx, event); err != nil {
			// Логируем ошибку, но не прерываем выполнение: товар уже обновлен
			logger.Error().Err(err).
				Str("product_id", product.ID.String()).
				Msg("failed to publish product updated event")
		}
	}

	return product, nil
}

// GetProduct возвращает активный товар по ID
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// GetActiveProducts возвращает все активные товары каталога
func (s *CatalogService) GetActiveProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := s.productRepo.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// GetProductsByCategory возвращает активные товары категории
func (s *CatalogService) GetProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]entity.Product, error) {
	products, err := s.productRepo.GetActiveByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// DeactivateProduct логически удаляет товар.
// Доступно владеющему продавцу и администратору
func (s *CatalogService) DeactivateProduct(ctx context.Context, actorID uuid.UUID, actorRole entity.Role, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to get product: %w", err)
	}

	if actorRole != entity.RoleAdmin && product.SellerID != actorID {
		return ErrForbidden
	}

	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}

	return nil
}

func (s *CatalogService) invalidateCategoriesCache(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate categories cache")
	}
}

// publishProductEvent отправляет событие о товаре в Kafka
func (s *CatalogService) publishProductEvent(ctx context.Context, event entity.ProductEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal product event: %w", err)
	}

	// Ключ = ProductID для партиционирования
	if err := s.producer.PublishMessage(ctx, event.ProductID.String(), eventData); err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}

	return nil
}
