package repository

import (
	"context"

	"gorm.io/gorm"
)

type txRepos struct {
	categories CategoryRepository
	products   ProductRepository
	reviews    ReviewRepository
	cartItems  CartItemRepository
	orders     OrderRepository
	orderItems OrderItemRepository
}

func (r *txRepos) Categories() CategoryRepository { return r.categories }
func (r *txRepos) Products() ProductRepository    { return r.products }
func (r *txRepos) Reviews() ReviewRepository      { return r.reviews }
func (r *txRepos) CartItems() CartItemRepository  { return r.cartItems }
func (r *txRepos) Orders() OrderRepository        { return r.orders }
func (r *txRepos) OrderItems() OrderItemRepository { return r.orderItems }

type txManager struct {
	db *gorm.DB
}

// NewTransactionManager создает менеджер транзакций поверх gorm
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// WithinTx выполняет fn в одной транзакции PostgreSQL.
// Репозитории пересоздаются поверх транзакционного *gorm.DB,
// ошибка из fn откатывает все изменения.
func (tm *txManager) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := &txRepos{
			categories: NewCategoryRepository(tx),
			products:   NewProductRepository(tx),
			reviews:    NewReviewRepository(tx),
			cartItems:  NewCartItemRepository(tx),
			orders:     NewOrderRepository(tx),
			orderItems: NewOrderItemRepository(tx),
		}
		return fn(r)
	})
}
