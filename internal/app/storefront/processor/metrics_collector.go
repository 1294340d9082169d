package processor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"storefront/internal/app/storefront/entity"
	"storefront/internal/app/storefront/repository"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const serviceName = "storefront"

// MetricsCollector периодически обновляет gauge-метрики:
// количества заказов по статусам и состояние пула соединений БД.
// Состояния заказов не меняет
type MetricsCollector struct {
	cron      *cron.Cron
	orderRepo repository.OrderRepository
	db        *gorm.DB
}

// NewMetricsCollector создает новый коллектор метрик
func NewMetricsCollector(orderRepo repository.OrderRepository, db *gorm.DB) *MetricsCollector {
	return &MetricsCollector{
		cron:      cron.New(),
		orderRepo: orderRepo,
		db:        db,
	}
}

// Start запускает периодический сбор по cron-расписанию
func (c *MetricsCollector) Start(ctx context.Context, schedule string) error {
	_, err := c.cron.AddFunc(schedule, func() {
		c.collect(ctx)
	})
	if err != nil {
		return err
	}

	c.cron.Start()
	logger.Info().Str("schedule", schedule).Msg("Metrics collector started")

	// Первый сбор сразу, не дожидаясь расписания
	c.collect(ctx)

	return nil
}

// Stop останавливает коллектор, дожидаясь завершения текущего сбора
func (c *MetricsCollector) Stop() {
	<-c.cron.Stop().Done()
	logger.Info().Msg("Metrics collector stopped")
}

func (c *MetricsCollector) collect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	counts, err := c.orderRepo.CountByStatus(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to collect order counts")
	} else {
		for _, status := range []entity.OrderStatus{
			entity.OrderStatusPending,
			entity.OrderStatusPaid,
			entity.OrderStatusCancelled,
		} {
			metrics.OrdersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
		}
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		logger.Error().Err(err).Msg("failed to get database handle")
		return
	}
	stats := sqlDB.Stats()
	metrics.DbConnectionsOpen.WithLabelValues(serviceName, "in_use").Set(float64(stats.InUse))
	metrics.DbConnectionsOpen.WithLabelValues(serviceName, "idle").Set(float64(stats.Idle))
}
