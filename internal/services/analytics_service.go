package services

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/redis"
)

const (
	DefaultTopItemsLimit = 5
	DefaultDashboardDays = 7
	defaultCacheTTL      = 10 * time.Minute
)

// AnalyticsService агрегирует продажи магазина и кеширует тяжёлые выборки.
type AnalyticsService struct {
	db              *database.DB
	redis           *redis.Client
	log             *logger.Logger
	cacheTTL        time.Duration
	defaultTopItems int
	dashboardDays   int
	defaultGroupBy  models.AnalyticsGroupBy
	now             func() time.Time
}

// NewAnalyticsService создает новый сервис аналитики.
func NewAnalyticsService(db *database.DB, redisClient *redis.Client, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsService {
	cacheTTL := defaultCacheTTL
	defaultTop := DefaultTopItemsLimit
	dashboardDays := DefaultDashboardDays
	groupBy := models.AnalyticsGroupNone

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if cfg.DefaultTopLimit > 0 {
			defaultTop = cfg.DefaultTopLimit
		}
		if cfg.DashboardDays > 0 {
			dashboardDays = cfg.DashboardDays
		}
		switch models.AnalyticsGroupBy(cfg.DefaultGroupBy) {
		case models.AnalyticsGroupDay, models.AnalyticsGroupWeek, models.AnalyticsGroupMonth, models.AnalyticsGroupNone:
			groupBy = models.AnalyticsGroupBy(cfg.DefaultGroupBy)
		}
	}

	return &AnalyticsService{
		db:              db,
		redis:           redisClient,
		log:             log,
		cacheTTL:        cacheTTL,
		defaultTopItems: defaultTop,
		dashboardDays:   dashboardDays,
		defaultGroupBy:  groupBy,
		now:             time.Now,
	}
}

// GetDashboard возвращает счётчики магазина и продажи по дням за последние N дней.
// Дни без заказов заполняются нулями.
func (s *AnalyticsService) GetDashboard(ctx context.Context) (*models.Dashboard, error) {
	end := s.now().UTC()
	start := startOfDayUTC(end).AddDate(0, 0, -(s.dashboardDays - 1))
	cacheKey := redis.GenerateKey(redis.KeyPrefixDashboard, fmt.Sprintf("%d:%s", s.dashboardDays, end.Format("2006-01-02")))

	var cached models.Dashboard
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	data, err := s.fetchAnalyticsData(ctx)
	if err != nil {
		return nil, err
	}

	daily, err := s.fetchDailySales(ctx, start, end)
	if err != nil {
		return nil, err
	}

	result := &models.Dashboard{
		AnalyticsData:  *data,
		DailySalesData: daily,
	}

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

// GetKPIs возвращает агрегированные KPI с опциональной группировкой и кешированием.
func (s *AnalyticsService) GetKPIs(ctx context.Context, filter *models.AnalyticsFilter) (*models.KPIMetrics, error) {
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey("kpi", filter)

	var cached models.KPIMetrics
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	summary, err := s.fetchKPISummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	periods, err := s.fetchKPIPeriods(ctx, filter)
	if err != nil {
		return nil, err
	}

	topProducts, err := s.fetchTopProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &models.KPIMetrics{
		From:         filter.From,
		To:           filter.To,
		Revenue:      summary.Revenue,
		OrdersCount:  summary.OrdersCount,
		AverageCheck: summary.AverageCheck,
		CouponOrders: summary.CouponOrders,
		TopProducts:  topProducts,
		Periods:      periods,
		GeneratedAt:  s.now(),
		GroupBy:      string(filter.GroupBy),
	}

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

// InvalidateCache удаляет все кешированные выборки аналитики.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.DeleteByPrefix(ctx, redis.KeyPrefixStats)
}

func (s *AnalyticsService) fetchAnalyticsData(ctx context.Context) (*models.AnalyticsData, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM users) AS users,
		       (SELECT COUNT(*) FROM products) AS products,
		       COUNT(o.id) AS total_sales,
		       COALESCE(SUM(o.total_amount), 0) AS total_revenue
		FROM orders o
	`

	data := &models.AnalyticsData{}
	if err := s.db.QueryRowContext(ctx, query).Scan(&data.Users, &data.Products, &data.TotalSales, &data.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to load analytics data: %w", err)
	}
	return data, nil
}

func (s *AnalyticsService) fetchDailySales(ctx context.Context, start, end time.Time) ([]models.DailySales, error) {
	query := `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day,
		       COUNT(*) AS sales,
		       COALESCE(SUM(total_amount), 0) AS revenue
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]models.DailySales)
	for rows.Next() {
		var (
			day  time.Time
			item models.DailySales
		)
		if err := rows.Scan(&day, &item.Sales, &item.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan daily sales: %w", err)
		}
		item.Date = day.Format("2006-01-02")
		byDate[item.Date] = item
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily sales: %w", err)
	}

	return fillDailySales(start, end, byDate), nil
}

func fillDailySales(start, end time.Time, byDate map[string]models.DailySales) []models.DailySales {
	result := []models.DailySales{}
	for day := startOfDayUTC(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		item, ok := byDate[date]
		if !ok {
			item = models.DailySales{Date: date}
		}
		result = append(result, item)
	}
	return result
}

type kpiSummary struct {
	Revenue      float64
	OrdersCount  int
	AverageCheck float64
	CouponOrders int
}

func (s *AnalyticsService) fetchKPISummary(ctx context.Context, filter *models.AnalyticsFilter) (*kpiSummary, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0) AS revenue,
		       COUNT(*) AS orders_count,
		       COALESCE(AVG(total_amount), 0) AS average_check,
		       COUNT(*) FILTER (WHERE coupon_code IS NOT NULL AND coupon_code <> '') AS coupon_orders
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
	`

	row := s.db.QueryRowContext(ctx, query, filter.From, filter.To)
	summary := &kpiSummary{}
	if err := row.Scan(&summary.Revenue, &summary.OrdersCount, &summary.AverageCheck, &summary.CouponOrders); err != nil {
		return nil, fmt.Errorf("failed to load KPI summary: %w", err)
	}

	return summary, nil
}

func (s *AnalyticsService) fetchKPIPeriods(ctx context.Context, filter *models.AnalyticsFilter) ([]models.KPIPeriod, error) {
	if filter.GroupBy == models.AnalyticsGroupNone || !filter.IncludePeriods {
		return nil, nil
	}

	periodExpr := "date_trunc('day', created_at)"
	switch filter.GroupBy {
	case models.AnalyticsGroupWeek:
		periodExpr = "date_trunc('week', created_at)"
	case models.AnalyticsGroupMonth:
		periodExpr = "date_trunc('month', created_at)"
	}

	query := fmt.Sprintf(`
		SELECT %[1]s AS period,
		       COALESCE(SUM(total_amount), 0) AS revenue,
		       COUNT(*) AS orders_count
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY period
		ORDER BY period ASC
	`, periodExpr)

	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load KPI periods: %w", err)
	}
	defer rows.Close()

	var result []models.KPIPeriod
	for rows.Next() {
		var (
			periodTime time.Time
			item       models.KPIPeriod
		)
		if err := rows.Scan(&periodTime, &item.Revenue, &item.OrdersCount); err != nil {
			return nil, fmt.Errorf("failed to scan KPI period: %w", err)
		}
		item.Period = formatPeriod(periodTime, filter.GroupBy)
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate KPI periods: %w", err)
	}

	return result, nil
}

func (s *AnalyticsService) fetchTopProducts(ctx context.Context, filter *models.AnalyticsFilter) ([]models.TopProduct, error) {
	query := `
		SELECT oi.product_id,
		       COALESCE(SUM(oi.quantity), 0) AS total_quantity,
		       COALESCE(SUM(oi.price * oi.quantity), 0) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at BETWEEN $1 AND $2
		GROUP BY oi.product_id
		ORDER BY total_quantity DESC, revenue DESC, oi.product_id ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To, filter.TopItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	defer rows.Close()

	var result []models.TopProduct
	for rows.Next() {
		var item models.TopProduct
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top products: %w", err)
	}

	return result, nil
}

func (s *AnalyticsService) buildCacheKey(kind string, filter *models.AnalyticsFilter) string {
	return redis.GenerateKey(redis.KeyPrefixStats, fmt.Sprintf(
		"%s:%s:%s:%s:%d:%t",
		kind,
		filter.From.Format("2006-01-02"),
		filter.To.Format("2006-01-02"),
		filter.GroupBy,
		filter.TopItemsLimit,
		filter.IncludePeriods,
	))
}

func (s *AnalyticsService) normalizeFilter(filter *models.AnalyticsFilter) *models.AnalyticsFilter {
	if filter.TopItemsLimit <= 0 {
		filter.TopItemsLimit = s.defaultTopItems
	}
	if filter.GroupBy == "" {
		filter.GroupBy = s.defaultGroupBy
	}
	filter.IncludePeriods = filter.GroupBy != models.AnalyticsGroupNone
	return filter
}

func (s *AnalyticsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}

	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *AnalyticsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache analytics result")
	}
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatPeriod(period time.Time, groupBy models.AnalyticsGroupBy) string {
	switch groupBy {
	case models.AnalyticsGroupWeek:
		return period.Format("2006-01-02") // начало недели
	case models.AnalyticsGroupMonth:
		return period.Format("2006-01")
	default:
		return period.Format("2006-01-02")
	}
}
