package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"
)

const defaultTopLimitFallback = 5

// AnalyticsHandler обрабатывает эндпоинты аналитики.
type AnalyticsHandler struct {
	service AnalyticsProvider
	log     *logger.Logger
	cfg     *config.AnalyticsConfig
	now     func() time.Time
}

// NewAnalyticsHandler создает новый обработчик аналитики.
func NewAnalyticsHandler(service AnalyticsProvider, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetDashboard возвращает общие счётчики и продажи по дням.
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), analyticsTimeout(h.cfg))
	defer cancel()

	dashboard, err := h.service.GetDashboard(ctx)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load analytics")
		return
	}

	writeJSONResponse(w, http.StatusOK, dashboard)
}

// GetKPIs возвращает KPI с возможностью экспорта в CSV.
func (h *AnalyticsHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	filter, format, err := parseAnalyticsFilter(r, h.cfg, h.now())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyticsTimeout(h.cfg))
	defer cancel()

	metrics, err := h.service.GetKPIs(ctx, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load analytics")
		return
	}

	if format == "csv" {
		if err := writeKPICSV(w, metrics); err != nil {
			h.log.WithError(err).Warn("Failed to stream KPI CSV")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, metrics)
}

func parseAnalyticsFilter(r *http.Request, cfg *config.AnalyticsConfig, now time.Time) (*models.AnalyticsFilter, string, error) {
	query := r.URL.Query()

	maxRangeDays := 365
	if cfg != nil && cfg.MaxRangeDays > 0 {
		maxRangeDays = cfg.MaxRangeDays
	}

	to := endOfDay(now)
	if toParam := query.Get("to"); toParam != "" {
		parsed, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return nil, "", fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}

	from := startOfDay(to.AddDate(0, 0, -maxRangeDays+1))
	if fromParam := query.Get("from"); fromParam != "" {
		parsed, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return nil, "", fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = startOfDay(parsed)
	}

	if from.After(to) {
		return nil, "", fmt.Errorf("'from' date must be before 'to' date")
	}
	if from.Before(startOfDay(to.AddDate(0, 0, -maxRangeDays+1))) {
		return nil, "", fmt.Errorf("date range too wide, max %d days", maxRangeDays)
	}

	groupBy := models.AnalyticsGroupNone
	if cfg != nil {
		if parsed, ok := parseGroupBy(cfg.DefaultGroupBy); ok {
			groupBy = parsed
		}
	}
	if raw := query.Get("group_by"); raw != "" {
		parsed, ok := parseGroupBy(raw)
		if !ok {
			return nil, "", fmt.Errorf("group_by must be one of: day, week, month, none")
		}
		groupBy = parsed
	}

	topDefault := defaultTopLimitFallback
	if cfg != nil && cfg.DefaultTopLimit > 0 {
		topDefault = cfg.DefaultTopLimit
	}

	format := strings.ToLower(query.Get("format"))
	if format != "" && format != "json" && format != "csv" {
		return nil, "", fmt.Errorf("format must be json or csv")
	}

	return &models.AnalyticsFilter{
		From:          from,
		To:            to,
		GroupBy:       groupBy,
		TopItemsLimit: parseIntWithDefault(query.Get("top_limit"), topDefault),
	}, format, nil
}

func parseGroupBy(raw string) (models.AnalyticsGroupBy, bool) {
	switch groupBy := models.AnalyticsGroupBy(strings.ToLower(raw)); groupBy {
	case models.AnalyticsGroupDay, models.AnalyticsGroupWeek, models.AnalyticsGroupMonth, models.AnalyticsGroupNone:
		return groupBy, true
	}
	return "", false
}

func writeKPICSV(w http.ResponseWriter, metrics *models.KPIMetrics) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=kpi.csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"section", "period", "revenue", "orders_count", "average_check", "coupon_orders"})
	rangeLabel := fmt.Sprintf("%s..%s", metrics.From.Format("2006-01-02"), metrics.To.Format("2006-01-02"))
	_ = writer.Write([]string{
		"summary",
		rangeLabel,
		fmt.Sprintf("%.2f", metrics.Revenue),
		strconv.Itoa(metrics.OrdersCount),
		fmt.Sprintf("%.2f", metrics.AverageCheck),
		strconv.Itoa(metrics.CouponOrders),
	})

	for _, period := range metrics.Periods {
		_ = writer.Write([]string{"period", period.Period, fmt.Sprintf("%.2f", period.Revenue), strconv.Itoa(period.OrdersCount), "", ""})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"section", "product_id", "quantity", "revenue"})
	for _, product := range metrics.TopProducts {
		_ = writer.Write([]string{"top_product", product.ProductID, strconv.Itoa(product.Quantity), fmt.Sprintf("%.2f", product.Revenue)})
	}

	writer.Flush()
	return writer.Error()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}

func analyticsTimeout(cfg *config.AnalyticsConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
