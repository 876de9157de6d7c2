package models

import "time"

// AnalyticsGroupBy описывает доступные варианты группировки периодов.
type AnalyticsGroupBy string

const (
	AnalyticsGroupNone  AnalyticsGroupBy = "none"
	AnalyticsGroupDay   AnalyticsGroupBy = "day"
	AnalyticsGroupWeek  AnalyticsGroupBy = "week"
	AnalyticsGroupMonth AnalyticsGroupBy = "month"
)

// AnalyticsFilter задает временной интервал и параметры агрегации.
type AnalyticsFilter struct {
	From           time.Time
	To             time.Time
	GroupBy        AnalyticsGroupBy
	TopItemsLimit  int
	IncludePeriods bool
}

// KPIMetrics описывает показатели продаж за период.
type KPIMetrics struct {
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	Revenue      float64      `json:"revenue"`
	OrdersCount  int          `json:"orders_count"`
	AverageCheck float64      `json:"average_check"`
	CouponOrders int          `json:"coupon_orders"`
	TopProducts  []TopProduct `json:"top_products"`
	Periods      []KPIPeriod  `json:"periods,omitempty"`
	GeneratedAt  time.Time    `json:"generated_at"`
	GroupBy      string       `json:"group_by,omitempty"`
}

// KPIPeriod хранит агрегированные метрики по периоду.
type KPIPeriod struct {
	Period      string  `json:"period"`
	Revenue     float64 `json:"revenue"`
	OrdersCount int     `json:"orders_count"`
}

// TopProduct описывает самый продаваемый товар.
type TopProduct struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// AnalyticsData содержит общие счётчики магазина.
type AnalyticsData struct {
	Users        int     `json:"users"`
	Products     int     `json:"products"`
	TotalSales   int     `json:"totalSales"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// DailySales описывает продажи за один день.
type DailySales struct {
	Date    string  `json:"date"`
	Sales   int     `json:"sales"`
	Revenue float64 `json:"revenue"`
}

// Dashboard объединяет данные для админской панели.
type Dashboard struct {
	AnalyticsData  AnalyticsData `json:"analyticsData"`
	DailySalesData []DailySales  `json:"dailySalesData"`
}
