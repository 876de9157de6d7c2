package handlers

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// ----- Payments -----

type CheckoutCreator interface {
	CreateSession(ctx context.Context, userID uuid.UUID, req *models.CreateCheckoutSessionRequest) (*models.CheckoutSessionResponse, error)
}

type CheckoutConfirmer interface {
	ConfirmCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*models.ConfirmationResult, error)
}

// ----- Coupons -----

type CouponReader interface {
	GetActiveCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
	Validate(ctx context.Context, userID uuid.UUID, code string) (*models.CouponValidation, error)
}

// ----- Orders -----

type OrderReader interface {
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, error)
}

// ----- Catalog -----

type CatalogProvider interface {
	GetFeaturedProducts(ctx context.Context) ([]models.Product, error)
	ToggleFeatured(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// ----- Analytics -----

type AnalyticsProvider interface {
	GetDashboard(ctx context.Context) (*models.Dashboard, error)
	GetKPIs(ctx context.Context, filter *models.AnalyticsFilter) (*models.KPIMetrics, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
