package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway создает и читает hosted checkout-сессии Stripe
type StripeGateway struct {
	api      *client.API
	currency string
	retries  int
	backoff  time.Duration
	log      *logger.Logger
}

// NewStripeGateway создает клиента Stripe по конфигурации
func NewStripeGateway(cfg *config.StripeConfig, log *logger.Logger) *StripeGateway {
	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     log,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	retries := cfg.StatusRetries
	if retries < 0 {
		retries = 0
	}

	return &StripeGateway{
		api:      api,
		currency: cfg.Currency,
		retries:  retries,
		backoff:  time.Duration(cfg.RetryBackoffMillis) * time.Millisecond,
		log:      log,
	}
}

// CreateSession создает checkout-сессию. Запрос не повторяется.
func (g *StripeGateway) CreateSession(ctx context.Context, req models.GatewaySessionRequest) (*models.GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	if req.DiscountPercent > 0 {
		couponID, err := g.createCoupon(ctx, req.DiscountPercent)
		if err != nil {
			return nil, err
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(couponID)},
		}
	}

	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.log.WithError(err).Error("Failed to create Stripe checkout session")
		return nil, apperror.Upstream("failed to create checkout session", err)
	}

	g.log.WithFields(map[string]interface{}{
		"session_id":   session.ID,
		"amount_total": session.AmountTotal,
	}).Info("Stripe checkout session created")

	return toGatewaySession(session), nil
}

func (g *StripeGateway) createCoupon(ctx context.Context, percent int) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(float64(percent)),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx

	coupon, err := g.api.Coupons.New(params)
	if err != nil {
		g.log.WithError(err).Error("Failed to create Stripe coupon")
		return "", apperror.Upstream("failed to create gateway coupon", err)
	}
	return coupon.ID, nil
}

// GetSession читает checkout-сессию с ограниченным числом повторов.
// Ошибки клиента (4xx, кроме 429) не повторяются.
func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*models.GatewaySession, error) {
	r := retrier.New(retrier.ExponentialBackoff(g.retries, g.backoff), statusClassifier{})

	var session *stripe.CheckoutSession
	attempt := 0
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		params := &stripe.CheckoutSessionParams{}
		params.Context = ctx

		s, err := g.api.CheckoutSessions.Get(sessionID, params)
		if err != nil {
			g.log.WithError(err).WithFields(map[string]interface{}{
				"session_id": sessionID,
				"attempt":    attempt,
			}).Warn("Failed to read Stripe checkout session")
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, apperror.Upstream("failed to read checkout session", err)
	}

	return toGatewaySession(session), nil
}

type statusClassifier struct{}

func (statusClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retrier.Fail
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return retrier.Fail
		}
	}
	return retrier.Retry
}

func toGatewaySession(s *stripe.CheckoutSession) *models.GatewaySession {
	gs := &models.GatewaySession{
		ID:            s.ID,
		Status:        models.SessionStatus(s.Status),
		PaymentStatus: models.PaymentStatus(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		gs.PaymentIntent = s.PaymentIntent.ID
	}
	if gs.Metadata == nil {
		gs.Metadata = map[string]string{}
	}
	return gs
}

