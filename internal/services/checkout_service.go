package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/money"

	"github.com/google/uuid"
)

// CouponValidator проверяет купон пользователя
type CouponValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, code string) (*models.CouponValidation, error)
}

// PaymentGateway создает и читает checkout-сессии платёжного шлюза
type PaymentGateway interface {
	CreateSession(ctx context.Context, req models.GatewaySessionRequest) (*models.GatewaySession, error)
	GetSession(ctx context.Context, sessionID string) (*models.GatewaySession, error)
}

// EventPublisher публикует доменные события. Может быть nil.
type EventPublisher interface {
	PublishCheckoutSessionCreated(data models.CheckoutSessionCreatedData) error
	PublishOrderCreated(order *models.Order) error
	PublishCouponIssued(coupon *models.Coupon) error
	PublishCouponRedeemed(userID uuid.UUID, code string, orderID uuid.UUID) error
}

// CheckoutService собирает checkout-сессию из корзины
type CheckoutService struct {
	coupons   CouponValidator
	gateway   PaymentGateway
	events    EventPublisher
	log       *logger.Logger
	clientURL string
}

// NewCheckoutService создает сервис оформления заказа
func NewCheckoutService(coupons CouponValidator, gateway PaymentGateway, events EventPublisher, log *logger.Logger, clientURL string) *CheckoutService {
	return &CheckoutService{
		coupons:   coupons,
		gateway:   gateway,
		events:    events,
		log:       log,
		clientURL: strings.TrimRight(clientURL, "/"),
	}
}

// CreateSession проверяет корзину, применяет купон и создает сессию оплаты
func (s *CheckoutService) CreateSession(ctx context.Context, userID uuid.UUID, req *models.CreateCheckoutSessionRequest) (*models.CheckoutSessionResponse, error) {
	if err := validateCart(req.Products); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	lineItems, total := buildLineItems(req.Products)

	couponCode := strings.TrimSpace(req.CouponCode)
	discountPercent := 0
	if couponCode != "" {
		validation, err := s.coupons.Validate(ctx, userID, couponCode)
		if err != nil {
			// Невалидный купон не блокирует оплату
			s.log.WithError(err).WithFields(map[string]interface{}{
				"user_id": userID,
				"code":    couponCode,
			}).Warn("Coupon rejected at checkout, continuing without discount")
			couponCode = ""
		} else {
			discountPercent = validation.DiscountPercentage
			total, _ = money.ApplyDiscount(total, discountPercent)
		}
	}

	metadata, err := buildSessionMetadata(userID, couponCode, req.Products)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, models.GatewaySessionRequest{
		LineItems:       lineItems,
		DiscountPercent: discountPercent,
		SuccessURL:      s.clientURL + "/purchase-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       s.clientURL + "/purchase-cancel",
		Metadata:        metadata,
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		data := models.CheckoutSessionCreatedData{
			SessionID:        session.ID,
			UserID:           userID,
			TotalAmountMinor: total,
			CouponApplied:    couponCode != "",
		}
		if err := s.events.PublishCheckoutSessionCreated(data); err != nil {
			s.log.WithError(err).WithField("session_id", session.ID).Warn("Failed to publish checkout session event")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":     userID,
		"session_id":  session.ID,
		"total_minor": total,
		"coupon_code": couponCode,
		"items_count": len(lineItems),
	}).Info("Checkout session created")

	return &models.CheckoutSessionResponse{
		ID:          session.ID,
		TotalAmount: money.ToMajor(total),
	}, nil
}

func validateCart(items []models.CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("products must not be empty")
	}
	var total int64
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("product %d: id is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("product %s: quantity must be at least 1", item.ID)
		}
		if !money.Valid(item.Price) {
			return fmt.Errorf("product %s: price must be a non-negative number", item.ID)
		}
		unit, ok := money.UnitMinor(item.Price)
		if !ok {
			return fmt.Errorf("product %s: price exceeds the maximum of %.2f", item.ID, money.ToMajor(money.MaxUnitMinor))
		}
		if total, ok = money.AddLine(total, unit, int64(item.Quantity)); !ok {
			return fmt.Errorf("product %s: cart total is too large", item.ID)
		}
	}
	return nil
}

// buildLineItems переводит цены в минимальные единицы и считает сумму.
// Корзина должна пройти validateCart.
func buildLineItems(items []models.CartItem) ([]models.GatewayLineItem, int64) {
	lineItems := make([]models.GatewayLineItem, 0, len(items))
	var total int64
	for _, item := range items {
		unit := money.ToMinor(item.Price)
		total += unit * int64(item.Quantity)
		lineItems = append(lineItems, models.GatewayLineItem{
			Name:       item.Name,
			Image:      item.Image,
			UnitAmount: unit,
			Quantity:   int64(item.Quantity),
		})
	}
	return lineItems, total
}

func buildSessionMetadata(userID uuid.UUID, couponCode string, items []models.CartItem) (map[string]string, error) {
	snapshots := make([]models.ProductSnapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, models.ProductSnapshot{
			ID:       item.ID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	products, err := json.Marshal(snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal products metadata: %w", err)
	}

	return map[string]string{
		models.MetadataUserID:     userID.String(),
		models.MetadataCouponCode: couponCode,
		models.MetadataProducts:   string(products),
	}, nil
}

func parseSnapshots(raw string) ([]models.ProductSnapshot, error) {
	if raw == "" {
		return nil, nil
	}
	var snapshots []models.ProductSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products metadata: %w", err)
	}
	for _, snap := range snapshots {
		if snap.Quantity < 1 || !money.Valid(snap.Price) {
			return nil, fmt.Errorf("invalid product snapshot %q", snap.ID)
		}
	}
	return snapshots, nil
}
