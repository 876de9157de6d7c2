package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/money"

	"github.com/google/uuid"
)

// CouponConsumer гасит купон внутри транзакции заказа
type CouponConsumer interface {
	ConsumeWithTx(ctx context.Context, tx *sql.Tx, code string, userID uuid.UUID) (bool, error)
}

// RewardIssuer выдает купон за покупку
type RewardIssuer interface {
	IssueForPurchase(ctx context.Context, userID uuid.UUID, amountMinor int64) (*models.Coupon, error)
}

// PaymentService подтверждает оплату и записывает заказ
type PaymentService struct {
	db      *database.DB
	log     *logger.Logger
	gateway PaymentGateway
	coupons CouponConsumer
	rewards RewardIssuer
	events  EventPublisher
}

// NewPaymentService создает сервис подтверждения оплаты
func NewPaymentService(db *database.DB, log *logger.Logger, gateway PaymentGateway, coupons CouponConsumer, rewards RewardIssuer, events EventPublisher) *PaymentService {
	return &PaymentService{
		db:      db,
		log:     log,
		gateway: gateway,
		coupons: coupons,
		rewards: rewards,
		events:  events,
	}
}

// ConfirmCheckout проверяет оплату сессии и один раз записывает заказ.
// Повторный вызов для той же сессии возвращает уже записанный заказ.
func (s *PaymentService) ConfirmCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*models.ConfirmationResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.Validation("sessionId is required", nil)
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Metadata[models.MetadataUserID] != userID.String() {
		s.log.WithFields(map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		}).Warn("Checkout session belongs to another user")
		return nil, apperror.NotFound("checkout session not found", nil)
	}

	if session.PaymentStatus != models.PaymentStatusPaid {
		return unpaidResult(session), nil
	}

	snapshots, err := parseSnapshots(session.Metadata[models.MetadataProducts])
	if err != nil {
		return nil, apperror.Upstream("invalid checkout session metadata", err)
	}

	couponCode := session.Metadata[models.MetadataCouponCode]
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		TotalAmount:     money.ToMajor(session.AmountTotal),
		PaymentIntent:   session.PaymentIntent,
		StripeSessionID: session.ID,
		CreatedAt:       time.Now(),
	}
	if couponCode != "" {
		order.CouponCode = &couponCode
	}

	recorded, redeemed, err := s.recordOrder(ctx, order, snapshots)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("Failed to record order")
		return nil, apperror.Persistence("failed to record order", err)
	}

	if !recorded {
		s.log.WithFields(map[string]interface{}{
			"session_id": sessionID,
			"order_id":   order.ID,
		}).Info("Checkout session already recorded")
		return &models.ConfirmationResult{
			Success:   true,
			Status:    models.ConfirmationPaid,
			Message:   "Order already recorded for this session.",
			OrderID:   order.ID.String(),
			Duplicate: true,
		}, nil
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      userID,
		"session_id":   sessionID,
		"total_amount": order.TotalAmount,
	}).Info("Order recorded")

	if _, err := s.rewards.IssueForPurchase(ctx, userID, session.AmountTotal); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to issue reward coupon")
	}

	s.publishOrderEvents(order, redeemed)

	return &models.ConfirmationResult{
		Success: true,
		Status:  models.ConfirmationPaid,
		Message: "Payment successful, order created, and coupon deactivated if used.",
		OrderID: order.ID.String(),
	}, nil
}

// recordOrder записывает заказ в одной транзакции.
// Если сессия уже записана, order.ID заменяется существующим и recorded = false.
func (s *PaymentService) recordOrder(ctx context.Context, order *models.Order, snapshots []models.ProductSnapshot) (recorded bool, redeemed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insertOrder := `
		INSERT INTO orders (id, user_id, total_amount, coupon_code, payment_intent, stripe_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_session_id) DO NOTHING
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, insertOrder,
		order.ID, order.UserID, order.TotalAmount, order.CouponCode,
		order.PaymentIntent, order.StripeSessionID, order.CreatedAt,
	).Scan(&order.ID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE stripe_session_id = $1`, order.StripeSessionID).Scan(&order.ID); err != nil {
			return false, false, fmt.Errorf("failed to load recorded order: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to insert order: %w", err)
	}

	if order.CouponCode != nil {
		redeemed, err = s.coupons.ConsumeWithTx(ctx, tx, *order.CouponCode, order.UserID)
		if err != nil {
			return false, false, err
		}
	}

	insertItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, snap := range snapshots {
		item := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: snap.ID,
			Quantity:  snap.Quantity,
			Price:     snap.Price,
		}
		if _, err := tx.ExecContext(ctx, insertItem, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price); err != nil {
			return false, false, fmt.Errorf("failed to insert order item: %w", err)
		}
		order.Products = append(order.Products, item)
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, redeemed, nil
}

func (s *PaymentService) publishOrderEvents(order *models.Order, redeemed bool) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCreated(order); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order created event")
	}
	if redeemed && order.CouponCode != nil {
		if err := s.events.PublishCouponRedeemed(order.UserID, *order.CouponCode, order.ID); err != nil {
			s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish coupon redeemed event")
		}
	}
}

// unpaidResult возвращает pending для открытой сессии и для асинхронной оплаты, которая ещё проводится
func unpaidResult(session *models.GatewaySession) *models.ConfirmationResult {
	processing := session.Status == models.SessionStatusComplete && session.PaymentStatus == models.PaymentStatusUnpaid
	if session.Status == models.SessionStatusOpen || processing {
		return &models.ConfirmationResult{
			Success: false,
			Status:  models.ConfirmationPending,
			Message: "Payment is not completed yet.",
		}
	}
	return &models.ConfirmationResult{
		Success: false,
		Status:  models.ConfirmationFailed,
		Message: "Payment was not completed.",
	}
}
