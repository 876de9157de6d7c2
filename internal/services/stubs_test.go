package services

import (
	"context"
	"sync"

	"storefront/internal/models"

	"github.com/google/uuid"
)

type stubValidator struct {
	validation *models.CouponValidation
	err        error
	calls      int
}

func (s *stubValidator) Validate(ctx context.Context, userID uuid.UUID, code string) (*models.CouponValidation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.validation, nil
}

type stubGateway struct {
	created     *models.GatewaySessionRequest
	createErr   error
	session     *models.GatewaySession
	getErr      error
	createCalls int
}

func (g *stubGateway) CreateSession(ctx context.Context, req models.GatewaySessionRequest) (*models.GatewaySession, error) {
	g.createCalls++
	g.created = &req
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &models.GatewaySession{ID: "cs_test_1", Status: models.SessionStatusOpen, PaymentStatus: models.PaymentStatusUnpaid}, nil
}

func (g *stubGateway) GetSession(ctx context.Context, sessionID string) (*models.GatewaySession, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.session, nil
}

type recordedEvents struct {
	mu       sync.Mutex
	sessions []models.CheckoutSessionCreatedData
	orders   []*models.Order
	issued   []*models.Coupon
	redeemed []string
	err      error
}

func (e *recordedEvents) PublishCheckoutSessionCreated(data models.CheckoutSessionCreatedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = append(e.sessions, data)
	return e.err
}

func (e *recordedEvents) PublishOrderCreated(order *models.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = append(e.orders, order)
	return e.err
}

func (e *recordedEvents) PublishCouponIssued(coupon *models.Coupon) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued = append(e.issued, coupon)
	return e.err
}

func (e *recordedEvents) PublishCouponRedeemed(userID uuid.UUID, code string, orderID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redeemed = append(e.redeemed, code)
	return e.err
}

type stubRewards struct {
	calls  int
	amount int64
	err    error
}

func (r *stubRewards) IssueForPurchase(ctx context.Context, userID uuid.UUID, amountMinor int64) (*models.Coupon, error) {
	r.calls++
	r.amount = amountMinor
	if r.err != nil {
		return nil, r.err
	}
	return &models.Coupon{UserID: userID, Code: "GIFTNEW000"}, nil
}

type stubLedger struct {
	calls int
	err   error
}

func (l *stubLedger) IssueReward(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return &models.Coupon{UserID: userID, Code: "GIFTABCDEF", DiscountPercentage: 10, IsActive: true}, nil
}
