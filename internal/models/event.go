package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события
type EventType string

const (
	EventTypeCheckoutSessionCreated EventType = "checkout.session_created"
	EventTypeOrderCreated           EventType = "order.created"
	EventTypeCouponIssued           EventType = "coupon.issued"
	EventTypeCouponRedeemed         EventType = "coupon.redeemed"
)

// Event представляет событие, публикуемое в Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent создает событие с сериализованной нагрузкой
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    "storefront",
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}, nil
}

// DecodeData разбирает нагрузку события в dest
func (e *Event) DecodeData(dest interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", e.Type, err)
	}
	return nil
}

// CheckoutSessionCreatedData описывает созданную checkout-сессию
type CheckoutSessionCreatedData struct {
	SessionID        string    `json:"session_id"`
	UserID           uuid.UUID `json:"user_id"`
	TotalAmountMinor int64     `json:"total_amount_minor"`
	CouponApplied    bool      `json:"coupon_applied"`
}

// OrderCreatedData описывает записанный заказ
type OrderCreatedData struct {
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
	TotalAmount     float64   `json:"total_amount"`
	ItemsCount      int       `json:"items_count"`
	CouponCode      string    `json:"coupon_code,omitempty"`
	StripeSessionID string    `json:"stripe_session_id"`
}

// CouponIssuedData описывает выданный наградной купон
type CouponIssuedData struct {
	UserID             uuid.UUID `json:"user_id"`
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpirationDate     time.Time `json:"expiration_date"`
}

// CouponRedeemedData описывает погашенный при оплате купон
type CouponRedeemedData struct {
	UserID  uuid.UUID `json:"user_id"`
	Code    string    `json:"code"`
	OrderID uuid.UUID `json:"order_id"`
}
