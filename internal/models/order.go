package models

import (
	"time"

	"github.com/google/uuid"
)

// Order представляет оплаченный заказ.
// Создаётся один раз на checkout-сессию и больше не изменяется.
type Order struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	UserID          uuid.UUID   `json:"user" db:"user_id"`
	Products        []OrderItem `json:"products"`
	TotalAmount     float64     `json:"totalAmount" db:"total_amount"`
	CouponCode      *string     `json:"couponCode,omitempty" db:"coupon_code"`
	PaymentIntent   string      `json:"paymentIntent" db:"payment_intent"`
	StripeSessionID string      `json:"stripeSessionId" db:"stripe_session_id"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
}

// OrderItem представляет позицию заказа с зафиксированной ценой
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"orderId" db:"order_id"`
	ProductID string    `json:"product" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
}
