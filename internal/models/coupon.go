package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon представляет персональный купон пользователя.
// У пользователя может быть не больше одного купона.
type Coupon struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Code               string    `json:"code" db:"code"`
	DiscountPercentage int       `json:"discountPercentage" db:"discount_percentage"`
	IsActive           bool      `json:"isActive" db:"is_active"`
	ExpirationDate     time.Time `json:"expirationDate" db:"expiration_date"`
	UserID             uuid.UUID `json:"userId" db:"user_id"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// Expired сообщает, истёк ли срок действия купона на момент now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}

// CouponValidation описывает результат успешной проверки купона.
type CouponValidation struct {
	Message            string `json:"message"`
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
}
