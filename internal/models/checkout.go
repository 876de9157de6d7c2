package models

// CartItem представляет позицию корзины, присланную клиентом
type CartItem struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CreateCheckoutSessionRequest представляет запрос на создание checkout-сессии
type CreateCheckoutSessionRequest struct {
	Products   []CartItem `json:"products"`
	CouponCode string     `json:"couponCode,omitempty"`
}

// CheckoutSessionResponse возвращается клиенту после создания сессии
type CheckoutSessionResponse struct {
	ID          string  `json:"id"`
	TotalAmount float64 `json:"totalAmount"`
}

// ProductSnapshot фиксирует позицию корзины в метаданных сессии
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Ключи метаданных checkout-сессии
const (
	MetadataUserID     = "userId"
	MetadataCouponCode = "couponCode"
	MetadataProducts   = "products"
)

// GatewayLineItem описывает позицию для платёжного шлюза в минимальных единицах
type GatewayLineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

// GatewaySessionRequest описывает запрос на создание hosted checkout-сессии
type GatewaySessionRequest struct {
	LineItems       []GatewayLineItem
	DiscountPercent int
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// PaymentStatus описывает статус оплаты сессии на стороне шлюза
type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// SessionStatus описывает жизненный цикл checkout-сессии на стороне шлюза
type SessionStatus string

const (
	SessionStatusOpen     SessionStatus = "open"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusExpired  SessionStatus = "expired"
)

// GatewaySession представляет checkout-сессию, прочитанную из шлюза
type GatewaySession struct {
	ID            string
	Status        SessionStatus
	PaymentStatus PaymentStatus
	AmountTotal   int64
	PaymentIntent string
	Metadata      map[string]string
}

// ConfirmCheckoutRequest представляет callback клиента после оплаты
type ConfirmCheckoutRequest struct {
	SessionID string `json:"sessionId"`
}

// ConfirmationStatus описывает итог подтверждения оплаты
type ConfirmationStatus string

const (
	ConfirmationPaid    ConfirmationStatus = "paid"
	ConfirmationPending ConfirmationStatus = "pending"
	ConfirmationFailed  ConfirmationStatus = "failed"
)

// ConfirmationResult возвращается клиенту после проверки оплаты
type ConfirmationResult struct {
	Success   bool               `json:"success"`
	Status    ConfirmationStatus `json:"status"`
	Message   string             `json:"message"`
	OrderID   string             `json:"orderId,omitempty"`
	Duplicate bool               `json:"duplicate,omitempty"`
}
