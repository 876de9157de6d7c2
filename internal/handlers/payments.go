package handlers

import (
	"encoding/json"
	"net/http"

	"storefront/internal/logger"
	"storefront/internal/models"
)

// PaymentHandler обслуживает создание и подтверждение checkout-сессий
type PaymentHandler struct {
	checkout CheckoutCreator
	confirm  CheckoutConfirmer
	log      *logger.Logger
}

// NewPaymentHandler создает обработчик платежей
func NewPaymentHandler(checkout CheckoutCreator, confirm CheckoutConfirmer, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		confirm:  confirm,
		log:      log,
	}
}

// CreateCheckoutSession создает hosted checkout-сессию для корзины пользователя
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateCheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.checkout.CreateSession(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create checkout session")
		return
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// CheckoutSuccess подтверждает оплату и записывает заказ.
// Неоплаченная сессия возвращает 200 с success=false.
func (h *PaymentHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.ConfirmCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.confirm.ConfirmCheckout(r.Context(), user.ID, req.SessionID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to process successful checkout")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}
