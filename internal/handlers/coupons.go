package handlers

import (
	"net/http"

	"storefront/internal/logger"
)

// CouponHandler отдает персональный купон пользователя
type CouponHandler struct {
	service CouponReader
	log     *logger.Logger
}

// NewCouponHandler создает обработчик купонов
func NewCouponHandler(service CouponReader, log *logger.Logger) *CouponHandler {
	return &CouponHandler{service: service, log: log}
}

// GetCoupon возвращает активный купон или null
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	coupon, err := h.service.GetActiveCoupon(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get coupon")
		return
	}

	writeJSONResponse(w, http.StatusOK, coupon)
}

// ValidateCoupon проверяет код купона из query-параметра code
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	validation, err := h.service.Validate(r.Context(), user.ID, r.URL.Query().Get("code"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to validate coupon")
		return
	}

	writeJSONResponse(w, http.StatusOK, validation)
}
