package handlers

import (
	"net/http"

	"storefront/internal/logger"
)

const defaultOrdersLimit = 20

// OrderHandler представляет обработчик заказов пользователя
type OrderHandler struct {
	service OrderReader
	log     *logger.Logger
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(service OrderReader, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, log: log}
}

// GetOrders возвращает заказы текущего пользователя
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	limit := parseIntWithDefault(query.Get("limit"), defaultOrdersLimit)
	offset := parseIntWithDefault(query.Get("offset"), 0)

	orders, err := h.service.ListUserOrders(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get orders")
		return
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по ID, если он принадлежит пользователю
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.service.GetOrder(r.Context(), user.ID, orderID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get order")
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}
