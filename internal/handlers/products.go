package handlers

import (
	"net/http"

	"storefront/internal/logger"
	"storefront/internal/models"
)

// ProductHandler обслуживает витрину избранных товаров
type ProductHandler struct {
	service CatalogProvider
	log     *logger.Logger
}

// NewProductHandler создает обработчик товаров
func NewProductHandler(service CatalogProvider, log *logger.Logger) *ProductHandler {
	return &ProductHandler{service: service, log: log}
}

// GetFeaturedProducts возвращает избранные товары, пустой список вместо null
func (h *ProductHandler) GetFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetFeaturedProducts(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get featured products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	writeJSONResponse(w, http.StatusOK, products)
}

// ToggleFeatured переключает флаг is_featured (только для администратора)
func (h *ProductHandler) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.ToggleFeatured(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update product")
		return
	}

	h.log.WithFields(map[string]interface{}{
		"product_id":  product.ID,
		"is_featured": product.IsFeatured,
	}).Info("Product featured flag toggled")

	writeJSONResponse(w, http.StatusOK, product)
}
