package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/redis"

	"github.com/google/uuid"
)

// CatalogService отдает витрину избранных товаров через кеш Redis
type CatalogService struct {
	db       *database.DB
	redis    *redis.Client
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewCatalogService создает сервис каталога. ttl = 0 хранит кеш без срока.
func NewCatalogService(db *database.DB, redisClient *redis.Client, log *logger.Logger, ttl time.Duration) *CatalogService {
	return &CatalogService{
		db:       db,
		redis:    redisClient,
		log:      log,
		cacheTTL: ttl,
	}
}

const productColumns = `id, name, description, price, image, category, is_featured, created_at, updated_at`

// GetFeaturedProducts возвращает избранные товары, сначала пытаясь прочитать кеш
func (s *CatalogService) GetFeaturedProducts(ctx context.Context) ([]models.Product, error) {
	if s.redis != nil {
		var cached []models.Product
		err := s.redis.Get(ctx, redis.KeyFeaturedProducts, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).Warn("Failed to read featured products cache")
		}
	}

	products, err := s.loadFeatured(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheFeatured(ctx, products)
	return products, nil
}

// ToggleFeatured переключает признак is_featured и обновляет кеш витрины
func (s *CatalogService) ToggleFeatured(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	query := `
		UPDATE products
		SET is_featured = NOT is_featured, updated_at = $1
		WHERE id = $2
		RETURNING ` + productColumns

	product := &models.Product{}
	err := s.db.QueryRowContext(ctx, query, time.Now(), productID).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.Image,
		&product.Category, &product.IsFeatured, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Product not found", err)
		}
		return nil, fmt.Errorf("failed to toggle featured product: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"product_id":  productID,
		"is_featured": product.IsFeatured,
	}).Info("Product featured flag toggled")

	if s.redis != nil {
		products, err := s.loadFeatured(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Failed to refresh featured products cache")
		} else {
			s.cacheFeatured(ctx, products)
		}
	}

	return product, nil
}

func (s *CatalogService) loadFeatured(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_featured = true ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image,
			&p.Category, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

func (s *CatalogService) cacheFeatured(ctx context.Context, products []models.Product) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, redis.KeyFeaturedProducts, products, s.cacheTTL); err != nil {
		s.log.WithError(err).Warn("Failed to cache featured products")
	}
}
