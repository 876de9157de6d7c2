package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var productRowColumns = []string{"id", "name", "description", "price", "image", "category", "is_featured", "created_at", "updated_at"}

func TestCatalogService_GetFeatured_ReadThrough(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	rdb, mr := newTestRedis(t)
	service := NewCatalogService(db, rdb, newTestLogger(), time.Hour)
	now := time.Now()

	mock.ExpectQuery("FROM products WHERE is_featured = true").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(uuid.New().String(), "Jeans", "blue", 500.0, "img", "jeans", true, now, now))

	products, err := service.GetFeaturedProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Jeans" {
		t.Fatalf("unexpected products: %+v", products)
	}
	if !mr.Exists(redis.KeyFeaturedProducts) {
		t.Fatalf("expected featured products cached")
	}

	cached, err := service.GetFeaturedProducts(context.Background())
	if err != nil || len(cached) != 1 || cached[0].Name != "Jeans" {
		t.Fatalf("expected cache hit, got %+v, %v", cached, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database must be queried once: %v", err)
	}
}

func TestCatalogService_GetFeatured_EmptyWithoutCache(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, nil, newTestLogger(), 0)
	mock.ExpectQuery("FROM products").WillReturnRows(sqlmock.NewRows(productRowColumns))

	products, err := service.GetFeaturedProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty list, got %v", products)
	}
}

func TestCatalogService_GetFeatured_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, nil, newTestLogger(), 0)
	mock.ExpectQuery("FROM products").WillReturnError(errors.New("db down"))

	if _, err := service.GetFeaturedProducts(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCatalogService_ToggleFeatured_RefreshesCache(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	rdb, _ := newTestRedis(t)
	service := NewCatalogService(db, rdb, newTestLogger(), time.Hour)
	_ = rdb.Set(context.Background(), redis.KeyFeaturedProducts, []models.Product{}, time.Hour)

	productID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("UPDATE products SET is_featured = NOT is_featured").
		WithArgs(sqlmock.AnyArg(), productID).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(productID.String(), "Cap", "", 10.0, "", "hats", true, now, now))
	mock.ExpectQuery("FROM products WHERE is_featured = true").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(productID.String(), "Cap", "", 10.0, "", "hats", true, now, now))

	product, err := service.ToggleFeatured(context.Background(), productID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !product.IsFeatured {
		t.Fatalf("expected product featured")
	}

	var cached []models.Product
	if err := rdb.Get(context.Background(), redis.KeyFeaturedProducts, &cached); err != nil {
		t.Fatalf("cache read failed: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != productID {
		t.Fatalf("cache not refreshed: %+v", cached)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogService_ToggleFeatured_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewCatalogService(db, nil, newTestLogger(), 0)
	mock.ExpectQuery("UPDATE products").WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := service.ToggleFeatured(context.Background(), uuid.New())
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
