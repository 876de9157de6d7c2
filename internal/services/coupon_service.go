package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	couponCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeLength   = 6
)

// CouponService ведёт персональные купоны пользователей.
// У пользователя не больше одного купона (UNIQUE(user_id)).
type CouponService struct {
	db       *database.DB
	log      *logger.Logger
	prefix   string
	percent  int
	validity time.Duration
	now      func() time.Time
}

// NewCouponService создаёт сервис купонов.
func NewCouponService(db *database.DB, log *logger.Logger, cfg *config.CheckoutConfig) *CouponService {
	return &CouponService{
		db:       db,
		log:      log,
		prefix:   cfg.CouponPrefix,
		percent:  cfg.RewardDiscountPercent,
		validity: time.Duration(cfg.RewardValidityDays) * 24 * time.Hour,
		now:      time.Now,
	}
}

// GetActiveCoupon возвращает активный купон пользователя или nil, если его нет.
func (s *CouponService) GetActiveCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	query := `
		SELECT id, code, discount_percentage, is_active, expiration_date, user_id, created_at, updated_at
		FROM coupons
		WHERE user_id = $1 AND is_active = true
	`

	coupon := &models.Coupon{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountPercentage, &coupon.IsActive,
		&coupon.ExpirationDate, &coupon.UserID, &coupon.CreatedAt, &coupon.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	return coupon, nil
}

// Validate проверяет купон пользователя. Просроченный купон деактивируется.
func (s *CouponService) Validate(ctx context.Context, userID uuid.UUID, code string) (*models.CouponValidation, error) {
	if code == "" {
		return nil, apperror.NotFound("Coupon code is not available", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT id, discount_percentage, expiration_date
		FROM coupons
		WHERE code = $1 AND user_id = $2 AND is_active = true
		FOR UPDATE
	`

	coupon := &models.Coupon{Code: code, UserID: userID, IsActive: true}
	if err := tx.QueryRowContext(ctx, query, code, userID).Scan(&coupon.ID, &coupon.DiscountPercentage, &coupon.ExpirationDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Coupon not found", err)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	now := s.now()
	if coupon.Expired(now) {
		if _, err := tx.ExecContext(ctx, `UPDATE coupons SET is_active = false, updated_at = $1 WHERE id = $2`, now, coupon.ID); err != nil {
			return nil, fmt.Errorf("failed to deactivate expired coupon: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		s.log.WithFields(map[string]interface{}{
			"user_id": userID,
			"code":    code,
		}).Info("Expired coupon deactivated")

		return nil, apperror.Expired("Coupon expired", nil)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.CouponValidation{
		Message:            "Coupon is valid",
		Code:               code,
		DiscountPercentage: coupon.DiscountPercentage,
	}, nil
}

// IssueReward заменяет купон пользователя новым наградным купоном.
func (s *CouponService) IssueReward(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	code, err := generateCouponCode(s.prefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	coupon := &models.Coupon{
		ID:                 uuid.New(),
		Code:               code,
		DiscountPercentage: s.percent,
		IsActive:           true,
		ExpirationDate:     now.Add(s.validity),
		UserID:             userID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coupons WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to delete previous coupon: %w", err)
	}

	query := `
		INSERT INTO coupons (id, code, discount_percentage, is_active, expiration_date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		coupon.ID, coupon.Code, coupon.DiscountPercentage, coupon.IsActive,
		coupon.ExpirationDate, coupon.UserID, coupon.CreatedAt, coupon.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("coupon code already exists", err)
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"code":       coupon.Code,
		"expires_at": coupon.ExpirationDate,
	}).Info("Reward coupon issued")

	return coupon, nil
}

// Deactivate гасит купон пользователя. Отсутствие купона не считается ошибкой.
func (s *CouponService) Deactivate(ctx context.Context, code string, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, deactivateCouponQuery, s.now(), code, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate coupon: %w", err)
	}
	return nil
}

// DeactivateWithTx гасит купон в рамках внешней транзакции.
func (s *CouponService) DeactivateWithTx(ctx context.Context, tx *sql.Tx, code string, userID uuid.UUID) error {
	_, err := s.ConsumeWithTx(ctx, tx, code, userID)
	return err
}

// ConsumeWithTx гасит купон в транзакции и сообщает, был ли купон активен.
func (s *CouponService) ConsumeWithTx(ctx context.Context, tx *sql.Tx, code string, userID uuid.UUID) (bool, error) {
	if code == "" {
		return false, nil
	}

	result, err := tx.ExecContext(ctx, deactivateCouponQuery, s.now(), code, userID)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate coupon: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

const deactivateCouponQuery = `
	UPDATE coupons
	SET is_active = false, updated_at = $1
	WHERE code = $2 AND user_id = $3 AND is_active = true
`

func generateCouponCode(prefix string) (string, error) {
	buf := make([]byte, couponCodeLength)
	max := big.NewInt(int64(len(couponCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate coupon code: %w", err)
		}
		buf[i] = couponCodeAlphabet[n.Int64()]
	}
	return prefix + string(buf), nil
}
