package services

import (
	"context"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/google/uuid"
)

// RewardLedger выдает наградные купоны
type RewardLedger interface {
	IssueReward(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
}

// RewardService выдает купон за крупную покупку
type RewardService struct {
	ledger    RewardLedger
	events    EventPublisher
	log       *logger.Logger
	threshold int64
}

// NewRewardService создает сервис наград. threshold задаётся в минимальных единицах.
func NewRewardService(ledger RewardLedger, events EventPublisher, log *logger.Logger, threshold int64) *RewardService {
	return &RewardService{
		ledger:    ledger,
		events:    events,
		log:       log,
		threshold: threshold,
	}
}

// IssueForPurchase выдает купон, если сумма покупки не меньше порога.
// Возвращает nil, если порог не достигнут.
func (s *RewardService) IssueForPurchase(ctx context.Context, userID uuid.UUID, amountMinor int64) (*models.Coupon, error) {
	if amountMinor < s.threshold {
		s.log.WithFields(map[string]interface{}{
			"user_id":      userID,
			"amount_minor": amountMinor,
			"threshold":    s.threshold,
		}).Debug("Purchase below reward threshold")
		return nil, nil
	}
	return s.Issue(ctx, userID)
}

// Issue безусловно выдает наградной купон
func (s *RewardService) Issue(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.ledger.IssueReward(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishCouponIssued(coupon); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("Failed to publish coupon issued event")
		}
	}

	return coupon, nil
}
