package services

import (
	"context"

	"storefront/internal/kafka"
	"storefront/internal/logger"
	"storefront/internal/models"
)

// AdminNotifier отправляет уведомления администратору
type AdminNotifier interface {
	NotifyOrderCreated(ctx context.Context, data *models.OrderCreatedData) error
	NotifyCouponIssued(ctx context.Context, data *models.CouponIssuedData) error
}

// CacheInvalidator сбрасывает кеш аналитики
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// HandlerRegistry принимает обработчики событий (реализуется kafka.Consumer)
type HandlerRegistry interface {
	RegisterHandler(eventType models.EventType, handler kafka.EventHandler)
}

// EventProcessor обрабатывает события, прочитанные из Kafka
type EventProcessor struct {
	notifier  AdminNotifier
	analytics CacheInvalidator
	log       *logger.Logger
}

// NewEventProcessor создает обработчик событий
func NewEventProcessor(notifier AdminNotifier, analytics CacheInvalidator, log *logger.Logger) *EventProcessor {
	return &EventProcessor{
		notifier:  notifier,
		analytics: analytics,
		log:       log,
	}
}

// Register подписывает обработчики на события заказов и купонов
func (p *EventProcessor) Register(registry HandlerRegistry) {
	registry.RegisterHandler(models.EventTypeOrderCreated, p.HandleOrderCreated)
	registry.RegisterHandler(models.EventTypeCouponIssued, p.HandleCouponIssued)
	registry.RegisterHandler(models.EventTypeCouponRedeemed, p.HandleCouponRedeemed)
}

// HandleOrderCreated сбрасывает кеш аналитики и уведомляет администратора.
// Ошибка уведомления только логируется, чтобы не блокировать партицию.
func (p *EventProcessor) HandleOrderCreated(ctx context.Context, event *models.Event) error {
	var data models.OrderCreatedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"event_id": event.ID,
		"order_id": data.OrderID,
	}).Info("Processing order created event")

	if err := p.analytics.InvalidateCache(ctx); err != nil {
		p.log.WithError(err).Warn("Failed to invalidate analytics cache")
	}
	if err := p.notifier.NotifyOrderCreated(ctx, &data); err != nil {
		p.log.WithError(err).WithField("order_id", data.OrderID).Warn("Failed to notify admin about order")
	}
	return nil
}

// HandleCouponIssued уведомляет администратора о наградном купоне
func (p *EventProcessor) HandleCouponIssued(ctx context.Context, event *models.Event) error {
	var data models.CouponIssuedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"event_id": event.ID,
		"user_id":  data.UserID,
	}).Info("Processing coupon issued event")

	if err := p.notifier.NotifyCouponIssued(ctx, &data); err != nil {
		p.log.WithError(err).WithField("user_id", data.UserID).Warn("Failed to notify admin about coupon")
	}
	return nil
}

// HandleCouponRedeemed сбрасывает кеш аналитики, где учитываются заказы с купоном
func (p *EventProcessor) HandleCouponRedeemed(ctx context.Context, event *models.Event) error {
	var data models.CouponRedeemedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"event_id": event.ID,
		"order_id": data.OrderID,
	}).Debug("Processing coupon redeemed event")

	if err := p.analytics.InvalidateCache(ctx); err != nil {
		p.log.WithError(err).Warn("Failed to invalidate analytics cache")
	}
	return nil
}
