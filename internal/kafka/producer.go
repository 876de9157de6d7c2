package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события магазина в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронного продюсера
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Timeout = 5 * time.Second
	saramaConfig.Metadata.Retry.Max = 1
	saramaConfig.Metadata.Retry.Backoff = 100 * time.Millisecond

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	topics := cfg.Topics
	return &Producer{
		producer: producer,
		log:      log,
		topics:   &topics,
	}, nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// PublishCheckoutSessionCreated публикует событие о созданной checkout-сессии
func (p *Producer) PublishCheckoutSessionCreated(data models.CheckoutSessionCreatedData) error {
	return p.publish(p.topics.Checkout, models.EventTypeCheckoutSessionCreated, data.UserID.String(), data)
}

// PublishOrderCreated публикует событие о записанном заказе
func (p *Producer) PublishOrderCreated(order *models.Order) error {
	data := models.OrderCreatedData{
		OrderID:         order.ID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		ItemsCount:      len(order.Products),
		StripeSessionID: order.StripeSessionID,
	}
	if order.CouponCode != nil {
		data.CouponCode = *order.CouponCode
	}
	return p.publish(p.topics.Orders, models.EventTypeOrderCreated, order.ID.String(), data)
}

// PublishCouponIssued публикует событие о выданном наградном купоне
func (p *Producer) PublishCouponIssued(coupon *models.Coupon) error {
	data := models.CouponIssuedData{
		UserID:             coupon.UserID,
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
		ExpirationDate:     coupon.ExpirationDate,
	}
	return p.publish(p.topics.Coupons, models.EventTypeCouponIssued, coupon.UserID.String(), data)
}

// PublishCouponRedeemed публикует событие о погашенном купоне
func (p *Producer) PublishCouponRedeemed(userID uuid.UUID, code string, orderID uuid.UUID) error {
	data := models.CouponRedeemedData{UserID: userID, Code: code, OrderID: orderID}
	return p.publish(p.topics.Coupons, models.EventTypeCouponRedeemed, userID.String(), data)
}

func (p *Producer) publish(topic string, eventType models.EventType, key string, data interface{}) error {
	event, err := models.NewEvent(eventType, data)
	if err != nil {
		return err
	}
	return p.publishEventWithKey(topic, key, *event)
}

func (p *Producer) publishEvent(topic string, event models.Event) error {
	return p.publishEventWithKey(topic, event.ID.String(), event)
}

func (p *Producer) publishEventWithKey(topic, key string, event models.Event) error {
	if topic == "" {
		return fmt.Errorf("no topic configured for event %s", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithFields(map[string]interface{}{
			"topic":      topic,
			"event_type": event.Type,
		}).Error("Failed to publish event")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":      topic,
		"event_type": event.Type,
		"event_id":   event.ID,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}
