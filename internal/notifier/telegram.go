package notifier

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// Notifier отправляет администратору уведомления о заказах и купонах.
// Без токена или chat id уведомления отключены и методы ничего не делают.
type Notifier struct {
	bot    *bot.Bot
	chatID int64
	log    *logger.Logger
}

// New создает клиента Telegram
func New(cfg *config.NotifierConfig, log *logger.Logger) (*Notifier, error) {
	n := &Notifier{log: log, chatID: cfg.TelegramChatID}
	if !cfg.Enabled() {
		log.Info("Telegram notifications disabled")
		return n, nil
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.TelegramAPIURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(cfg.TelegramAPIURL, "/")))
	}

	b, err := bot.New(cfg.TelegramToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.bot = b

	log.WithField("chat_id", cfg.TelegramChatID).Info("Telegram notifications enabled")
	return n, nil
}

// Enabled сообщает, будут ли отправляться сообщения
func (n *Notifier) Enabled() bool {
	return n != nil && n.bot != nil
}

// NotifyOrderCreated сообщает о новом оплаченном заказе
func (n *Notifier) NotifyOrderCreated(ctx context.Context, data *models.OrderCreatedData) error {
	text := fmt.Sprintf("<b>New order</b> %s\nUser: %s\nItems: %d\nTotal: %.2f",
		data.OrderID, data.UserID, data.ItemsCount, data.TotalAmount)
	if data.CouponCode != "" {
		text += fmt.Sprintf("\nCoupon: <code>%s</code>", data.CouponCode)
	}
	return n.send(ctx, text)
}

// NotifyCouponIssued сообщает о выданном наградном купоне
func (n *Notifier) NotifyCouponIssued(ctx context.Context, data *models.CouponIssuedData) error {
	text := fmt.Sprintf("<b>Reward coupon issued</b>\nUser: %s\nCode: <code>%s</code> (%d%%)\nExpires: %s",
		data.UserID, data.Code, data.DiscountPercentage, data.ExpirationDate.Format("2006-01-02"))
	return n.send(ctx, text)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.log.WithField("chat_id", n.chatID).Debug("Telegram notification sent")
	return nil
}
