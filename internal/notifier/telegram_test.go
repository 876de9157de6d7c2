package notifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/google/uuid"
)

type telegramRecorder struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
	fail   bool
}

func (r *telegramRecorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.bodies = append(r.bodies, string(body))
	fail := r.fail
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100123,"type":"group"}}}`))
}

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newTestNotifier(t *testing.T, rec *telegramRecorder) *Notifier {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(server.Close)

	n, err := New(&config.NotifierConfig{
		TelegramToken:  "123456:test-token",
		TelegramChatID: -100123,
		TelegramAPIURL: server.URL,
	}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return n
}

func TestNotifierDisabled(t *testing.T) {
	n, err := New(&config.NotifierConfig{}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Enabled() {
		t.Fatalf("notifier must be disabled without token")
	}
	if err := n.NotifyOrderCreated(context.Background(), &models.OrderCreatedData{}); err != nil {
		t.Fatalf("disabled notifier must not fail: %v", err)
	}
}

func TestNotifyOrderCreated(t *testing.T) {
	rec := &telegramRecorder{}
	n := newTestNotifier(t, rec)

	orderID := uuid.New()
	err := n.NotifyOrderCreated(context.Background(), &models.OrderCreatedData{
		OrderID:     orderID,
		UserID:      uuid.New(),
		TotalAmount: 2500,
		ItemsCount:  3,
		CouponCode:  "GIFTABC123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.paths) != 1 || !strings.HasSuffix(rec.paths[0], "/sendMessage") {
		t.Fatalf("unexpected requests: %v", rec.paths)
	}
	if !strings.Contains(rec.paths[0], "123456:test-token") {
		t.Fatalf("token must be part of the path: %s", rec.paths[0])
	}
	body := rec.bodies[0]
	for _, want := range []string{orderID.String(), "GIFTABC123", "2500.00", "-100123", "HTML"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body does not contain %q: %s", want, body)
		}
	}
}

func TestNotifyCouponIssued(t *testing.T) {
	rec := &telegramRecorder{}
	n := newTestNotifier(t, rec)

	err := n.NotifyCouponIssued(context.Background(), &models.CouponIssuedData{
		UserID:             uuid.New(),
		Code:               "GIFTXYZ789",
		DiscountPercentage: 10,
		ExpirationDate:     time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.bodies) != 1 || !strings.Contains(rec.bodies[0], "GIFTXYZ789") || !strings.Contains(rec.bodies[0], "2026-11-18") {
		t.Fatalf("unexpected body: %v", rec.bodies)
	}
}

func TestNotifyFailure(t *testing.T) {
	rec := &telegramRecorder{fail: true}
	n := newTestNotifier(t, rec)

	if err := n.NotifyOrderCreated(context.Background(), &models.OrderCreatedData{OrderID: uuid.New()}); err == nil {
		t.Fatalf("expected error from telegram API")
	}
}
