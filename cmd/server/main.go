package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/kafka"
	"storefront/internal/logger"
	"storefront/internal/notifier"
	"storefront/internal/payment"
	"storefront/internal/redis"
	"storefront/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	runMigrations    = database.RunMigrations
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	newNotifier      = notifier.New
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	router   http.Handler
	server   *http.Server
}

// routeHandlers собирает обработчики для роутера
type routeHandlers struct {
	payments  *handlers.PaymentHandler
	coupons   *handlers.CouponHandler
	orders    *handlers.OrderHandler
	products  *handlers.ProductHandler
	analytics *handlers.AnalyticsHandler
	health    *handlers.HealthHandler
	rateLimit *handlers.RateLimitHandler
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting storefront server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.consumer.Stop()
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(&cfg.Logger)

	telegram, err := newNotifier(&cfg.Notifier, log)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	gateway := payment.NewStripeGateway(&cfg.Stripe, log)

	couponService := services.NewCouponService(db, log, &cfg.Checkout)
	rewardService := services.NewRewardService(couponService, producer, log, cfg.Checkout.RewardThresholdMinor)
	checkoutService := services.NewCheckoutService(couponService, gateway, producer, log, cfg.Stripe.ClientURL)
	paymentService := services.NewPaymentService(db, log, gateway, couponService, rewardService, producer)
	orderService := services.NewOrderService(db, log)
	catalogService := services.NewCatalogService(db, redisClient, log, time.Duration(cfg.Catalog.FeaturedCacheTTLMinutes)*time.Minute)
	analyticsService := services.NewAnalyticsService(db, redisClient, log, &cfg.Analytics)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)
	userService := services.NewUserService(db)

	authenticator := auth.NewAuthenticator(&cfg.Auth, userService, log)

	routes := &routeHandlers{
		payments:  handlers.NewPaymentHandler(checkoutService, paymentService, log),
		coupons:   handlers.NewCouponHandler(couponService, log),
		orders:    handlers.NewOrderHandler(orderService, log),
		products:  handlers.NewProductHandler(catalogService, log),
		analytics: handlers.NewAnalyticsHandler(analyticsService, log, &cfg.Analytics),
		health:    handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck),
		rateLimit: handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit),
	}

	services.NewEventProcessor(telegram, analyticsService, log).Register(consumer)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	router := setupRoutes(routes, authenticator, rateLimiter, cfg.Stripe.ClientURL, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		router:   router,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(h *routeHandlers, authenticator *auth.Authenticator, limiter handlers.MiddlewareLimiter, allowedOrigin string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(allowedOrigin))

	// Health check endpoints
	r.Get("/health", h.health.Health)
	r.Get("/health/readiness", h.health.Readiness)
	r.Get("/health/liveness", h.health.Liveness)

	rateLimit := handlers.RateLimitMiddleware(limiter, log)

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Get("/products/featured", h.products.GetFeaturedProducts)
			r.Get("/rate-limit/status", h.rateLimit.Status)
		})

		// Маршруты для авторизованных пользователей
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Middleware)
			r.Use(rateLimit)

			r.Post("/payments/create-checkout-session", h.payments.CreateCheckoutSession)
			r.Post("/payments/checkout-success", h.payments.CheckoutSuccess)

			r.Get("/coupons", h.coupons.GetCoupon)
			r.Get("/coupons/validate", h.coupons.ValidateCoupon)

			r.Get("/orders", h.orders.GetOrders)
			r.Get("/orders/{id}", h.orders.GetOrder)

			// Админка
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Patch("/products/{id}/featured", h.products.ToggleFeatured)
				r.Get("/analytics", h.analytics.GetDashboard)
				r.Get("/analytics/kpi", h.analytics.GetKPIs)
			})
		})
	})

	return r
}

// requestLogger пишет в лог каждый запрос с его request id
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.WithRequestID(middleware.GetReqID(r.Context())).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("HTTP request")
		})
	}
}

// corsMiddleware разрешает запросы клиента магазина вместе с cookie
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
