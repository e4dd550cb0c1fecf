package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/config"
	"github.com/MikeMC777/mercado-ecom/internal/events"
	"github.com/MikeMC777/mercado-ecom/internal/httpx"
	"github.com/MikeMC777/mercado-ecom/internal/idempotency"
	"github.com/MikeMC777/mercado-ecom/internal/metrics"
	ord "github.com/MikeMC777/mercado-ecom/internal/order"
	"github.com/MikeMC777/mercado-ecom/internal/payment"
	"github.com/MikeMC777/mercado-ecom/internal/postgres"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ext, err := ord.NewExt(cfg.UserSvcAddr)
	if err != nil {
		log.Fatalf("user-service client: %v", err)
	}
	defer ext.Close()

	var pub events.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, "order-service", 256)
		defer kp.Close()
		pub = kp
	}

	repo := ord.NewPGRepo(pool)
	svc := ord.NewService(repo, ext, payment.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey))
	svc.CallbackURL = cfg.PaymentCallbackURL
	svc.Events = pub
	if cfg.RedisAddr != "" {
		rdb := idempotency.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		svc.Guard = idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)
	}

	limiter := httpx.NewRateLimiter(cfg.CheckoutRateRPS, cfg.CheckoutRateBurst)
	go limiter.Run(time.Minute, ctx.Done())

	s := &server{
		repo:      repo,
		checkout:  svc,
		reconcile: ord.NewReconciler(repo, cfg.PaystackSecretKey, pub),
		users:     ext.Users,
		validator: auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer),
		limiter:   limiter,
		metrics:   metrics.NewServerMetrics("orders"),
	}

	srv := &http.Server{
		Addr:              cfg.OrderSvcAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("order-service listening on %s", cfg.OrderSvcAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("order-service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
