package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/config"
	"github.com/MikeMC777/mercado-ecom/internal/httpx"
	"github.com/MikeMC777/mercado-ecom/internal/metrics"
	"github.com/MikeMC777/mercado-ecom/internal/postgres"
	prod "github.com/MikeMC777/mercado-ecom/internal/product"
)

func routes(repo prod.Repository, v *auth.Validator, m *metrics.ServerMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics(m))

	r.GET("/healthz", httpx.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.GET("/supermarkets/:sid/products", listProductsHandler(repo))
	r.GET("/supermarkets/:sid/products/search", searchProductsHandler(repo))
	r.GET("/supermarkets/:sid/categories", categoriesHandler(repo))
	r.GET("/products/:id", getProductHandler(repo))

	admin := r.Group("/", auth.Required(v))
	admin.POST("/supermarkets/:sid/products", auth.RequireAdminOf("sid"), createProductHandler(repo))
	admin.PUT("/products/:id", updateProductHandler(repo))
	admin.DELETE("/products/:id", deleteProductHandler(repo))
	return r
}

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

	srv := &http.Server{
		Addr:              cfg.ProductSvcAddr,
		Handler:           routes(prod.NewPGRepo(pool), auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer), metrics.NewServerMetrics("products")),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("product-service listening on %s", cfg.ProductSvcAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("product-service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
