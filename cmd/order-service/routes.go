package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/mercado-ecom/docs"
	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/httpx"
	"github.com/MikeMC777/mercado-ecom/internal/metrics"
	ord "github.com/MikeMC777/mercado-ecom/internal/order"
)

type server struct {
	repo      ord.Repository
	checkout  *ord.Service
	reconcile *ord.Reconciler
	users     ord.Directory
	validator *auth.Validator
	limiter   *httpx.RateLimiter
	metrics   *metrics.ServerMetrics
}

func principalKey(c *gin.Context) string {
	p, _ := auth.PrincipalFrom(c)
	if p.UserID == "" {
		return ""
	}
	return "user:" + p.UserID
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics(s.metrics))

	r.GET("/healthz", httpx.Health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/login", loginHandler(s.users))
	r.POST("/payments/webhook", webhookHandler(s.reconcile, s.metrics))

	limit := s.limiter.Limit(principalKey)
	authed := r.Group("/", auth.Required(s.validator))
	authed.POST("/supermarkets/:sid/checkout", limit, checkoutHandler(s.checkout, s.metrics))
	authed.POST("/payments/initialize", limit, payInitHandler(s.checkout))
	authed.GET("/orders", listMyOrdersHandler(s.repo))
	authed.GET("/orders/:id", getOrderHandler(s.repo))
	authed.DELETE("/orders", clearHistoryHandler(s.repo))
	authed.GET("/admin/supermarkets/:sid/orders", auth.RequireAdminOf("sid"), adminOrdersHandler(s.repo))
	return r
}
