package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/httpx"
	"github.com/MikeMC777/mercado-ecom/internal/idempotency"
	"github.com/MikeMC777/mercado-ecom/internal/identity"
	"github.com/MikeMC777/mercado-ecom/internal/metrics"
	ord "github.com/MikeMC777/mercado-ecom/internal/order"
	"github.com/MikeMC777/mercado-ecom/internal/payment"
)

const maxWebhookBody = 1 << 20

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// checkoutHandler godoc
// @Summary  Place an order for a cart and start payment
// @Tags     checkout
// @Security BearerAuth
// @Param    sid  path string true "supermarket id"
// @Param    body body ord.CheckoutRequest true "cart"
// @Success  201 {object} ord.CheckoutResponse
// @Failure  502 {object} ord.CheckoutResponse
// @Router   /supermarkets/{sid}/checkout [post]
func checkoutHandler(svc *ord.Service, m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c)
		if !ok {
			httpx.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		var req ord.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			m.CheckoutOutcome("invalid")
			httpx.Abort(c, http.StatusBadRequest, "invalid json")
			return
		}

		r, err := svc.Checkout(c.Request.Context(), ord.CheckoutInput{
			SupermarketID:  c.Param("sid"),
			UserID:         p.UserID,
			IdempotencyKey: c.GetHeader(idempotency.Header),
			Lines:          req.Lines(),
		})
		if err != nil {
			writeCheckoutError(c, m, err)
			return
		}
		m.CheckoutOutcome("created")
		c.JSON(http.StatusCreated, ord.CheckoutResponse{
			OrderID:     r.Order.ID,
			TotalAmount: r.Order.TotalAmount.StringFixed(2),
			RedirectURL: r.RedirectURL,
			ClearCart:   r.ClearCart,
		})
	}
}

func writeCheckoutError(c *gin.Context, m *metrics.ServerMetrics, err error) {
	var (
		ise *ord.InsufficientStockError
		dup *ord.DuplicateCheckoutError
		gue *ord.GatewayUnavailableError
	)
	switch {
	case errors.As(err, &gue):
		m.CheckoutOutcome("gateway_unavailable")
		c.JSON(http.StatusBadGateway, ord.CheckoutResponse{
			OrderID:   gue.OrderID,
			ClearCart: true,
			Error:     "order created but payment could not be started",
		})
	case errors.As(err, &ise):
		m.CheckoutOutcome("insufficient_stock")
		c.JSON(http.StatusConflict, gin.H{"error": ise.Error(), "product_id": ise.ProductID})
	case errors.As(err, &dup):
		m.CheckoutOutcome("duplicate")
		c.JSON(http.StatusConflict, gin.H{"error": "checkout already completed", "order_id": dup.OrderID})
	case errors.Is(err, ord.ErrCheckoutInProgress):
		m.CheckoutOutcome("in_progress")
		httpx.Abort(c, http.StatusConflict, "checkout already in progress")
	case errors.Is(err, ord.ErrAuthenticationRequired):
		m.CheckoutOutcome("unauthenticated")
		httpx.Abort(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ord.ErrValidation):
		m.CheckoutOutcome("invalid")
		httpx.Abort(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ord.ErrProductNotFound):
		m.CheckoutOutcome("product_not_found")
		httpx.Abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ord.ErrUpstream):
		m.CheckoutOutcome("upstream")
		log.Printf("[checkout] upstream err=%v", err)
		httpx.Abort(c, http.StatusBadGateway, "checkout failed, please try again")
	default:
		m.CheckoutOutcome("error")
		log.Printf("[checkout] err=%v", err)
		httpx.Abort(c, http.StatusInternalServerError, "checkout failed, please try again")
	}
}

// payInitHandler godoc
// @Summary  Initiate payment for a pending order
// @Tags     payments
// @Security BearerAuth
// @Param    body body ord.PayInitRequest true "payment"
// @Router   /payments/initialize [post]
func payInitHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c)
		if !ok {
			httpx.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		var req ord.PayInitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid json")
			return
		}
		req.Email, req.Reference = strings.TrimSpace(req.Email), strings.TrimSpace(req.Reference)
		if req.Email == "" || req.Amount == "" || req.Reference == "" {
			httpx.Abort(c, http.StatusBadRequest, "email, amount and reference are required")
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			httpx.Abort(c, http.StatusBadRequest, "amount must be a decimal number")
			return
		}

		res, err := svc.PaymentFor(c.Request.Context(), p.UserID, req.Email, req.Reference, amount)
		var gwErr *payment.GatewayError
		switch {
		case err == nil:
			c.Data(http.StatusOK, "application/json; charset=utf-8", res.Raw)
		case errors.Is(err, ord.ErrNotFound):
			httpx.Abort(c, http.StatusNotFound, "order not found")
		case errors.Is(err, ord.ErrValidation), errors.Is(err, payment.ErrInvalidRequest):
			httpx.Abort(c, http.StatusBadRequest, err.Error())
		case errors.As(err, &gwErr):
			log.Printf("[payments] ref=%s gateway rejected: %v", req.Reference, err)
			msg := gwErr.Message
			if msg == "" {
				msg = "payment provider rejected the request"
			}
			httpx.Abort(c, http.StatusBadRequest, msg)
		default:
			log.Printf("[payments] ref=%s err=%v", req.Reference, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not initialize payment")
		}
	}
}

// webhookHandler godoc
// @Summary Payment provider notification
// @Tags    payments
// @Param   x-paystack-signature header string true "hex HMAC-SHA512 of the body"
// @Router  /payments/webhook [post]
func webhookHandler(rec *ord.Reconciler, m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			m.WebhookOutcome("unknown", "unreadable")
			httpx.Abort(c, http.StatusBadRequest, "unreadable body")
			return
		}
		ack, err := rec.HandleNotification(c.Request.Context(), raw, c.GetHeader(payment.SignatureHeader))
		switch {
		case err == nil:
			m.WebhookOutcome(ack.Event, ack.Outcome)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		case errors.Is(err, payment.ErrInvalidSignature):
			m.WebhookOutcome("unknown", "invalid_signature")
			log.Printf("[webhook] rejected: invalid signature from %s", c.ClientIP())
			httpx.Abort(c, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, payment.ErrMalformedPayload):
			m.WebhookOutcome("unknown", "malformed")
			log.Printf("[webhook] malformed payload: %v", err)
			httpx.Abort(c, http.StatusInternalServerError, "malformed payload")
		default:
			m.WebhookOutcome("unknown", "error")
			httpx.Abort(c, http.StatusInternalServerError, "could not process notification")
		}
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginHandler godoc
// @Summary Exchange email and password for a session token
// @Tags    auth
// @Router  /auth/login [post]
func loginHandler(dir ord.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
			httpx.Abort(c, http.StatusBadRequest, "email and password are required")
			return
		}
		s, err := dir.Authenticate(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, identity.ErrInvalidCredentials) {
			httpx.Abort(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			log.Printf("[auth] directory err=%v", err)
			httpx.Abort(c, http.StatusBadGateway, "login unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":      s.Token,
			"expires_at": s.ExpiresAt,
			"user": gin.H{
				"id":             s.User.ID,
				"email":          s.User.Email,
				"role":           s.User.Role,
				"supermarket_id": s.User.SupermarketID,
			},
		})
	}
}

func listMyOrdersHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c)
		limit, offset := queryInt(c, "limit", 20), queryInt(c, "offset", 0)
		items, err := repo.ListByUser(c.Request.Context(), p.UserID, limit, offset)
		if err != nil {
			log.Printf("[orders] list user=%s err=%v", p.UserID, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not list orders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
	}
}

// getOrderHandler answers 404 for orders the caller may not see.
func getOrderHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c)
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ord.ErrNotFound) {
			httpx.Abort(c, http.StatusNotFound, "order not found")
			return
		}
		if err != nil {
			log.Printf("[orders] get id=%s err=%v", c.Param("id"), err)
			httpx.Abort(c, http.StatusInternalServerError, "could not load order")
			return
		}
		owner := o.UserID != nil && *o.UserID == p.UserID
		if !owner && !p.AdminOf(o.SupermarketID) {
			httpx.Abort(c, http.StatusNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, ord.OrderView{Order: *o, Items: items})
	}
}

func clearHistoryHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c)
		n, err := repo.ClearHistory(c.Request.Context(), p.UserID)
		if err != nil {
			log.Printf("[orders] clear user=%s err=%v", p.UserID, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not clear history")
			return
		}
		log.Printf("[orders] cleared user=%s orders=%d", p.UserID, n)
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	}
}

func adminOrdersHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := ord.Status(strings.TrimSpace(c.Query("status")))
		if status != "" && !status.Valid() {
			httpx.Abort(c, http.StatusBadRequest, "status must be pending, paid or failed")
			return
		}
		limit, offset := queryInt(c, "limit", 20), queryInt(c, "offset", 0)
		items, err := repo.ListBySupermarket(c.Request.Context(), c.Param("sid"), status, limit, offset)
		if err != nil {
			log.Printf("[orders] admin list sid=%s err=%v", c.Param("sid"), err)
			httpx.Abort(c, http.StatusInternalServerError, "could not list orders")
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "status": status, "limit": limit, "offset": offset})
	}
}
