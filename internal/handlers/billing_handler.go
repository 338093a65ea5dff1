package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/subscription"
)

// WebhookSignatureHeader carries the shared secret configured on the gateway
const WebhookSignatureHeader = "verif-hash"

// PaymentService runs the checkout and settlement flow
type PaymentService interface {
	Initiate(ctx context.Context, userID, planID string) (*models.InitiatePaymentResponse, error)
	Confirm(ctx context.Context, txRef string) (*models.Payment, error)
	HandleWebhook(ctx context.Context, signature string, event *models.PaymentWebhookEvent) (*models.Payment, error)
	GetForUser(ctx context.Context, userID, txRef string) (*models.Payment, error)
}

// SubscriptionService reports a user's plan and usage
type SubscriptionService interface {
	Status(ctx context.Context, userID string) (*models.SubscriptionStatusResponse, error)
}

// BillingHandler serves plans, subscriptions and payments
type BillingHandler struct {
	payments      PaymentService
	subscriptions SubscriptionService
	redirectURL   string
}

// NewBillingHandler creates a billing handler. redirectURL is where the
// payment callback sends the browser once the payment is settled; when
// empty the callback answers with JSON.
func NewBillingHandler(payments PaymentService, subscriptions SubscriptionService, redirectURL string) *BillingHandler {
	return &BillingHandler{
		payments:      payments,
		subscriptions: subscriptions,
		redirectURL:   redirectURL,
	}
}

// Plans godoc
// @Summary List subscription plans
// @Tags billing
// @Produce json
// @Success 200 {object} map[string]interface{} "success: true, plans: []models.Plan"
// @Router /api/v1/plans [get]
func (h *BillingHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": subscription.Plans()})
}

// Subscription godoc
// @Summary Current subscription
// @Description Effective plan, period end and this month's usage
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SubscriptionStatusResponse
// @Router /api/v1/subscription [get]
func (h *BillingHandler) Subscription(c *gin.Context) {
	status, err := h.subscriptions.Status(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Initiate godoc
// @Summary Start a plan payment
// @Description Create a pending payment with a fresh tx_ref and return the hosted checkout link
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.InitiatePaymentRequest true "Plan to buy"
// @Success 201 {object} models.InitiatePaymentResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/payments/initiate [post]
func (h *BillingHandler) Initiate(c *gin.Context) {
	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.payments.Initiate(c.Request.Context(), middleware.UserID(c), req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetPayment godoc
// @Summary Get one of my payments
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param tx_ref path string true "Transaction reference"
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/payments/{tx_ref} [get]
func (h *BillingHandler) GetPayment(c *gin.Context) {
	p, err := h.payments.GetForUser(c.Request.Context(), middleware.UserID(c), c.Param("tx_ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Callback godoc
// @Summary Payment redirect callback
// @Description Browser lands here after checkout. The query status is ignored; the transaction is verified with the gateway.
// @Tags billing
// @Produce json
// @Param tx_ref query string true "Transaction reference"
// @Param transaction_id query string false "Gateway transaction ID"
// @Param status query string false "Gateway status hint"
// @Success 200 {object} models.Payment
// @Success 302 {string} string "Redirect to the frontend"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/payments/callback [get]
func (h *BillingHandler) Callback(c *gin.Context) {
	p, err := h.payments.Confirm(c.Request.Context(), c.Query("tx_ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.redirectURL != "" {
		c.Redirect(http.StatusFound, redirectWithStatus(h.redirectURL, p))
		return
	}
	c.JSON(http.StatusOK, p)
}

func redirectWithStatus(base string, p *models.Payment) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("tx_ref", p.TxRef)
	q.Set("status", strings.ToLower(p.Status))
	u.RawQuery = q.Encode()
	return u.String()
}

// Webhook godoc
// @Summary Payment gateway webhook
// @Description Signed with the verif-hash header. Replays of a settled tx_ref are acknowledged without changing anything.
// @Tags billing
// @Accept json
// @Produce json
// @Param verif-hash header string true "Webhook secret hash"
// @Param request body models.PaymentWebhookEvent true "Gateway event"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/payments/webhook [post]
func (h *BillingHandler) Webhook(c *gin.Context) {
	var event models.PaymentWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.payments.HandleWebhook(c.Request.Context(), c.GetHeader(WebhookSignatureHeader), &event)
	if err != nil {
		logrus.WithError(err).WithField("tx_ref", event.Data.TxRef).Warn("Payment webhook rejected")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": p.Status})
}
