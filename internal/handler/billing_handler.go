package handler

import (
	"errors"
	"log"
	"net/http"

	"propdesk/config"
	"propdesk/internal/middleware"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	cfg       *config.Config
	svc       *service.BillingService
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditLogRepository
}

func NewBillingHandler(cfg *config.Config, svc *service.BillingService, userRepo *repository.UserRepository, auditRepo *repository.AuditLogRepository) *BillingHandler {
	return &BillingHandler{cfg: cfg, svc: svc, userRepo: userRepo, auditRepo: auditRepo}
}

func (h *BillingHandler) user(c *gin.Context) (*models.User, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	u, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return u, true
}

func (h *BillingHandler) configured(c *gin.Context) bool {
	if !h.cfg.Stripe.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing is not configured"})
		return false
	}
	return true
}

// Overview reconciles the user's billing state and returns transactions,
// balance and subscription in one payload.
func (h *BillingHandler) Overview(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	u, ok := h.user(c)
	if !ok {
		return
	}
	ov, err := h.svc.Overview(c.Request.Context(), u)
	if err != nil {
		log.Printf("[billing] overview: user=%d err=%v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing lookup failed"})
		return
	}
	c.JSON(http.StatusOK, ov)
}

// PurchasePremium buys premium with account balance.
func (h *BillingHandler) PurchasePremium(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	u, ok := h.user(c)
	if !ok {
		return
	}
	if err := h.svc.PurchasePremium(c.Request.Context(), u); err != nil {
		switch {
		case errors.Is(err, service.ErrNoBillingCustomer),
			errors.Is(err, service.ErrCustomerGone),
			errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[billing] purchase premium: user=%d err=%v", u.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase failed"})
		}
		return
	}
	h.audit(u.ID, "purchase_premium", c)
	c.JSON(http.StatusOK, gin.H{"success": true, "is_premium": true})
}

type CheckoutRequest struct {
	Mode        string `json:"mode" binding:"required,oneof=balance subscription"`
	AmountCents int64  `json:"amount_cents"`
}

// Checkout starts a hosted checkout session and returns its URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	u, ok := h.user(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var (
		url string
		err error
	)
	if req.Mode == "subscription" {
		url, err = h.svc.CreateSubscriptionCheckout(c.Request.Context(), u)
	} else {
		url, err = h.svc.CreateTopUpCheckout(c.Request.Context(), u, req.AmountCents)
	}
	if err != nil {
		if errors.Is(err, service.ErrTopUpTooSmall) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[billing] checkout: user=%d mode=%s err=%v", u.ID, req.Mode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
		return
	}
	h.audit(u.ID, "checkout_"+req.Mode, c)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Portal returns a URL into the provider's self-service billing portal.
func (h *BillingHandler) Portal(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	u, ok := h.user(c)
	if !ok {
		return
	}
	url, err := h.svc.CreatePortal(c.Request.Context(), u, c.Query("return_url"))
	if err != nil {
		if errors.Is(err, service.ErrNoBillingCustomer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[billing] portal: user=%d err=%v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "portal session failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BillingHandler) audit(userID uint, action string, c *gin.Context) {
	if h.auditRepo == nil {
		return
	}
	_ = h.auditRepo.Create(&models.AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  "billing",
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
