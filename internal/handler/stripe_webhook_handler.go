package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"propdesk/config"
	"propdesk/internal/domain"
	"propdesk/internal/repository"
	"propdesk/internal/service"
	"propdesk/pkg/billing"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeWebhookHandler receives provider events. The signature check is
// the only authentication on this route; events are recorded by id so a
// redelivery is acknowledged without being processed twice.
type StripeWebhookHandler struct {
	cfg    *config.Config
	svc    *service.BillingService
	events *repository.WebhookEventRepository
}

func NewStripeWebhookHandler(cfg *config.Config, svc *service.BillingService, events *repository.WebhookEventRepository) *StripeWebhookHandler {
	return &StripeWebhookHandler{cfg: cfg, svc: svc, events: events}
}

// webhookSession is the slice of checkout.session.completed payload we use.
type webhookSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountTotal  int64             `json:"amount_total"`
	Status       string            `json:"status"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

type webhookSubscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	if h.cfg.Stripe.WebhookSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook not configured"})
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read failed"})
		return
	}
	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.Stripe.WebhookSecret)
	if err != nil {
		log.Printf("[webhook] signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	fresh, err := h.events.InsertIfNew(event.ID, string(event.Type))
	if err != nil {
		log.Printf("[webhook] record event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event store failed"})
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	procErr := h.process(c, event.Type, event.Data.Raw)
	if err := h.events.MarkProcessed(event.ID, procErr); err != nil {
		log.Printf("[webhook] mark processed %s: %v", event.ID, err)
	}
	if procErr != nil {
		log.Printf("[webhook] %s %s: %v", event.Type, event.ID, procErr)
		// 200 anyway: the event is recorded, retries would be duplicates
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StripeWebhookHandler) process(c *gin.Context, eventType string, raw json.RawMessage) error {
	ctx := c.Request.Context()
	switch eventType {
	case "checkout.session.completed":
		var ws webhookSession
		if err := json.Unmarshal(raw, &ws); err != nil {
			return err
		}
		sess := &billing.CheckoutSession{
			ID:             ws.ID,
			Status:         ws.Status,
			CustomerID:     ws.Customer,
			SubscriptionID: ws.Subscription,
			AmountTotal:    ws.AmountTotal,
			Created:        time.Unix(ws.Created, 0),
			Metadata:       ws.Metadata,
		}
		if sess.Metadata[domain.MetaType] == domain.CheckoutTypeBalanceCredit {
			return h.svc.HandleCompletedCheckout(ctx, sess)
		}
		if sess.CustomerID != "" {
			return h.svc.ReconcileCustomer(ctx, sess.CustomerID)
		}
		return nil

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub webhookSubscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return err
		}
		if sub.Customer == "" {
			return nil
		}
		return h.svc.ReconcileCustomer(ctx, sub.Customer)

	case "invoice.paid", "invoice.payment_succeeded":
		var inv struct {
			Customer string `json:"customer"`
		}
		if err := json.Unmarshal(raw, &inv); err != nil {
			return err
		}
		if inv.Customer == "" {
			return nil
		}
		return h.svc.ReconcileCustomer(ctx, inv.Customer)
	}
	// unhandled event types are acknowledged and ignored
	return nil
}
