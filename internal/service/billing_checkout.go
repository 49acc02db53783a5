package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/pkg/billing"
)

var ErrTopUpTooSmall = errors.New("top-up amount below minimum")

func (s *BillingService) minTopUpCents() int64 {
	if s.settings != nil {
		if v, err := s.settings.Get(domain.SettingMinTopUpCents); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil && n > 0 {
				return n
			}
		}
	}
	return s.cfg.Billing.MinTopUpCents
}

// CreateTopUpCheckout starts a hosted checkout that adds balance. The
// amount and user id ride along as metadata so the webhook and backfill
// can credit the session later.
func (s *BillingService) CreateTopUpCheckout(ctx context.Context, user *models.User, amountCents int64) (string, error) {
	if min := s.minTopUpCents(); amountCents < min {
		return "", fmt.Errorf("%w: minimum is $%.2f", ErrTopUpTooSmall, float64(min)/100)
	}
	customerID, err := s.ResolveOrCreateCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	return s.client.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID:  customerID,
		Mode:        billing.ModePayment,
		AmountCents: amountCents,
		ProductName: "PropDesk balance top-up",
		Currency:    s.cfg.Billing.Currency,
		SuccessURL:  s.cfg.Stripe.SuccessURL,
		CancelURL:   s.cfg.Stripe.CancelURL,
		Metadata: map[string]string{
			domain.MetaUserID:      billing.FormatUserID(user.ID),
			domain.MetaType:        domain.CheckoutTypeBalanceCredit,
			domain.MetaAmountCents: strconv.FormatInt(amountCents, 10),
		},
	})
}

// CreateSubscriptionCheckout starts a hosted checkout for the recurring
// premium plan.
func (s *BillingService) CreateSubscriptionCheckout(ctx context.Context, user *models.User) (string, error) {
	if s.cfg.Stripe.PremiumPriceID == "" {
		return "", billing.ErrNotConfigured
	}
	customerID, err := s.ResolveOrCreateCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	return s.client.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		Mode:       billing.ModeSubscription,
		PriceID:    s.cfg.Stripe.PremiumPriceID,
		SuccessURL: s.cfg.Stripe.SuccessURL,
		CancelURL:  s.cfg.Stripe.CancelURL,
		Metadata: map[string]string{
			domain.MetaUserID: billing.FormatUserID(user.ID),
			domain.MetaType:   domain.CheckoutTypeSubscription,
		},
	})
}

// CreatePortal opens the provider's self-service portal for an existing
// customer.
func (s *BillingService) CreatePortal(ctx context.Context, user *models.User, returnURL string) (string, error) {
	customerID, _ := s.ResolveCustomer(ctx, user)
	if customerID == "" {
		return "", ErrNoBillingCustomer
	}
	if returnURL == "" {
		returnURL = s.cfg.Stripe.SuccessURL
	}
	return s.client.CreatePortalSession(ctx, customerID, returnURL)
}
