package service

import (
	"context"
	"log"

	"propdesk/internal/models"
)

type Entitlement struct {
	IsPremium               bool
	SubscriptionAmountCents *int64
	Subscription            *SubscriptionInfo
	BalanceCents            *int64
}

// DeriveEntitlement decides premium from the provider's active
// subscriptions and persists the result on the user. A subscription only
// qualifies when its period has not lapsed and its unit amount meets the
// premium price floor. When no subscription exists at all nothing is
// persisted, so premium bought with account balance survives. Lookup
// failures are inconclusive and also persist nothing.
func (s *BillingService) DeriveEntitlement(ctx context.Context, user *models.User, customerID string, capturedBalance *int64) *Entitlement {
	ent := &Entitlement{
		IsPremium:               user.IsPremium,
		SubscriptionAmountCents: user.SubscriptionAmountCents,
		BalanceCents:            capturedBalance,
	}
	if customerID == "" {
		return ent
	}

	if capturedBalance == nil {
		if cust, err := s.client.GetCustomer(ctx, customerID); err != nil {
			log.Printf("[billing] entitlement: get customer %s: user=%d err=%v", customerID, user.ID, err)
		} else {
			bal := cust.Balance
			ent.BalanceCents = &bal
		}
	}

	subs, err := s.client.ListSubscriptions(ctx, customerID, "active", 1)
	if err != nil {
		log.Printf("[billing] entitlement: list subscriptions: user=%d err=%v", user.ID, err)
		return ent
	}
	if len(subs) == 0 {
		return ent
	}

	floor := s.PremiumPriceCents()
	sub := subs[0]
	ent.Subscription = &SubscriptionInfo{
		ID:               sub.ID,
		Status:           sub.Status,
		AmountCents:      sub.AmountCents,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}

	qualifies := sub.AmountCents >= floor && sub.CurrentPeriodEnd.After(s.now())
	wasPremium := user.IsPremium
	if qualifies {
		amt := sub.AmountCents
		ent.IsPremium = true
		ent.SubscriptionAmountCents = &amt
		if err := s.users.SetEntitlement(user.ID, true, &amt); err != nil {
			log.Printf("[billing] entitlement: persist premium: user=%d err=%v", user.ID, err)
		} else {
			user.IsPremium = true
			user.SubscriptionAmountCents = &amt
			if !wasPremium && s.notif != nil {
				_ = s.notif.NotifyPremiumGranted(user.ID)
			}
		}
	} else {
		ent.IsPremium = false
		ent.SubscriptionAmountCents = nil
		if err := s.users.SetEntitlement(user.ID, false, nil); err != nil {
			log.Printf("[billing] entitlement: persist downgrade: user=%d err=%v", user.ID, err)
		} else {
			user.IsPremium = false
			user.SubscriptionAmountCents = nil
		}
	}
	return ent
}

// ReconcileCustomer is the webhook path for subscription changes: look up
// the linked user and re-derive their entitlement.
func (s *BillingService) ReconcileCustomer(ctx context.Context, customerID string) error {
	bc, err := s.customers.GetByStripeCustomerID(customerID)
	if err != nil {
		log.Printf("[billing] reconcile: no local link for customer %s", customerID)
		return nil
	}
	user, err := s.users.GetByID(bc.UserID)
	if err != nil {
		return err
	}
	s.DeriveEntitlement(ctx, user, customerID, nil)
	return nil
}
