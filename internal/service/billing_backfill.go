package service

import (
	"context"
	"log"
	"strconv"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/pkg/billing"
)

// BackfillBalanceCredits grants balance for completed top-up checkouts the
// webhook never credited. Exactly-once is enforced by tagging each credit
// with the checkout session id and skipping sessions already tagged.
// Sessions younger than the grace window are left for the webhook. Returns
// the number of credits granted.
func (s *BillingService) BackfillBalanceCredits(ctx context.Context, user *models.User, customerID string, txns []*billing.BalanceTransaction) int {
	if customerID == "" {
		return 0
	}
	sessions, err := s.client.ListCheckoutSessions(ctx, customerID, s.cfg.Billing.SessionScanLimit)
	if err != nil {
		log.Printf("[billing] backfill: list sessions: user=%d err=%v", user.ID, err)
		return 0
	}
	if txns == nil {
		txns, err = s.client.ListBalanceTransactions(ctx, customerID, s.cfg.Billing.PageLimit)
		if err != nil {
			// cannot prove a session was already credited, so do nothing
			log.Printf("[billing] backfill: list transactions: user=%d err=%v", user.ID, err)
			return 0
		}
	}
	credited := make(map[string]bool)
	for _, t := range txns {
		if sid := t.Metadata[domain.MetaCheckoutSessionID]; sid != "" {
			credited[sid] = true
		}
	}

	granted := 0
	for _, sess := range sessions {
		if sess.Status != "complete" || sess.Metadata[domain.MetaType] != domain.CheckoutTypeBalanceCredit {
			continue
		}
		if credited[sess.ID] {
			continue
		}
		if s.now().Sub(sess.Created) < s.cfg.Billing.BackfillGrace {
			log.Printf("[billing] backfill: session %s inside grace window, leaving for webhook", sess.ID)
			continue
		}
		amount := creditAmountCents(sess)
		if amount <= 0 {
			continue
		}
		if err := s.creditSession(ctx, user, customerID, sess.ID, amount); err != nil {
			log.Printf("[billing] backfill: credit session %s: user=%d err=%v", sess.ID, user.ID, err)
			continue
		}
		granted++
	}
	return granted
}

// creditSession grants a top-up as a negative balance transaction tagged
// with the originating session id.
func (s *BillingService) creditSession(ctx context.Context, user *models.User, customerID, sessionID string, amountCents int64) error {
	_, err := s.client.CreateBalanceTransaction(ctx, customerID, -amountCents, s.cfg.Billing.Currency,
		"Balance top-up", map[string]string{
			domain.MetaCheckoutSessionID: sessionID,
			domain.MetaUserID:            billing.FormatUserID(user.ID),
		})
	if err != nil {
		return err
	}
	log.Printf("[billing] credited %d cents to user=%d for session %s", amountCents, user.ID, sessionID)
	if s.notif != nil {
		_ = s.notif.NotifyBalanceCredited(user.ID, amountCents, sessionID)
	}
	return nil
}

// HandleCompletedCheckout is the webhook path for checkout.session.completed.
// It credits top-up sessions immediately (no grace window: the webhook IS
// the fast path) with the same session-id tagging as the backfill.
func (s *BillingService) HandleCompletedCheckout(ctx context.Context, sess *billing.CheckoutSession) error {
	if sess.Metadata[domain.MetaType] != domain.CheckoutTypeBalanceCredit {
		return nil
	}
	user, err := s.userFromSessionMetadata(sess)
	if err != nil {
		return err
	}
	customerID := sess.CustomerID
	if customerID == "" {
		customerID, _ = s.ResolveCustomer(ctx, user)
	}
	if customerID == "" {
		log.Printf("[billing] webhook: session %s has no customer and none resolvable", sess.ID)
		return nil
	}
	txns, err := s.client.ListBalanceTransactions(ctx, customerID, s.cfg.Billing.PageLimit)
	if err != nil {
		return err
	}
	for _, t := range txns {
		if t.Metadata[domain.MetaCheckoutSessionID] == sess.ID {
			return nil // already credited
		}
	}
	amount := creditAmountCents(sess)
	if amount <= 0 {
		return nil
	}
	return s.creditSession(ctx, user, customerID, sess.ID, amount)
}

func (s *BillingService) userFromSessionMetadata(sess *billing.CheckoutSession) (*models.User, error) {
	raw := sess.Metadata[domain.MetaUserID]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Printf("[billing] webhook: session %s has no usable user_id metadata (%q)", sess.ID, raw)
		return nil, err
	}
	return s.users.GetByID(uint(id))
}

// creditAmountCents prefers the amount recorded in session metadata at
// checkout creation, falling back to the session total.
func creditAmountCents(sess *billing.CheckoutSession) int64 {
	if raw := sess.Metadata[domain.MetaAmountCents]; raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return sess.AmountTotal
}
