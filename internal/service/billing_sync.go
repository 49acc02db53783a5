package service

import (
	"context"
	"log"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/pkg/billing"
)

// SyncInvoices mirrors the user's paid provider invoices into local
// storage. Keyed on the external invoice id, so repeated syncs converge.
// Fully refunded invoices are removed. When the direct customer listing
// yields nothing, the sync falls back to listing by the customer's
// subscriptions, then to a session scan, which recovers history after a
// customer was deleted and re-minted.
func (s *BillingService) SyncInvoices(ctx context.Context, user *models.User, customerID string, txns []*billing.BalanceTransaction) {
	// synthetic balance-purchase invoices are rebuilt below from the
	// provider's transaction list, so refunded debits disappear
	if err := s.invoices.DeleteSyntheticByUserID(user.ID); err != nil {
		log.Printf("[billing] clear synthetic invoices: user=%d err=%v", user.ID, err)
	}

	found := 0
	if customerID != "" {
		invs, err := s.client.ListPaidInvoices(ctx, customerID, "", s.cfg.Billing.PageLimit)
		if err != nil {
			log.Printf("[billing] sync invoices by customer: user=%d err=%v", user.ID, err)
		} else {
			found += s.applyInvoices(user.ID, invs)
		}
	}

	if found == 0 && customerID != "" {
		subs, err := s.client.ListSubscriptions(ctx, customerID, "", 10)
		if err != nil {
			log.Printf("[billing] sync invoices: list subscriptions: user=%d err=%v", user.ID, err)
		}
		for _, sub := range subs {
			invs, err := s.client.ListPaidInvoices(ctx, "", sub.ID, s.cfg.Billing.PageLimit)
			if err != nil {
				log.Printf("[billing] sync invoices by subscription %s: user=%d err=%v", sub.ID, user.ID, err)
				continue
			}
			found += s.applyInvoices(user.ID, invs)
		}
	}

	if found == 0 {
		sessions, err := s.client.ListCheckoutSessions(ctx, "", s.cfg.Billing.SessionScanLimit)
		if err != nil {
			log.Printf("[billing] sync invoices: session scan: user=%d err=%v", user.ID, err)
		}
		want := billing.FormatUserID(user.ID)
		for _, sess := range sessions {
			if sess.Metadata[domain.MetaUserID] != want || sess.SubscriptionID == "" {
				continue
			}
			invs, err := s.client.ListPaidInvoices(ctx, "", sess.SubscriptionID, s.cfg.Billing.PageLimit)
			if err != nil {
				log.Printf("[billing] sync invoices via session %s: user=%d err=%v", sess.ID, user.ID, err)
				continue
			}
			found += s.applyInvoices(user.ID, invs)
		}
	}

	s.rebuildSyntheticInvoices(user.ID, txns)
}

func (s *BillingService) applyInvoices(userID uint, invs []*billing.Invoice) int {
	for _, inv := range invs {
		if inv.AmountPaid > 0 && inv.RefundedCents >= inv.AmountPaid {
			// refunded in full: drop the local mirror
			if err := s.invoices.DeleteByStripeID(inv.ID); err != nil {
				log.Printf("[billing] delete refunded invoice %s: err=%v", inv.ID, err)
			}
			continue
		}
		desc := inv.Description
		if desc == "" {
			desc = "Premium subscription"
		}
		err := s.invoices.Upsert(&models.Invoice{
			StripeInvoiceID: inv.ID,
			UserID:          userID,
			AmountCents:     inv.AmountPaid,
			Currency:        inv.Currency,
			Status:          "paid",
			Description:     desc,
			InvoiceDate:     inv.Created,
		})
		if err != nil {
			log.Printf("[billing] upsert invoice %s: user=%d err=%v", inv.ID, userID, err)
		}
	}
	return len(invs)
}

// rebuildSyntheticInvoices re-mints local invoice records for balance
// debits tagged as premium purchases. The synthetic id "balance_<txn>"
// keeps the purchase flow idempotent across retries.
func (s *BillingService) rebuildSyntheticInvoices(userID uint, txns []*billing.BalanceTransaction) {
	want := billing.FormatUserID(userID)
	for _, t := range txns {
		if t.Amount <= 0 || t.Metadata[domain.MetaType] != domain.TxnTypePremiumPurchase {
			continue
		}
		if uid := t.Metadata[domain.MetaUserID]; uid != "" && uid != want {
			continue
		}
		err := s.invoices.Upsert(&models.Invoice{
			StripeInvoiceID: repository.SyntheticInvoicePrefix + t.ID,
			UserID:          userID,
			AmountCents:     t.Amount,
			Currency:        t.Currency,
			Status:          "paid",
			Description:     "Premium purchase (account balance)",
			InvoiceDate:     t.Created,
		})
		if err != nil {
			log.Printf("[billing] rebuild synthetic invoice for txn %s: user=%d err=%v", t.ID, userID, err)
		}
	}
}
