package service

import (
	"context"
	"fmt"
	"log"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/pkg/billing"
)

// PurchasePremium buys the premium entitlement with account balance:
// debit, record a synthetic invoice, flip the flag. Each step is written
// so a retry after a partial failure resumes instead of double-charging:
// an orphaned debit (one with no synthetic invoice yet) is adopted rather
// than debiting again.
func (s *BillingService) PurchasePremium(ctx context.Context, user *models.User) error {
	price := s.PremiumPriceCents()

	bc, err := s.customers.GetByUserID(user.ID)
	if err != nil {
		return ErrNoBillingCustomer
	}
	cust, err := s.client.GetCustomer(ctx, bc.StripeCustomerID)
	if err != nil {
		return fmt.Errorf("look up billing account: %w", err)
	}
	if cust.Deleted {
		return ErrCustomerGone
	}

	// An adoptable orphaned debit means the money already left the
	// balance, so the balance check only applies to fresh debits.
	txnID := s.findOrphanedDebit(ctx, user, cust.ID, price)
	if txnID == "" {
		// provider balance is negative when the customer holds credit
		available := -cust.Balance
		if available < price {
			return fmt.Errorf("%w: need $%.2f more", ErrInsufficientBalance, float64(price-available)/100)
		}
		txn, err := s.client.CreateBalanceTransaction(ctx, cust.ID, price, s.cfg.Billing.Currency,
			"Premium purchase (account balance)", map[string]string{
				domain.MetaUserID: billing.FormatUserID(user.ID),
				domain.MetaType:   domain.TxnTypePremiumPurchase,
			})
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		txnID = txn.ID
	} else {
		log.Printf("[billing] purchase: resuming from orphaned debit %s for user=%d", txnID, user.ID)
	}

	inv := &models.Invoice{
		StripeInvoiceID: repository.SyntheticInvoicePrefix + txnID,
		UserID:          user.ID,
		AmountCents:     price,
		Currency:        s.cfg.Billing.Currency,
		Status:          "paid",
		Description:     "Premium purchase (account balance)",
		InvoiceDate:     s.now(),
	}
	if err := s.invoices.Upsert(inv); err != nil {
		return fmt.Errorf("balance was debited (txn %s) but the receipt could not be recorded; retry to finish: %w", txnID, err)
	}

	if err := s.users.SetEntitlement(user.ID, true, nil); err != nil {
		return fmt.Errorf("purchase recorded (txn %s) but premium could not be activated; retry to finish: %w", txnID, err)
	}
	user.IsPremium = true
	user.SubscriptionAmountCents = nil

	log.Printf("[billing] user=%d purchased premium for %d cents from balance (txn %s)", user.ID, price, txnID)
	if s.notif != nil {
		_ = s.notif.NotifyPremiumGranted(user.ID)
	}
	return nil
}

// findOrphanedDebit looks for a premium-purchase debit from a previous
// attempt that never got its synthetic invoice. Debits that already have
// one are settled purchases and are left alone.
func (s *BillingService) findOrphanedDebit(ctx context.Context, user *models.User, customerID string, price int64) string {
	txns, err := s.client.ListBalanceTransactions(ctx, customerID, s.cfg.Billing.PageLimit)
	if err != nil {
		log.Printf("[billing] purchase: list transactions: user=%d err=%v", user.ID, err)
		return ""
	}
	want := billing.FormatUserID(user.ID)
	for _, t := range txns {
		if t.Amount != price || t.Metadata[domain.MetaType] != domain.TxnTypePremiumPurchase {
			continue
		}
		if uid := t.Metadata[domain.MetaUserID]; uid != "" && uid != want {
			continue
		}
		if _, err := s.invoices.GetByStripeID(repository.SyntheticInvoicePrefix + t.ID); err == nil {
			continue
		}
		return t.ID
	}
	return ""
}
