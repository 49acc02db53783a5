package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strconv"
	"time"

	"propdesk/config"
	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/pkg/billing"
)

var (
	ErrNoBillingCustomer   = errors.New("no billing account on file; add balance first")
	ErrCustomerGone        = errors.New("billing account was closed; add balance to reopen it")
	ErrInsufficientBalance = errors.New("insufficient account balance")
)

// BillingService reconciles local users against the external billing
// provider: customer identity, invoice mirroring, balance credits and the
// premium entitlement all flow through here.
type BillingService struct {
	cfg       *config.Config
	client    billing.Client
	customers *repository.BillingCustomerRepository
	invoices  *repository.InvoiceRepository
	users     *repository.UserRepository
	settings  *repository.SettingRepository
	notif     *NotificationService

	now func() time.Time
}

func NewBillingService(
	cfg *config.Config,
	client billing.Client,
	customers *repository.BillingCustomerRepository,
	invoices *repository.InvoiceRepository,
	users *repository.UserRepository,
	settings *repository.SettingRepository,
	notif *NotificationService,
) *BillingService {
	return &BillingService{
		cfg:       cfg,
		client:    client,
		customers: customers,
		invoices:  invoices,
		users:     users,
		settings:  settings,
		notif:     notif,
		now:       time.Now,
	}
}

// PremiumPriceCents is the balance price of premium, admin-overridable via
// system settings.
func (s *BillingService) PremiumPriceCents() int64 {
	if s.settings != nil {
		if v, err := s.settings.Get(domain.SettingPremiumPriceCents); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil && n > 0 {
				return n
			}
		}
	}
	return s.cfg.Billing.PremiumPriceCents
}

type TransactionRow struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"` // dollars, always positive
	Currency    string    `json:"currency"`
	Type        string    `json:"type"` // credit | debit
	Description string    `json:"description"`
}

type SubscriptionInfo struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	AmountCents      int64     `json:"amount_cents"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

type Overview struct {
	Transactions            []TransactionRow  `json:"transactions"`
	Invoices                []models.Invoice  `json:"invoices"`
	BalanceCents            *int64            `json:"balance_cents"`
	IsPremium               bool              `json:"is_premium"`
	SubscriptionAmountCents *int64            `json:"subscription_amount_cents"`
	Subscription            *SubscriptionInfo `json:"subscription,omitempty"`
	CustomerID              string            `json:"customer_id,omitempty"` // debug mode only
}

// Overview runs the full reconciliation pipeline for one user's request:
// resolve the customer, mirror invoices, backfill missed balance credits,
// derive the entitlement, then assemble the response. External failures
// degrade to whatever local state we have; they never fail the request.
func (s *BillingService) Overview(ctx context.Context, user *models.User) (*Overview, error) {
	customerID, captured := s.ResolveCustomer(ctx, user)

	var txns []*billing.BalanceTransaction
	if customerID != "" {
		t, err := s.client.ListBalanceTransactions(ctx, customerID, s.cfg.Billing.PageLimit)
		if err != nil {
			log.Printf("[billing] list balance transactions: user=%d err=%v", user.ID, err)
		} else {
			txns = t
		}
	}

	s.SyncInvoices(ctx, user, customerID, txns)

	if customerID != "" {
		if credited := s.BackfillBalanceCredits(ctx, user, customerID, txns); credited > 0 {
			// refresh so this response already shows the new credits
			if t, err := s.client.ListBalanceTransactions(ctx, customerID, s.cfg.Billing.PageLimit); err == nil {
				txns = t
			}
		}
	}

	ent := s.DeriveEntitlement(ctx, user, customerID, captured)

	invs, err := s.invoices.ListByUserID(user.ID, s.cfg.Billing.PageLimit)
	if err != nil {
		log.Printf("[billing] list local invoices: user=%d err=%v", user.ID, err)
	}

	ov := &Overview{
		Transactions:            mapTransactions(txns),
		Invoices:                invs,
		BalanceCents:            ent.BalanceCents,
		IsPremium:               ent.IsPremium,
		SubscriptionAmountCents: ent.SubscriptionAmountCents,
		Subscription:            ent.Subscription,
	}
	if s.cfg.Billing.Debug {
		ov.CustomerID = customerID
	}
	return ov, nil
}

// mapTransactions converts provider balance transactions to display rows.
// Negative provider amounts are credit granted to the customer, shown as a
// positive "credit"; positive amounts are spend, shown as "debit".
func mapTransactions(txns []*billing.BalanceTransaction) []TransactionRow {
	rows := make([]TransactionRow, 0, len(txns))
	for _, t := range txns {
		row := TransactionRow{
			ID:          t.ID,
			Date:        t.Created,
			Currency:    t.Currency,
			Description: t.Description,
		}
		if t.Amount < 0 {
			row.Type = "credit"
			row.Amount = float64(-t.Amount) / 100
		} else {
			row.Type = "debit"
			row.Amount = float64(t.Amount) / 100
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows
}
