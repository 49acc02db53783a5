// Package billing wraps the external billing provider behind a small
// client interface so services and tests never touch the SDK directly.
package billing

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("billing provider not configured")

// Customer mirrors the provider-side customer object. Balance follows the
// provider sign convention: negative cents are credit available to spend.
type Customer struct {
	ID       string
	Email    string
	Balance  int64
	Deleted  bool
	Metadata map[string]string
}

type CheckoutSession struct {
	ID             string
	Status         string // "complete" once paid
	CustomerID     string
	SubscriptionID string
	AmountTotal    int64
	Created        time.Time
	Metadata       map[string]string
}

type Subscription struct {
	ID               string
	Status           string
	CurrentPeriodEnd time.Time
	AmountCents      int64 // unit amount of the first item's price
	Metadata         map[string]string
}

type Invoice struct {
	ID            string
	AmountPaid    int64
	RefundedCents int64 // credit notes issued against the invoice
	Currency      string
	Created       time.Time
	Description   string
}

// BalanceTransaction is a signed balance adjustment: negative = credit
// granted to the customer, positive = debit spent from it.
type BalanceTransaction struct {
	ID          string
	Amount      int64
	Currency    string
	Created     time.Time
	Description string
	Metadata    map[string]string
}

const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

type CheckoutParams struct {
	CustomerID    string
	CustomerEmail string
	Mode          string
	AmountCents   int64 // one-off payment amount (ModePayment)
	PriceID       string
	ProductName   string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Client is the provider surface the app depends on. Implemented by the
// real Stripe client and by the in-memory fake used in tests.
type Client interface {
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomersByEmail(ctx context.Context, email string, limit int) ([]*Customer, error)
	SearchCustomersByUserID(ctx context.Context, userID uint, limit int) ([]*Customer, error)

	// ListCheckoutSessions lists sessions for a customer, or scans the
	// most recent sessions account-wide when customerID is empty.
	ListCheckoutSessions(ctx context.Context, customerID string, limit int) ([]*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (url string, err error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (url string, err error)

	// ListSubscriptions filters by status when status is non-empty.
	ListSubscriptions(ctx context.Context, customerID, status string, limit int) ([]*Subscription, error)

	// ListPaidInvoices lists by customer, or by subscription when
	// customerID is empty and subscriptionID is set.
	ListPaidInvoices(ctx context.Context, customerID, subscriptionID string, limit int) ([]*Invoice, error)

	ListBalanceTransactions(ctx context.Context, customerID string, limit int) ([]*BalanceTransaction, error)
	CreateBalanceTransaction(ctx context.Context, customerID string, amountCents int64, currency, description string, metadata map[string]string) (*BalanceTransaction, error)
}
