package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// StripeClient implements Client against the Stripe API.
type StripeClient struct {
	sc *client.API
}

func NewStripeClient(apiKey string) *StripeClient {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeClient{sc: sc}
}

func (s *StripeClient) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	c, err := s.sc.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create customer: %w", err)
	}
	return customerFromStripe(c), nil
}

func (s *StripeClient) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := s.sc.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get customer %s: %w", id, err)
	}
	return customerFromStripe(c), nil
}

func (s *StripeClient) ListCustomersByEmail(ctx context.Context, email string, limit int) ([]*Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	var out []*Customer
	it := s.sc.Customers.List(params)
	for it.Next() {
		out = append(out, customerFromStripe(it.Customer()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list customers by email: %w", err)
	}
	return out, nil
}

func (s *StripeClient) SearchCustomersByUserID(ctx context.Context, userID uint, limit int) ([]*Customer, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf(`metadata["user_id"]:"%d"`, userID),
			Limit:   stripe.Int64(int64(limit)),
			Context: ctx,
		},
	}
	var out []*Customer
	it := s.sc.Customers.Search(params)
	for it.Next() {
		out = append(out, customerFromStripe(it.Customer()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: search customers: %w", err)
	}
	return out, nil
}

func (s *StripeClient) ListCheckoutSessions(ctx context.Context, customerID string, limit int) ([]*CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	var out []*CheckoutSession
	it := s.sc.CheckoutSessions.List(params)
	for it.Next() {
		out = append(out, sessionFromStripe(it.CheckoutSession()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list checkout sessions: %w", err)
	}
	return out, nil
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(p.Mode),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	switch p.Mode {
	case ModeSubscription:
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.PriceID),
			Quantity: stripe.Int64(1),
		}}
	default:
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.ProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := s.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *StripeClient) ListSubscriptions(ctx context.Context, customerID, status string, limit int) ([]*Subscription, error) {
	params := &stripe.SubscriptionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	if status != "" {
		params.Status = stripe.String(status)
	}
	var out []*Subscription
	it := s.sc.Subscriptions.List(params)
	for it.Next() {
		out = append(out, subscriptionFromStripe(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list subscriptions: %w", err)
	}
	return out, nil
}

func (s *StripeClient) ListPaidInvoices(ctx context.Context, customerID, subscriptionID string, limit int) ([]*Invoice, error) {
	params := &stripe.InvoiceListParams{Status: stripe.String(string(stripe.InvoiceStatusPaid))}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else if subscriptionID != "" {
		params.Subscription = stripe.String(subscriptionID)
	}
	var out []*Invoice
	it := s.sc.Invoices.List(params)
	for it.Next() {
		out = append(out, invoiceFromStripe(it.Invoice()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list invoices: %w", err)
	}
	return out, nil
}

func (s *StripeClient) ListBalanceTransactions(ctx context.Context, customerID string, limit int) ([]*BalanceTransaction, error) {
	params := &stripe.CustomerBalanceTransactionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	var out []*BalanceTransaction
	it := s.sc.CustomerBalanceTransactions.List(params)
	for it.Next() {
		out = append(out, balanceTxnFromStripe(it.CustomerBalanceTransaction()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list balance transactions: %w", err)
	}
	return out, nil
}

func (s *StripeClient) CreateBalanceTransaction(ctx context.Context, customerID string, amountCents int64, currency, description string, metadata map[string]string) (*BalanceTransaction, error) {
	params := &stripe.CustomerBalanceTransactionParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	t, err := s.sc.CustomerBalanceTransactions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create balance transaction: %w", err)
	}
	return balanceTxnFromStripe(t), nil
}

func customerFromStripe(c *stripe.Customer) *Customer {
	return &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Balance:  c.Balance,
		Deleted:  c.Deleted,
		Metadata: c.Metadata,
	}
}

func sessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:          s.ID,
		Status:      string(s.Status),
		AmountTotal: s.AmountTotal,
		Created:     time.Unix(s.Created, 0),
		Metadata:    s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out
}

func subscriptionFromStripe(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:               s.ID,
		Status:           string(s.Status),
		CurrentPeriodEnd: time.Unix(s.CurrentPeriodEnd, 0),
		Metadata:         s.Metadata,
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		out.AmountCents = s.Items.Data[0].Price.UnitAmount
	}
	return out
}

func invoiceFromStripe(i *stripe.Invoice) *Invoice {
	return &Invoice{
		ID:            i.ID,
		AmountPaid:    i.AmountPaid,
		RefundedCents: i.PrePaymentCreditNotesAmount + i.PostPaymentCreditNotesAmount,
		Currency:      string(i.Currency),
		Created:       time.Unix(i.Created, 0),
		Description:   i.Description,
	}
}

func balanceTxnFromStripe(t *stripe.CustomerBalanceTransaction) *BalanceTransaction {
	return &BalanceTransaction{
		ID:          t.ID,
		Amount:      t.Amount,
		Currency:    string(t.Currency),
		Created:     time.Unix(t.Created, 0),
		Description: t.Description,
		Metadata:    t.Metadata,
	}
}

// FormatUserID renders a user id the way checkout metadata stores it.
func FormatUserID(id uint) string { return strconv.FormatUint(uint64(id), 10) }
