package billing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeClient is an in-memory Client for tests and local development.
// Seed state directly through the exported helpers, inject failures per
// operation via FailOn.
type FakeClient struct {
	mu sync.Mutex

	Customers     map[string]*Customer
	Sessions      []*CheckoutSession
	Subscriptions map[string][]*Subscription       // customer id -> subs
	Invoices      map[string][]*Invoice            // customer id or subscription id -> invoices
	Transactions  map[string][]*BalanceTransaction // customer id -> txns

	// FailOn maps an operation name ("GetCustomer", "ListPaidInvoices",
	// "CreateBalanceTransaction", ...) to the error it should return.
	FailOn map[string]error

	Now func() time.Time

	nextID int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Customers:     map[string]*Customer{},
		Subscriptions: map[string][]*Subscription{},
		Invoices:      map[string][]*Invoice{},
		Transactions:  map[string][]*BalanceTransaction{},
		FailOn:        map[string]error{},
		Now:           time.Now,
	}
}

func (f *FakeClient) fail(op string) error { return f.FailOn[op] }

func (f *FakeClient) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%04d", prefix, f.nextID)
}

// AddCustomer seeds a customer and returns it for further mutation.
func (f *FakeClient) AddCustomer(email string, balance int64, metadata map[string]string) *Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Customer{ID: f.id("cus"), Email: email, Balance: balance, Metadata: metadata}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	f.Customers[c.ID] = c
	return c
}

func (f *FakeClient) AddSession(s *CheckoutSession) *CheckoutSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = f.id("cs")
	}
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}
	f.Sessions = append(f.Sessions, s)
	return s
}

func (f *FakeClient) AddSubscription(customerID string, s *Subscription) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = f.id("sub")
	}
	f.Subscriptions[customerID] = append(f.Subscriptions[customerID], s)
	return s
}

func (f *FakeClient) AddInvoice(key string, inv *Invoice) *Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv.ID == "" {
		inv.ID = f.id("in")
	}
	f.Invoices[key] = append(f.Invoices[key], inv)
	return inv
}

func (f *FakeClient) CreateCustomer(_ context.Context, email string, metadata map[string]string) (*Customer, error) {
	if err := f.fail("CreateCustomer"); err != nil {
		return nil, err
	}
	return f.AddCustomer(email, 0, metadata), nil
}

func (f *FakeClient) GetCustomer(_ context.Context, id string) (*Customer, error) {
	if err := f.fail("GetCustomer"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Customers[id]
	if !ok {
		return nil, fmt.Errorf("fake billing: no such customer %s", id)
	}
	cp := *c
	return &cp, nil
}

func (f *FakeClient) ListCustomersByEmail(_ context.Context, email string, limit int) ([]*Customer, error) {
	if err := f.fail("ListCustomersByEmail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Customer
	for _, c := range f.Customers {
		if c.Email == email && !c.Deleted && len(out) < limit {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeClient) SearchCustomersByUserID(_ context.Context, userID uint, limit int) ([]*Customer, error) {
	if err := f.fail("SearchCustomersByUserID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	want := FormatUserID(userID)
	var out []*Customer
	for _, c := range f.Customers {
		if c.Metadata["user_id"] == want && !c.Deleted && len(out) < limit {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeClient) ListCheckoutSessions(_ context.Context, customerID string, limit int) ([]*CheckoutSession, error) {
	if err := f.fail("ListCheckoutSessions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*CheckoutSession
	for i := len(f.Sessions) - 1; i >= 0 && len(out) < limit; i-- {
		s := f.Sessions[i]
		if customerID == "" || s.CustomerID == customerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeClient) CreateCheckoutSession(_ context.Context, p CheckoutParams) (string, error) {
	if err := f.fail("CreateCheckoutSession"); err != nil {
		return "", err
	}
	s := f.AddSession(&CheckoutSession{
		Status:      "open",
		CustomerID:  p.CustomerID,
		AmountTotal: p.AmountCents,
		Created:     f.Now(),
		Metadata:    p.Metadata,
	})
	return "https://checkout.fake.local/" + s.ID, nil
}

func (f *FakeClient) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	if err := f.fail("CreatePortalSession"); err != nil {
		return "", err
	}
	return "https://portal.fake.local/" + customerID, nil
}

func (f *FakeClient) ListSubscriptions(_ context.Context, customerID, status string, limit int) ([]*Subscription, error) {
	if err := f.fail("ListSubscriptions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Subscription
	for _, s := range f.Subscriptions[customerID] {
		if status != "" && s.Status != status {
			continue
		}
		if len(out) >= limit {
			break
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeClient) ListPaidInvoices(_ context.Context, customerID, subscriptionID string, limit int) ([]*Invoice, error) {
	if err := f.fail("ListPaidInvoices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := customerID
	if key == "" {
		key = subscriptionID
	}
	var out []*Invoice
	for _, inv := range f.Invoices[key] {
		if len(out) >= limit {
			break
		}
		cp := *inv
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeClient) ListBalanceTransactions(_ context.Context, customerID string, limit int) ([]*BalanceTransaction, error) {
	if err := f.fail("ListBalanceTransactions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	txns := f.Transactions[customerID]
	var out []*BalanceTransaction
	for i := len(txns) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *txns[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeClient) CreateBalanceTransaction(_ context.Context, customerID string, amountCents int64, currency, description string, metadata map[string]string) (*BalanceTransaction, error) {
	if err := f.fail("CreateBalanceTransaction"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Customers[customerID]
	if !ok {
		return nil, fmt.Errorf("fake billing: no such customer %s", customerID)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	t := &BalanceTransaction{
		ID:          f.id("cbtxn"),
		Amount:      amountCents,
		Currency:    currency,
		Created:     f.Now(),
		Description: description,
		Metadata:    metadata,
	}
	f.Transactions[customerID] = append(f.Transactions[customerID], t)
	c.Balance += amountCents
	return t, nil
}
