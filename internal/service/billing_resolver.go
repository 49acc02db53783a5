package service

import (
	"context"
	"fmt"
	"log"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/pkg/billing"
)

// resolverStrategy is one way to find the provider customer for a user.
// Returning "" means not found; an error is logged and treated the same.
type resolverStrategy struct {
	name string
	fn   func(ctx context.Context, user *models.User) (string, error)
}

func (s *BillingService) resolverStrategies() []resolverStrategy {
	return []resolverStrategy{
		{"local_link", s.resolveByLocalLink},
		{"email", s.resolveByEmail},
		{"metadata_search", s.resolveByMetadata},
		{"session_scan", s.resolveBySessionScan},
	}
}

// ResolveCustomer walks the strategy chain in precedence order. The first
// hit that survives the liveness check wins and is persisted as the user's
// link. When the resolved customer turns out deleted at the provider, a
// replacement is minted and the dead record's balance is captured so the
// caller can still report it this request.
func (s *BillingService) ResolveCustomer(ctx context.Context, user *models.User) (string, *int64) {
	for _, strat := range s.resolverStrategies() {
		id, err := strat.fn(ctx, user)
		if err != nil {
			log.Printf("[billing] resolver %s: user=%d err=%v", strat.name, user.ID, err)
			continue
		}
		if id == "" {
			continue
		}
		cust, err := s.client.GetCustomer(ctx, id)
		if err != nil {
			log.Printf("[billing] resolver %s: user=%d customer %s lookup failed: %v", strat.name, user.ID, id, err)
			continue
		}
		var captured *int64
		if cust.Deleted {
			bal := cust.Balance
			repl, err := s.mintCustomer(ctx, user)
			if err != nil {
				log.Printf("[billing] resolver %s: user=%d replace deleted customer %s: %v", strat.name, user.ID, id, err)
				continue
			}
			log.Printf("[billing] replaced deleted customer %s with %s for user=%d", id, repl.ID, user.ID)
			id = repl.ID
			captured = &bal
		}
		if err := s.customers.Upsert(user.ID, id); err != nil {
			// the id is still good for this request
			log.Printf("[billing] persist customer link: user=%d err=%v", user.ID, err)
		}
		return id, captured
	}
	return "", nil
}

// ResolveOrCreateCustomer is ResolveCustomer with a mint fallback, for
// callers that cannot proceed without a customer (checkout creation).
func (s *BillingService) ResolveOrCreateCustomer(ctx context.Context, user *models.User) (string, error) {
	if id, _ := s.ResolveCustomer(ctx, user); id != "" {
		return id, nil
	}
	cust, err := s.mintCustomer(ctx, user)
	if err != nil {
		return "", fmt.Errorf("create billing customer: %w", err)
	}
	if err := s.customers.Upsert(user.ID, cust.ID); err != nil {
		log.Printf("[billing] persist customer link: user=%d err=%v", user.ID, err)
	}
	return cust.ID, nil
}

func (s *BillingService) mintCustomer(ctx context.Context, user *models.User) (*billing.Customer, error) {
	return s.client.CreateCustomer(ctx, user.Email, map[string]string{
		domain.MetaUserID: billing.FormatUserID(user.ID),
	})
}

func (s *BillingService) resolveByLocalLink(_ context.Context, user *models.User) (string, error) {
	bc, err := s.customers.GetByUserID(user.ID)
	if err != nil {
		return "", nil // no link yet, not an error
	}
	return bc.StripeCustomerID, nil
}

func (s *BillingService) resolveByEmail(ctx context.Context, user *models.User) (string, error) {
	if user.Email == "" {
		return "", nil
	}
	custs, err := s.client.ListCustomersByEmail(ctx, user.Email, 1)
	if err != nil || len(custs) == 0 {
		return "", err
	}
	return custs[0].ID, nil
}

func (s *BillingService) resolveByMetadata(ctx context.Context, user *models.User) (string, error) {
	custs, err := s.client.SearchCustomersByUserID(ctx, user.ID, 1)
	if err != nil || len(custs) == 0 {
		return "", err
	}
	return custs[0].ID, nil
}

// resolveBySessionScan is the last resort: scan recent checkout sessions
// account-wide for one tagged with this user's id.
func (s *BillingService) resolveBySessionScan(ctx context.Context, user *models.User) (string, error) {
	sessions, err := s.client.ListCheckoutSessions(ctx, "", s.cfg.Billing.SessionScanLimit)
	if err != nil {
		return "", err
	}
	want := billing.FormatUserID(user.ID)
	for _, sess := range sessions {
		if sess.Metadata[domain.MetaUserID] == want && sess.CustomerID != "" {
			return sess.CustomerID, nil
		}
	}
	return "", nil
}
