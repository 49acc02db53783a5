package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"propdesk/config"
	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/pkg/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// named in-memory db so every pooled connection sees the same data
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.BillingCustomer{},
		&models.Invoice{},
		&models.WebhookEvent{},
		&models.Notification{},
		&models.SystemSetting{},
		&models.Prop{},
		&models.PropResult{},
		&models.UserModel{},
		&models.WatchlistEntry{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{
			Currency:          "usd",
			PremiumPriceCents: 1999,
			MinTopUpCents:     500,
			BackfillGrace:     90 * time.Second,
			PageLimit:         100,
			SessionScanLimit:  100,
		},
	}
}

type billingFixture struct {
	svc       *BillingService
	fake      *billing.FakeClient
	users     *repository.UserRepository
	customers *repository.BillingCustomerRepository
	invoices  *repository.InvoiceRepository
	settings  *repository.SettingRepository
	user      *models.User
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	db := newTestDB(t)
	fx := &billingFixture{
		fake:      billing.NewFakeClient(),
		users:     repository.NewUserRepository(db),
		customers: repository.NewBillingCustomerRepository(db),
		invoices:  repository.NewInvoiceRepository(db),
		settings:  repository.NewSettingRepository(db),
	}
	fx.svc = NewBillingService(testConfig(), fx.fake, fx.customers, fx.invoices, fx.users, fx.settings, nil)
	fx.user = &models.User{Username: "fan", Email: "fan@example.com", Role: domain.RoleMember}
	require.NoError(t, fx.users.Create(fx.user))
	return fx
}

func (fx *billingFixture) userTag() string { return billing.FormatUserID(fx.user.ID) }

// --- resolver ---

func TestResolveCustomerPrefersLocalLink(t *testing.T) {
	fx := newBillingFixture(t)
	linked := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddCustomer("fan@example.com", 0, nil) // same email, never linked
	require.NoError(t, fx.customers.Upsert(fx.user.ID, linked.ID))

	id, captured := fx.svc.ResolveCustomer(context.Background(), fx.user)
	assert.Equal(t, linked.ID, id)
	assert.Nil(t, captured)
}

func TestResolveCustomerByEmailPersistsLink(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)

	id, _ := fx.svc.ResolveCustomer(context.Background(), fx.user)
	require.Equal(t, cust.ID, id)

	bc, err := fx.customers.GetByUserID(fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, cust.ID, bc.StripeCustomerID)
}

func TestResolveCustomerByMetadata(t *testing.T) {
	fx := newBillingFixture(t)
	// email changed since the customer was minted, metadata still matches
	cust := fx.fake.AddCustomer("old@example.com", 0, map[string]string{
		domain.MetaUserID: fx.userTag(),
	})

	id, _ := fx.svc.ResolveCustomer(context.Background(), fx.user)
	assert.Equal(t, cust.ID, id)
}

func TestResolveCustomerBySessionScan(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("old@example.com", 0, nil)
	fx.fake.AddSession(&billing.CheckoutSession{
		Status:     "complete",
		CustomerID: cust.ID,
		Metadata:   map[string]string{domain.MetaUserID: fx.userTag()},
	})

	id, _ := fx.svc.ResolveCustomer(context.Background(), fx.user)
	assert.Equal(t, cust.ID, id)
}

func TestResolveCustomerReplacesDeleted(t *testing.T) {
	fx := newBillingFixture(t)
	dead := fx.fake.AddCustomer("fan@example.com", -3000, nil)
	dead.Deleted = true
	require.NoError(t, fx.customers.Upsert(fx.user.ID, dead.ID))

	id, captured := fx.svc.ResolveCustomer(context.Background(), fx.user)
	require.NotEmpty(t, id)
	assert.NotEqual(t, dead.ID, id)
	require.NotNil(t, captured)
	assert.Equal(t, int64(-3000), *captured)

	bc, err := fx.customers.GetByUserID(fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, id, bc.StripeCustomerID, "link should point at the replacement")
}

func TestResolveCustomerNothingFound(t *testing.T) {
	fx := newBillingFixture(t)
	id, captured := fx.svc.ResolveCustomer(context.Background(), fx.user)
	assert.Empty(t, id)
	assert.Nil(t, captured)
}

func TestResolveOrCreateCustomerMints(t *testing.T) {
	fx := newBillingFixture(t)
	id, err := fx.svc.ResolveOrCreateCustomer(context.Background(), fx.user)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cust, err := fx.fake.GetCustomer(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, fx.userTag(), cust.Metadata[domain.MetaUserID])
}

// --- invoice sync ---

func TestSyncInvoicesConverges(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddInvoice(cust.ID, &billing.Invoice{
		AmountPaid: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
	})

	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)

	invs, err := fx.invoices.ListByUserID(fx.user.ID, 100)
	require.NoError(t, err)
	require.Len(t, invs, 1, "repeated syncs must not duplicate")
	assert.Equal(t, int64(1999), invs[0].AmountCents)
	assert.Equal(t, "Premium subscription", invs[0].Description)
}

func TestSyncInvoicesRemovesFullyRefunded(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	inv := fx.fake.AddInvoice(cust.ID, &billing.Invoice{
		AmountPaid: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
	})

	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	invs, _ := fx.invoices.ListByUserID(fx.user.ID, 100)
	require.Len(t, invs, 1)

	inv.RefundedCents = 1999
	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	invs, _ = fx.invoices.ListByUserID(fx.user.ID, 100)
	assert.Empty(t, invs)
}

func TestSyncInvoicesSubscriptionFallback(t *testing.T) {
	fx := newBillingFixture(t)
	// invoices live under the subscription, not the customer, which is
	// what a re-minted customer looks like
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	sub := fx.fake.AddSubscription(cust.ID, &billing.Subscription{Status: "active"})
	fx.fake.AddInvoice(sub.ID, &billing.Invoice{
		AmountPaid: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
	})

	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	invs, err := fx.invoices.ListByUserID(fx.user.ID, 100)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
}

func TestSyncInvoicesSessionScanFallback(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddSession(&billing.CheckoutSession{
		Status:         "complete",
		SubscriptionID: "sub_orphan",
		Metadata:       map[string]string{domain.MetaUserID: fx.userTag()},
	})
	fx.fake.AddInvoice("sub_orphan", &billing.Invoice{
		AmountPaid: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
	})

	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	invs, err := fx.invoices.ListByUserID(fx.user.ID, 100)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
}

func TestSyncRebuildsSyntheticInvoices(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	txns := []*billing.BalanceTransaction{{
		ID: "txn_1", Amount: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
		Metadata: map[string]string{
			domain.MetaType:   domain.TxnTypePremiumPurchase,
			domain.MetaUserID: fx.userTag(),
		},
	}}

	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, txns)
	_, err := fx.invoices.GetByStripeID(repository.SyntheticInvoicePrefix + "txn_1")
	require.NoError(t, err)

	// the debit disappears from the provider (refund): next sync drops it
	fx.svc.SyncInvoices(context.Background(), fx.user, cust.ID, nil)
	_, err = fx.invoices.GetByStripeID(repository.SyntheticInvoicePrefix + "txn_1")
	assert.Error(t, err)
}

// --- balance credit backfill ---

func completedTopUpSession(fx *billingFixture, custID string, amount int64, created time.Time) *billing.CheckoutSession {
	return fx.fake.AddSession(&billing.CheckoutSession{
		Status:      "complete",
		CustomerID:  custID,
		AmountTotal: amount,
		Created:     created,
		Metadata: map[string]string{
			domain.MetaUserID:      fx.userTag(),
			domain.MetaType:        domain.CheckoutTypeBalanceCredit,
			domain.MetaAmountCents: fmt.Sprintf("%d", amount),
		},
	})
}

func TestBackfillCreditsMissedSessionOnce(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	completedTopUpSession(fx, cust.ID, 5000, time.Now().Add(-10*time.Minute))

	granted := fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Equal(t, 1, granted)

	got, err := fx.fake.GetCustomer(context.Background(), cust.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), got.Balance)

	granted = fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Zero(t, granted, "second pass must see the session-id tag and skip")
	got, _ = fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-5000), got.Balance)
}

func TestBackfillLeavesFreshSessionsForWebhook(t *testing.T) {
	fx := newBillingFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fx.svc.now = func() time.Time { return now }
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	completedTopUpSession(fx, cust.ID, 5000, now.Add(-30*time.Second))

	granted := fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Zero(t, granted)

	// past the grace window the same session is credited
	fx.svc.now = func() time.Time { return now.Add(2 * time.Minute) }
	granted = fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Equal(t, 1, granted)
}

func TestBackfillSkipsIncompleteAndForeignSessions(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	open := completedTopUpSession(fx, cust.ID, 5000, time.Now().Add(-10*time.Minute))
	open.Status = "open"
	subSess := completedTopUpSession(fx, cust.ID, 5000, time.Now().Add(-10*time.Minute))
	subSess.Metadata[domain.MetaType] = domain.CheckoutTypeSubscription

	granted := fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Zero(t, granted)
}

func TestBackfillAbortsWhenTransactionsUnavailable(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	completedTopUpSession(fx, cust.ID, 5000, time.Now().Add(-10*time.Minute))
	fx.fake.FailOn["ListBalanceTransactions"] = errors.New("provider down")

	granted := fx.svc.BackfillBalanceCredits(context.Background(), fx.user, cust.ID, nil)
	assert.Zero(t, granted, "cannot prove idempotency, must not credit")

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Zero(t, got.Balance)
}

func TestHandleCompletedCheckoutIdempotent(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	sess := completedTopUpSession(fx, cust.ID, 2500, time.Now())

	require.NoError(t, fx.svc.HandleCompletedCheckout(context.Background(), sess))
	require.NoError(t, fx.svc.HandleCompletedCheckout(context.Background(), sess))

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-2500), got.Balance)
}

func TestHandleCompletedCheckoutIgnoresSubscriptionSessions(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	sess := completedTopUpSession(fx, cust.ID, 2500, time.Now())
	sess.Metadata[domain.MetaType] = domain.CheckoutTypeSubscription

	require.NoError(t, fx.svc.HandleCompletedCheckout(context.Background(), sess))
	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Zero(t, got.Balance)
}

// --- entitlement ---

func activeSub(amount int64, end time.Time) *billing.Subscription {
	return &billing.Subscription{Status: "active", AmountCents: amount, CurrentPeriodEnd: end}
}

func TestDeriveEntitlementQualifyingSubscription(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddSubscription(cust.ID, activeSub(1999, time.Now().Add(30*24*time.Hour)))

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.True(t, ent.IsPremium)
	require.NotNil(t, ent.SubscriptionAmountCents)
	assert.Equal(t, int64(1999), *ent.SubscriptionAmountCents)

	stored, err := fx.users.GetByID(fx.user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPremium)
	require.NotNil(t, stored.SubscriptionAmountCents)
	assert.Equal(t, int64(1999), *stored.SubscriptionAmountCents)
}

func TestDeriveEntitlementBelowFloorDowngrades(t *testing.T) {
	fx := newBillingFixture(t)
	amt := int64(1999)
	require.NoError(t, fx.users.SetEntitlement(fx.user.ID, true, &amt))
	fx.user.IsPremium = true
	fx.user.SubscriptionAmountCents = &amt

	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddSubscription(cust.ID, activeSub(500, time.Now().Add(30*24*time.Hour)))

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.False(t, ent.IsPremium)

	stored, _ := fx.users.GetByID(fx.user.ID)
	assert.False(t, stored.IsPremium)
	assert.Nil(t, stored.SubscriptionAmountCents)
}

func TestDeriveEntitlementLapsedPeriodDowngrades(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.AddSubscription(cust.ID, activeSub(1999, time.Now().Add(-time.Hour)))

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.False(t, ent.IsPremium)
}

func TestDeriveEntitlementNoSubscriptionPreservesBalancePremium(t *testing.T) {
	fx := newBillingFixture(t)
	// premium bought with balance: flag set, no subscription amount
	require.NoError(t, fx.users.SetEntitlement(fx.user.ID, true, nil))
	fx.user.IsPremium = true
	cust := fx.fake.AddCustomer("fan@example.com", -1000, nil)

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.True(t, ent.IsPremium, "no subscription at all is not evidence of a lapse")

	stored, _ := fx.users.GetByID(fx.user.ID)
	assert.True(t, stored.IsPremium)
}

func TestDeriveEntitlementLookupFailureIsInconclusive(t *testing.T) {
	fx := newBillingFixture(t)
	require.NoError(t, fx.users.SetEntitlement(fx.user.ID, true, nil))
	fx.user.IsPremium = true
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	fx.fake.FailOn["ListSubscriptions"] = errors.New("provider down")

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.True(t, ent.IsPremium)

	stored, _ := fx.users.GetByID(fx.user.ID)
	assert.True(t, stored.IsPremium)
}

func TestDeriveEntitlementUsesFirstActiveSubscription(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	// a second active subscription is ignored: the first one decides
	fx.fake.AddSubscription(cust.ID, activeSub(500, time.Now().Add(30*24*time.Hour)))
	fx.fake.AddSubscription(cust.ID, activeSub(2499, time.Now().Add(30*24*time.Hour)))

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, nil)
	assert.False(t, ent.IsPremium)
	require.NotNil(t, ent.Subscription)
	assert.Equal(t, int64(500), ent.Subscription.AmountCents)
}

func TestDeriveEntitlementReportsCapturedBalance(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -100, nil)
	captured := int64(-3000)

	ent := fx.svc.DeriveEntitlement(context.Background(), fx.user, cust.ID, &captured)
	require.NotNil(t, ent.BalanceCents)
	assert.Equal(t, int64(-3000), *ent.BalanceCents, "captured balance wins over the live lookup")
}

// --- premium purchase from balance ---

func TestPurchasePremiumSuccess(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -5000, nil)
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	require.NoError(t, fx.svc.PurchasePremium(context.Background(), fx.user))

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-3001), got.Balance)

	stored, _ := fx.users.GetByID(fx.user.ID)
	assert.True(t, stored.IsPremium)
	assert.Nil(t, stored.SubscriptionAmountCents)

	invs, _ := fx.invoices.ListByUserID(fx.user.ID, 100)
	require.Len(t, invs, 1)
	assert.True(t, repository.IsSyntheticInvoiceID(invs[0].StripeInvoiceID))
	assert.Equal(t, int64(1999), invs[0].AmountCents)
}

func TestPurchasePremiumInsufficientBalance(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -1000, nil)
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	err := fx.svc.PurchasePremium(context.Background(), fx.user)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "9.99")

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-1000), got.Balance, "no partial debit")
}

func TestPurchasePremiumNoBillingCustomer(t *testing.T) {
	fx := newBillingFixture(t)
	err := fx.svc.PurchasePremium(context.Background(), fx.user)
	assert.ErrorIs(t, err, ErrNoBillingCustomer)
}

func TestPurchasePremiumDeletedCustomer(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -5000, nil)
	cust.Deleted = true
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	err := fx.svc.PurchasePremium(context.Background(), fx.user)
	assert.ErrorIs(t, err, ErrCustomerGone)
}

func TestPurchasePremiumResumesOrphanedDebit(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -5000, nil)
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	// a previous attempt debited the balance but crashed before writing
	// the receipt
	_, err := fx.fake.CreateBalanceTransaction(context.Background(), cust.ID, 1999, "usd",
		"Premium purchase (account balance)", map[string]string{
			domain.MetaUserID: fx.userTag(),
			domain.MetaType:   domain.TxnTypePremiumPurchase,
		})
	require.NoError(t, err)

	require.NoError(t, fx.svc.PurchasePremium(context.Background(), fx.user))

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-3001), got.Balance, "must adopt the orphaned debit, not debit again")

	txns, _ := fx.fake.ListBalanceTransactions(context.Background(), cust.ID, 100)
	assert.Len(t, txns, 1)
	invs, _ := fx.invoices.ListByUserID(fx.user.ID, 100)
	assert.Len(t, invs, 1)
}

func TestPurchasePremiumResumesOrphanedDebitAtZeroBalance(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -1999, nil)
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	// the earlier attempt spent the entire credit before crashing, so the
	// retry must adopt the debit even though nothing is left to charge
	_, err := fx.fake.CreateBalanceTransaction(context.Background(), cust.ID, 1999, "usd",
		"Premium purchase (account balance)", map[string]string{
			domain.MetaUserID: fx.userTag(),
			domain.MetaType:   domain.TxnTypePremiumPurchase,
		})
	require.NoError(t, err)

	require.NoError(t, fx.svc.PurchasePremium(context.Background(), fx.user))

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(0), got.Balance)
	txns, _ := fx.fake.ListBalanceTransactions(context.Background(), cust.ID, 100)
	assert.Len(t, txns, 1)
	invs, _ := fx.invoices.ListByUserID(fx.user.ID, 100)
	assert.Len(t, invs, 1)
	assert.True(t, fx.user.IsPremium)
}

func TestPurchasePremiumLeavesSettledDebitsAlone(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", -5000, nil)
	require.NoError(t, fx.customers.Upsert(fx.user.ID, cust.ID))

	// first purchase completes normally
	require.NoError(t, fx.svc.PurchasePremium(context.Background(), fx.user))
	// buying again must issue a fresh debit, not adopt the settled one
	require.NoError(t, fx.svc.PurchasePremium(context.Background(), fx.user))

	got, _ := fx.fake.GetCustomer(context.Background(), cust.ID)
	assert.Equal(t, int64(-1002), got.Balance)
	invs, _ := fx.invoices.ListByUserID(fx.user.ID, 100)
	assert.Len(t, invs, 2)
}

func TestPremiumPriceSettingOverride(t *testing.T) {
	fx := newBillingFixture(t)
	assert.Equal(t, int64(1999), fx.svc.PremiumPriceCents())
	require.NoError(t, fx.settings.Set(domain.SettingPremiumPriceCents, "2999"))
	assert.Equal(t, int64(2999), fx.svc.PremiumPriceCents())
}

// --- checkout ---

func TestCreateTopUpCheckoutEnforcesMinimum(t *testing.T) {
	fx := newBillingFixture(t)
	_, err := fx.svc.CreateTopUpCheckout(context.Background(), fx.user, 100)
	require.ErrorIs(t, err, ErrTopUpTooSmall)

	url, err := fx.svc.CreateTopUpCheckout(context.Background(), fx.user, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	sessions, _ := fx.fake.ListCheckoutSessions(context.Background(), "", 10)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.CheckoutTypeBalanceCredit, sessions[0].Metadata[domain.MetaType])
	assert.Equal(t, "1000", sessions[0].Metadata[domain.MetaAmountCents])
	assert.Equal(t, fx.userTag(), sessions[0].Metadata[domain.MetaUserID])
}

func TestCreateTopUpCheckoutMinimumSettingOverride(t *testing.T) {
	fx := newBillingFixture(t)
	require.NoError(t, fx.settings.Set(domain.SettingMinTopUpCents, "2000"))
	_, err := fx.svc.CreateTopUpCheckout(context.Background(), fx.user, 1500)
	assert.ErrorIs(t, err, ErrTopUpTooSmall)
}

// --- overview ---

func TestOverviewEndToEnd(t *testing.T) {
	fx := newBillingFixture(t)
	cust := fx.fake.AddCustomer("fan@example.com", 0, nil)
	completedTopUpSession(fx, cust.ID, 5000, time.Now().Add(-10*time.Minute))
	fx.fake.AddSubscription(cust.ID, activeSub(1999, time.Now().Add(30*24*time.Hour)))
	fx.fake.AddInvoice(cust.ID, &billing.Invoice{
		AmountPaid: 1999, Currency: "usd", Created: time.Now().Add(-time.Hour),
	})

	ov, err := fx.svc.Overview(context.Background(), fx.user)
	require.NoError(t, err)

	assert.True(t, ov.IsPremium)
	require.NotNil(t, ov.BalanceCents)
	assert.Equal(t, int64(-5000), *ov.BalanceCents, "backfilled credit must show in the same response")
	require.Len(t, ov.Transactions, 1)
	assert.Equal(t, "credit", ov.Transactions[0].Type)
	assert.Equal(t, 50.0, ov.Transactions[0].Amount)
	assert.Len(t, ov.Invoices, 1)
	assert.Empty(t, ov.CustomerID, "customer id only leaks in debug mode")
}

func TestOverviewWithoutBillingHistory(t *testing.T) {
	fx := newBillingFixture(t)
	ov, err := fx.svc.Overview(context.Background(), fx.user)
	require.NoError(t, err)
	assert.False(t, ov.IsPremium)
	assert.Nil(t, ov.BalanceCents)
	assert.Empty(t, ov.Transactions)
	assert.Empty(t, ov.Invoices)
}

func TestMapTransactionsSignsAndOrder(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	rows := mapTransactions([]*billing.BalanceTransaction{
		{ID: "t1", Amount: -5000, Currency: "usd", Created: older},
		{ID: "t2", Amount: 1999, Currency: "usd", Created: newer},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "t2", rows[0].ID, "newest first")
	assert.Equal(t, "debit", rows[0].Type)
	assert.Equal(t, 19.99, rows[0].Amount)
	assert.Equal(t, "credit", rows[1].Type)
	assert.Equal(t, 50.0, rows[1].Amount)
}
