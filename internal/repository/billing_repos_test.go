package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"propdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	))
	return db
}

func TestWebhookEventDedupe(t *testing.T) {
	repo := NewWebhookEventRepository(newTestDB(t))

	fresh, err := repo.InsertIfNew("evt_1", "checkout.session.completed")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.InsertIfNew("evt_1", "checkout.session.completed")
	require.NoError(t, err)
	assert.False(t, fresh, "redelivery must be flagged as duplicate")

	fresh, err = repo.InsertIfNew("evt_2", "invoice.paid")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestWebhookEventMarkProcessed(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebhookEventRepository(db)
	_, err := repo.InsertIfNew("evt_1", "invoice.paid")
	require.NoError(t, err)

	require.NoError(t, repo.MarkProcessed("evt_1", errors.New("boom")))

	var ev models.WebhookEvent
	require.NoError(t, db.Where("stripe_event_id = ?", "evt_1").First(&ev).Error)
	require.NotNil(t, ev.ProcessedAt)
	assert.Equal(t, "boom", ev.Error)
}

func TestInvoiceUpsertConverges(t *testing.T) {
	repo := NewInvoiceRepository(newTestDB(t))
	inv := &models.Invoice{
		StripeInvoiceID: "in_1", UserID: 1, AmountCents: 1999,
		Currency: "usd", Status: "paid", InvoiceDate: time.Now(),
	}
	require.NoError(t, repo.Upsert(inv))
	inv2 := *inv
	inv2.ID = 0
	inv2.AmountCents = 2999
	require.NoError(t, repo.Upsert(&inv2))

	list, err := repo.ListByUserID(1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2999), list[0].AmountCents)
}

func TestDeleteSyntheticLeavesRealInvoices(t *testing.T) {
	repo := NewInvoiceRepository(newTestDB(t))
	now := time.Now()
	require.NoError(t, repo.Upsert(&models.Invoice{
		StripeInvoiceID: SyntheticInvoicePrefix + "txn_1", UserID: 1,
		AmountCents: 1999, Currency: "usd", Status: "paid", InvoiceDate: now,
	}))
	require.NoError(t, repo.Upsert(&models.Invoice{
		StripeInvoiceID: "in_real", UserID: 1,
		AmountCents: 1999, Currency: "usd", Status: "paid", InvoiceDate: now,
	}))

	require.NoError(t, repo.DeleteSyntheticByUserID(1))

	list, err := repo.ListByUserID(1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "in_real", list[0].StripeInvoiceID)
}

func TestIsSyntheticInvoiceID(t *testing.T) {
	assert.True(t, IsSyntheticInvoiceID("balance_cbtxn_1"))
	assert.False(t, IsSyntheticInvoiceID("in_123"))
}

func TestBillingCustomerUpsertOverwritesLink(t *testing.T) {
	repo := NewBillingCustomerRepository(newTestDB(t))
	require.NoError(t, repo.Upsert(1, "cus_old"))
	require.NoError(t, repo.Upsert(1, "cus_new"))

	bc, err := repo.GetByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, "cus_new", bc.StripeCustomerID)

	_, err = repo.GetByStripeCustomerID("cus_new")
	assert.NoError(t, err)
}
