package models

import "time"

// BillingCustomer links a local user to their customer record at the billing
// provider. One row per user; re-resolution overwrites the provider id.
type BillingCustomer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	StripeCustomerID string    `gorm:"size:64;not null;index" json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (BillingCustomer) TableName() string { return "stripe_customers" }

// Invoice is the local mirror of a paid provider invoice, plus synthetic
// records for balance-funded purchases (stripe_invoice_id "balance_<txn>").
// No soft delete: refunded invoices are removed outright so the unique
// index on stripe_invoice_id never collides with a tombstone.
type Invoice struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StripeInvoiceID string    `gorm:"uniqueIndex;size:128;not null" json:"stripe_invoice_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	AmountCents     int64     `gorm:"not null" json:"amount_cents"`
	Currency        string    `gorm:"size:3;not null;default:'usd'" json:"currency"`
	Status          string    `gorm:"size:20;not null" json:"status"`
	Description     string    `gorm:"size:255" json:"description"`
	InvoiceDate     time.Time `gorm:"index" json:"invoice_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// WebhookEvent records provider event ids so webhook deliveries are
// processed at most once.
type WebhookEvent struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	StripeEventID string     `gorm:"uniqueIndex;size:128;not null" json:"stripe_event_id"`
	EventType     string     `gorm:"size:64;index" json:"event_type"`
	ProcessedAt   *time.Time `json:"processed_at"`
	Error         string     `gorm:"type:text" json:"error"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
