package repository

import (
	"strings"

	"propdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyntheticInvoicePrefix marks invoices minted locally for balance-funded
// purchases rather than mirrored from the provider.
const SyntheticInvoicePrefix = "balance_"

func IsSyntheticInvoiceID(id string) bool {
	return strings.HasPrefix(id, SyntheticInvoicePrefix)
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Upsert is keyed on stripe_invoice_id so repeated syncs converge instead
// of duplicating rows.
func (r *InvoiceRepository) Upsert(inv *models.Invoice) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount_cents", "currency", "status", "description", "invoice_date", "updated_at"}),
	}).Create(inv).Error
}

func (r *InvoiceRepository) GetByStripeID(stripeInvoiceID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("stripe_invoice_id = ?", stripeInvoiceID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) ListByUserID(userID uint, limit int) ([]models.Invoice, error) {
	var list []models.Invoice
	err := r.db.Where("user_id = ?", userID).Order("invoice_date DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *InvoiceRepository) DeleteByStripeID(stripeInvoiceID string) error {
	return r.db.Where("stripe_invoice_id = ?", stripeInvoiceID).Delete(&models.Invoice{}).Error
}

// DeleteSyntheticByUserID clears balance-purchase invoices before a sync so
// they are rebuilt from the provider's transaction list.
func (r *InvoiceRepository) DeleteSyntheticByUserID(userID uint) error {
	return r.db.Where("user_id = ? AND stripe_invoice_id LIKE ?", userID, SyntheticInvoicePrefix+"%").
		Delete(&models.Invoice{}).Error
}

func (r *InvoiceRepository) SumPaidCents() (int64, error) {
	var out struct{ Total int64 }
	err := r.db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(amount_cents), 0) as total").
		Where("status = ?", "paid").
		Scan(&out).Error
	return out.Total, err
}
