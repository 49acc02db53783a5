package repository

import (
	"propdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BillingCustomerRepository struct {
	db *gorm.DB
}

func NewBillingCustomerRepository(db *gorm.DB) *BillingCustomerRepository {
	return &BillingCustomerRepository{db: db}
}

func (r *BillingCustomerRepository) GetByUserID(userID uint) (*models.BillingCustomer, error) {
	var bc models.BillingCustomer
	if err := r.db.Where("user_id = ?", userID).First(&bc).Error; err != nil {
		return nil, err
	}
	return &bc, nil
}

func (r *BillingCustomerRepository) GetByStripeCustomerID(customerID string) (*models.BillingCustomer, error) {
	var bc models.BillingCustomer
	if err := r.db.Where("stripe_customer_id = ?", customerID).First(&bc).Error; err != nil {
		return nil, err
	}
	return &bc, nil
}

// Upsert writes the user -> provider customer link, replacing any previous
// id for the user. Resolution calls this on every successful strategy so a
// healed or re-minted customer sticks.
func (r *BillingCustomerRepository) Upsert(userID uint, stripeCustomerID string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(&models.BillingCustomer{UserID: userID, StripeCustomerID: stripeCustomerID}).Error
}
