package repository

import (
	"propdesk/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers    int64 `json:"total_users"`
	PremiumUsers  int64 `json:"premium_users"`
	TotalProps    int64 `json:"total_props"`
	OpenProps     int64 `json:"open_props"`
	SettledProps  int64 `json:"settled_props"`
	TotalModels   int64 `json:"total_models"`
	TotalInvoices int64 `json:"total_invoices"`
	RevenueCents  int64 `json:"revenue_cents"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats() (*DashboardStats, error) {
	var s DashboardStats
	r.db.Model(&models.User{}).Count(&s.TotalUsers)
	r.db.Model(&models.User{}).Where("is_premium = ?", true).Count(&s.PremiumUsers)
	r.db.Model(&models.Prop{}).Count(&s.TotalProps)
	r.db.Model(&models.Prop{}).Where("status = ?", "OPEN").Count(&s.OpenProps)
	r.db.Model(&models.Prop{}).Where("status = ?", "SETTLED").Count(&s.SettledProps)
	r.db.Model(&models.UserModel{}).Count(&s.TotalModels)
	r.db.Model(&models.Invoice{}).Count(&s.TotalInvoices)

	var rev struct{ Total int64 }
	r.db.Model(&models.Invoice{}).Select("COALESCE(SUM(amount_cents), 0) as total").Where("status = ?", "paid").Scan(&rev)
	s.RevenueCents = rev.Total

	return &s, nil
}
