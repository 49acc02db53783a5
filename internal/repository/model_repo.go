package repository

import (
	"propdesk/internal/models"

	"gorm.io/gorm"
)

type ModelRepository struct {
	db *gorm.DB
}

func NewModelRepository(db *gorm.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

func (r *ModelRepository) Create(m *models.UserModel) error {
	return r.db.Create(m).Error
}

func (r *ModelRepository) Update(m *models.UserModel) error {
	return r.db.Save(m).Error
}

// GetByIDForUser scopes the lookup to the owner so one member can never
// load another's model.
func (r *ModelRepository) GetByIDForUser(id, userID uint) (*models.UserModel, error) {
	var m models.UserModel
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ModelRepository) ListByUserID(userID uint) ([]models.UserModel, error) {
	var list []models.UserModel
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *ModelRepository) CountByUserID(userID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.UserModel{}).Where("user_id = ?", userID).Count(&c).Error
	return c, err
}

func (r *ModelRepository) Delete(id, userID uint) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.UserModel{}).Error
}
