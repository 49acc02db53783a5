package repository

import (
	"time"

	"propdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropFilter narrows the board listing. Zero values mean "no filter".
type PropFilter struct {
	Market string
	Team   string
	Player string
	Status string
	Date   *time.Time // props whose game falls on this calendar day
	Limit  int
	Offset int
}

type PropRepository struct {
	db *gorm.DB
}

func NewPropRepository(db *gorm.DB) *PropRepository {
	return &PropRepository{db: db}
}

func (r *PropRepository) Create(p *models.Prop) error {
	return r.db.Create(p).Error
}

func (r *PropRepository) Update(p *models.Prop) error {
	return r.db.Save(p).Error
}

func (r *PropRepository) GetByID(id uint) (*models.Prop, error) {
	var p models.Prop
	if err := r.db.Preload("Result").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PropRepository) List(f PropFilter) ([]models.Prop, error) {
	q := r.db.Model(&models.Prop{})
	if f.Market != "" {
		q = q.Where("market = ?", f.Market)
	}
	if f.Team != "" {
		q = q.Where("team = ? OR opponent = ?", f.Team, f.Team)
	}
	if f.Player != "" {
		q = q.Where("player = ?", f.Player)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != nil {
		day := f.Date.Truncate(24 * time.Hour)
		q = q.Where("game_time >= ? AND game_time < ?", day, day.Add(24*time.Hour))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var list []models.Prop
	err := q.Preload("Result").Order("game_time ASC").Limit(limit).Offset(f.Offset).Find(&list).Error
	return list, err
}

// ListSettled returns settled props that have a recorded result, oldest
// first, for deterministic backtests.
func (r *PropRepository) ListSettled(market string, limit int) ([]models.Prop, error) {
	q := r.db.Model(&models.Prop{}).
		Joins("JOIN prop_results ON prop_results.prop_id = props.id").
		Where("props.status = ?", "SETTLED")
	if market != "" {
		q = q.Where("props.market = ?", market)
	}
	if limit <= 0 {
		limit = 500
	}
	var list []models.Prop
	err := q.Preload("Result").Order("props.game_time ASC").Limit(limit).Find(&list).Error
	return list, err
}

// UpsertResult records the settled stat line, keyed on prop_id so a
// correction overwrites rather than duplicates.
func (r *PropRepository) UpsertResult(res *models.PropResult) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prop_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual"}),
	}).Create(res).Error
}

func (r *PropRepository) Count() (int64, error) {
	var c int64
	err := r.db.Model(&models.Prop{}).Count(&c).Error
	return c, err
}
