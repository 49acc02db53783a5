package repository

import (
	"propdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Add is idempotent: re-watching a player is a no-op.
func (r *WatchlistRepository) Add(userID uint, player string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WatchlistEntry{UserID: userID, Player: player}).Error
}

func (r *WatchlistRepository) Remove(userID uint, player string) error {
	return r.db.Where("user_id = ? AND player = ?", userID, player).Delete(&models.WatchlistEntry{}).Error
}

func (r *WatchlistRepository) ListByUserID(userID uint) ([]models.WatchlistEntry, error) {
	var list []models.WatchlistEntry
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *WatchlistRepository) IsWatching(userID uint, player string) (bool, error) {
	var c int64
	err := r.db.Model(&models.WatchlistEntry{}).Where("user_id = ? AND player = ?", userID, player).Count(&c).Error
	return c > 0, err
}

// ListWatcherIDs returns ids of members watching the player, for settle
// notifications.
func (r *WatchlistRepository) ListWatcherIDs(player string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.WatchlistEntry{}).Where("player = ?", player).Pluck("user_id", &ids).Error
	return ids, err
}
