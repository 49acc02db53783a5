package models

import "time"

// WatchlistEntry pins a player on a member's watchlist. No soft delete:
// a tombstone would block re-watching through the unique index.
type WatchlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_watch_user_player,unique" json:"user_id"`
	Player    string    `gorm:"size:100;not null;index:idx_watch_user_player,unique" json:"player"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WatchlistEntry) TableName() string { return "watchlist_entries" }
