package models

import (
	"time"

	"gorm.io/gorm"
)

// UserModel is a member-built projection model: a weighted blend of the
// prop factors, backtested against settled props.
type UserModel struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Name   string `gorm:"size:100;not null" json:"name"`

	// WeightSeasonAvg and WeightRecentForm blend the two averages and must
	// sum to a positive number. Opponent and home/away are additive nudges.
	WeightSeasonAvg  float64 `gorm:"not null" json:"weight_season_avg"`
	WeightRecentForm float64 `gorm:"not null" json:"weight_recent_form"`
	WeightOpponent   float64 `gorm:"not null" json:"weight_opponent"`
	WeightHomeAway   float64 `gorm:"not null" json:"weight_home_away"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (UserModel) TableName() string { return "user_models" }
