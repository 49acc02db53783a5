package models

import (
	"time"

	"gorm.io/gorm"
)

// Prop is a single player prop line on the board.
type Prop struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Player    string  `gorm:"size:100;not null;index" json:"player"`
	Team      string  `gorm:"size:10;not null;index" json:"team"`
	Opponent  string  `gorm:"size:10;not null" json:"opponent"`
	Market    string  `gorm:"size:30;not null;index" json:"market"` // POINTS, REBOUNDS, ASSISTS, THREES, PRA
	Line      float64 `gorm:"not null" json:"line"`
	OverOdds  int     `gorm:"not null;default:-110" json:"over_odds"` // American odds
	UnderOdds int     `gorm:"not null;default:-110" json:"under_odds"`

	// Factors the model builder weighs.
	SeasonAvg    float64 `json:"season_avg"`
	Last5Avg     float64 `json:"last5_avg"`
	OpponentRank int     `json:"opponent_rank"` // 1 = stingiest defense vs this market, 30 = softest
	HomeGame     bool    `json:"home_game"`

	GameTime  time.Time      `gorm:"index" json:"game_time"`
	Status    string         `gorm:"size:20;not null;default:'OPEN';index" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Result *PropResult `gorm:"foreignKey:PropID" json:"result,omitempty"`
}

func (Prop) TableName() string { return "props" }

// PropResult is the settled stat line for a prop.
type PropResult struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PropID    uint      `gorm:"uniqueIndex;not null" json:"prop_id"`
	Actual    float64   `gorm:"not null" json:"actual"`
	CreatedAt time.Time `json:"created_at"`
}

func (PropResult) TableName() string { return "prop_results" }
