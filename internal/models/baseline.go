package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlayerBaseline is one player's stored rate snapshot for a season. The
// baseline answers "have we ever seen this player before" — lineups carrying
// players with no baseline row get flagged as missing history downstream.
type PlayerBaseline struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PlayerID    *int64         `gorm:"index" json:"player_id,omitempty"`
	CanonicalID string         `gorm:"uniqueIndex:idx_player_baseline_identity" json:"canonical_id"`
	Season      string         `gorm:"uniqueIndex:idx_player_baseline_identity;index" json:"season"`
	Name        string         `gorm:"not null" json:"name"`
	Team        string         `gorm:"index" json:"team"`
	Role        string         `json:"role"` // F, D, or G
	Rates       datatypes.JSON `json:"rates"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PlayerBaseline) TableName() string {
	return "player_baselines"
}

// TeamBaseline is one team's stored pace/defense rates for a season.
type TeamBaseline struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Team      string         `gorm:"uniqueIndex:idx_team_baseline_identity" json:"team"`
	Season    string         `gorm:"uniqueIndex:idx_team_baseline_identity;index" json:"season"`
	Rates     datatypes.JSON `json:"rates"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (TeamBaseline) TableName() string {
	return "team_baselines"
}

// ProjectionRun records one completed pipeline run for auditing.
type ProjectionRun struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RunID       string         `gorm:"index;not null" json:"run_id"`
	SlateDate   string         `gorm:"index;not null" json:"slate_date"` // YYYY-MM-DD
	Season      string         `json:"season"`
	SkaterCount int            `json:"skater_count"`
	GoalieCount int            `json:"goalie_count"`
	StackCount  int            `json:"stack_count"`
	Warnings    datatypes.JSON `json:"warnings"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (ProjectionRun) TableName() string {
	return "projection_runs"
}
