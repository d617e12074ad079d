// Package store persists player and team baselines between runs. Baselines
// are the memory of past seasons: a lineup player without one is a rookie or
// recent call-up whose rates came entirely from fallbacks, which is worth
// surfacing to whoever reads the projections.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/adpsports/nhl-projections/internal/models"
	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/adpsports/nhl-projections/pkg/database"
)

// BaselineStore reads and writes baseline rows.
type BaselineStore struct {
	db     *database.DB
	logger *logrus.Logger
}

// NewBaselineStore creates a store and migrates its tables.
func NewBaselineStore(db *database.DB, logger *logrus.Logger) (*BaselineStore, error) {
	if err := db.AutoMigrate(&models.PlayerBaseline{}, &models.TeamBaseline{}, &models.ProjectionRun{}); err != nil {
		return nil, fmt.Errorf("migrate baseline tables: %w", err)
	}
	return &BaselineStore{db: db, logger: logger}, nil
}

// KnownPlayers returns the identity sets for a season: numeric player IDs
// and canonical IDs with a baseline row.
func (s *BaselineStore) KnownPlayers(season nhl.Season) (map[int64]struct{}, map[string]struct{}, error) {
	var rows []models.PlayerBaseline
	if err := s.db.Select("player_id", "canonical_id").
		Where("season = ?", string(season)).
		Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("load baseline players: %w", err)
	}

	ids := make(map[int64]struct{}, len(rows))
	keys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.PlayerID != nil {
			ids[*r.PlayerID] = struct{}{}
		}
		if r.CanonicalID != "" {
			keys[r.CanonicalID] = struct{}{}
		}
	}
	return ids, keys, nil
}

// SavePlayers upserts one baseline row per entity for the season. Existing
// rows are refreshed in place; conflict resolution keys on canonical ID.
func (s *BaselineStore) SavePlayers(season nhl.Season, entities []nhl.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	rows := make([]models.PlayerBaseline, 0, len(entities))
	for _, e := range entities {
		if e.CanonicalID == "" {
			continue
		}
		rates, err := json.Marshal(e.Rates)
		if err != nil {
			s.logger.Warnf("Failed to encode rates for %s: %v", e.Name, err)
			continue
		}
		rows = append(rows, models.PlayerBaseline{
			PlayerID:    e.PlayerID,
			CanonicalID: e.CanonicalID,
			Season:      string(season),
			Name:        e.Name,
			Team:        e.Team,
			Role:        string(e.Role),
			Rates:       datatypes.JSON(rates),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canonical_id"}, {Name: "season"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_id", "name", "team", "role", "rates", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save player baselines: %w", err)
	}
	return nil
}

// SaveTeams upserts team baseline rows for the season.
func (s *BaselineStore) SaveTeams(season nhl.Season, contexts map[string]nhl.TeamContext) error {
	if len(contexts) == 0 {
		return nil
	}

	rows := make([]models.TeamBaseline, 0, len(contexts))
	for team, ctx := range contexts {
		rates, err := json.Marshal(ctx)
		if err != nil {
			s.logger.Warnf("Failed to encode team rates for %s: %v", team, err)
			continue
		}
		rows = append(rows, models.TeamBaseline{
			Team:   team,
			Season: string(season),
			Rates:  datatypes.JSON(rates),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team"}, {Name: "season"}},
		DoUpdates: clause.AssignmentColumns([]string{"rates", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save team baselines: %w", err)
	}
	return nil
}

// RecordRun persists a completed run's audit row.
func (s *BaselineStore) RecordRun(run *models.ProjectionRun) error {
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("record projection run: %w", err)
	}
	return nil
}

// TagMissingBaseline sets MissingBaseline on each entity with no baseline
// row for the season, matching by numeric ID when both sides have one and
// canonical ID otherwise. Returns the flagged entities.
func TagMissingBaseline(entities []nhl.Entity, ids map[int64]struct{}, keys map[string]struct{}) []nhl.Entity {
	var missing []nhl.Entity
	for i := range entities {
		e := &entities[i]
		if e.PlayerID != nil {
			if _, ok := ids[*e.PlayerID]; ok {
				continue
			}
		}
		if _, ok := keys[e.CanonicalID]; ok {
			continue
		}
		e.MissingBaseline = true
		missing = append(missing, *e)
	}
	return missing
}
