package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/models"
	"github.com/adpsports/nhl-projections/pkg/config"
	"github.com/adpsports/nhl-projections/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.SQLitePath, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db, cfg.DatabaseURL != ""); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB, isPostgres bool) error {
	if err := db.AutoMigrate(
		&models.PlayerBaseline{},
		&models.TeamBaseline{},
		&models.ProjectionRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Lookup indexes beyond what the model tags declare
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_player_baselines_team ON player_baselines(team)",
		"CREATE INDEX IF NOT EXISTS idx_player_baselines_season ON player_baselines(season)",
		"CREATE INDEX IF NOT EXISTS idx_projection_runs_slate_date ON projection_runs(slate_date)",
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	return db.Migrator().DropTable(
		&models.ProjectionRun{},
		&models.TeamBaseline{},
		&models.PlayerBaseline{},
	)
}
