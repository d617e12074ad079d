package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/adpsports/nhl-projections/internal/projections"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Storage
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Local files
	OutputDir  string `mapstructure:"OUTPUT_DIR"`
	SalaryFile string `mapstructure:"SALARY_FILE"`

	// External sources
	NSTBaseURL       string        `mapstructure:"NST_BASE_URL"`
	ScheduleURL      string        `mapstructure:"SCHEDULE_URL"`
	LineupsURL       string        `mapstructure:"LINEUPS_URL"`
	SourceTimeout    time.Duration `mapstructure:"SOURCE_TIMEOUT"`
	SourceRateLimit  float64       `mapstructure:"SOURCE_RATE_LIMIT"` // requests per second
	SourceBurst      int           `mapstructure:"SOURCE_BURST"`
	BreakerThreshold int           `mapstructure:"BREAKER_THRESHOLD"`
	RefreshInterval  string        `mapstructure:"REFRESH_INTERVAL"`
	PayloadCacheTTL  time.Duration `mapstructure:"PAYLOAD_CACHE_TTL"`

	// Blend weights
	BlendRecent float64 `mapstructure:"BLEND_RECENT"`
	BlendMid    float64 `mapstructure:"BLEND_MID"`
	BlendPrior  float64 `mapstructure:"BLEND_PRIOR"`

	// Scoring weights
	ScoreGoal   float64 `mapstructure:"SCORE_GOAL"`
	ScoreAssist float64 `mapstructure:"SCORE_ASSIST"`
	ScoreShot   float64 `mapstructure:"SCORE_SOG"`
	ScoreBlock  float64 `mapstructure:"SCORE_BLOCK"`
	ScoreSave   float64 `mapstructure:"SCORE_SAVE"`
	ScoreGA     float64 `mapstructure:"SCORE_GA"`
	ScoreWin    float64 `mapstructure:"SCORE_WIN"`

	// League averages
	LeagueSavePct           float64 `mapstructure:"LEAGUE_SV"`
	LeagueShotsFor60        float64 `mapstructure:"LEAGUE_SF60"`
	LeagueShotsAllowed60    float64 `mapstructure:"LEAGUE_SA60"`
	LeagueAttemptsAllowed60 float64 `mapstructure:"LEAGUE_CA60"`
	LeagueXGoalsAllowed60   float64 `mapstructure:"LEAGUE_XGA60"`

	// Role fallbacks and assignment multipliers, "KEY:VALUE,KEY:VALUE" form
	FallbackForward string `mapstructure:"FALLBACK_F"`
	FallbackDefense string `mapstructure:"FALLBACK_D"`
	FallbackGoalie  string `mapstructure:"FALLBACK_G"`
	AssignmentTable string `mapstructure:"ASSIGNMENT_MULTIPLIERS"`

	// Alerts
	AlertsEnabled    bool   `mapstructure:"ALERTS_ENABLED"`
	AlertPhoneNumber string `mapstructure:"ALERT_PHONE_NUMBER"`
	SMSProvider      string `mapstructure:"SMS_PROVIDER"` // "twilio", "mock"
	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("SQLITE_PATH", "data/baseline.db")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("OUTPUT_DIR", "data/outputs")
	viper.SetDefault("SALARY_FILE", "data/dk_salaries.csv")

	viper.SetDefault("NST_BASE_URL", "https://www.naturalstattrick.com")
	viper.SetDefault("SCHEDULE_URL", "https://api-web.nhle.com/v1/schedule/now")
	viper.SetDefault("LINEUPS_URL", "https://vhd27npae1.execute-api.us-east-1.amazonaws.com/lineups")
	viper.SetDefault("SOURCE_TIMEOUT", "60s")
	viper.SetDefault("SOURCE_RATE_LIMIT", 0.5) // NST throttles aggressively
	viper.SetDefault("SOURCE_BURST", 1)
	viper.SetDefault("BREAKER_THRESHOLD", 5)
	viper.SetDefault("REFRESH_INTERVAL", "6h")
	viper.SetDefault("PAYLOAD_CACHE_TTL", "24h")

	viper.SetDefault("BLEND_RECENT", 0.50)
	viper.SetDefault("BLEND_MID", 0.35)
	viper.SetDefault("BLEND_PRIOR", 0.15)

	viper.SetDefault("SCORE_GOAL", 8.5)
	viper.SetDefault("SCORE_ASSIST", 5.0)
	viper.SetDefault("SCORE_SOG", 1.5)
	viper.SetDefault("SCORE_BLOCK", 1.3)
	viper.SetDefault("SCORE_SAVE", 0.7)
	viper.SetDefault("SCORE_GA", -3.5)
	viper.SetDefault("SCORE_WIN", 6.0)

	viper.SetDefault("LEAGUE_SV", 0.905)
	viper.SetDefault("LEAGUE_SF60", 31.0)
	viper.SetDefault("LEAGUE_SA60", 31.0)
	viper.SetDefault("LEAGUE_CA60", 58.0)
	viper.SetDefault("LEAGUE_XGA60", 2.65)

	viper.SetDefault("FALLBACK_F", "G60:0.45,A60:0.80,SOG60:5.2,BLK60:1.0")
	viper.SetDefault("FALLBACK_D", "G60:0.20,A60:0.70,SOG60:3.2,BLK60:4.0")
	viper.SetDefault("FALLBACK_G", "SV:0.905")
	viper.SetDefault("ASSIGNMENT_MULTIPLIERS",
		"L1:1.12,L2:1.05,L3:0.97,L4:0.92,P1:1.08,P2:1.00,P3:0.95,PP1:1.10,PP2:1.02")

	viper.SetDefault("ALERTS_ENABLED", false)
	viper.SetDefault("ALERT_PHONE_NUMBER", "")
	viper.SetDefault("SMS_PROVIDER", "mock")
	viper.SetDefault("TWILIO_ACCOUNT_SID", "")
	viper.SetDefault("TWILIO_AUTH_TOKEN", "")
	viper.SetDefault("TWILIO_FROM_NUMBER", "")

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects structurally invalid configuration before any entity
// processing begins. This is the only fatal condition in the pipeline.
func (c *Config) Validate() error {
	if err := c.ScoringWeights().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.BlendRecent <= 0 && c.BlendMid <= 0 && c.BlendPrior <= 0 {
		return fmt.Errorf("invalid config: all blend weights are non-positive")
	}
	for role, keys := range map[string][]string{
		"F": {"G60", "A60", "SOG60", "BLK60"},
		"D": {"G60", "A60", "SOG60", "BLK60"},
		"G": {"SV"},
	} {
		table := c.fallbackTable(role)
		for _, k := range keys {
			if _, ok := table[nhl.Metric(k)]; !ok {
				return fmt.Errorf("invalid config: fallback table %s missing metric %s", role, k)
			}
		}
	}
	return nil
}

func (c *Config) BlendWeights() projections.BlendWeights {
	return projections.BlendWeights{Recent: c.BlendRecent, Mid: c.BlendMid, Prior: c.BlendPrior}
}

func (c *Config) ScoringWeights() projections.ScoringWeights {
	return projections.ScoringWeights{
		projections.WeightGoal:         c.ScoreGoal,
		projections.WeightAssist:       c.ScoreAssist,
		projections.WeightShot:         c.ScoreShot,
		projections.WeightBlock:        c.ScoreBlock,
		projections.WeightSave:         c.ScoreSave,
		projections.WeightGoalsAgainst: c.ScoreGA,
		projections.WeightWin:          c.ScoreWin,
	}
}

func (c *Config) LeagueAverages() projections.LeagueAverages {
	return projections.LeagueAverages{
		SavePct:           c.LeagueSavePct,
		ShotsFor60:        c.LeagueShotsFor60,
		ShotsAllowed60:    c.LeagueShotsAllowed60,
		AttemptsAllowed60: c.LeagueAttemptsAllowed60,
		XGoalsAllowed60:   c.LeagueXGoalsAllowed60,
	}
}

func (c *Config) FallbackRates() projections.FallbackRates {
	return projections.FallbackRates{
		nhl.RoleForward: c.fallbackTable("F"),
		nhl.RoleDefense: c.fallbackTable("D"),
		nhl.RoleGoalie:  c.fallbackTable("G"),
	}
}

func (c *Config) fallbackTable(role string) map[nhl.Metric]float64 {
	var raw string
	switch role {
	case "F":
		raw = c.FallbackForward
	case "D":
		raw = c.FallbackDefense
	case "G":
		raw = c.FallbackGoalie
	}
	out := make(map[nhl.Metric]float64)
	for k, v := range parsePairs(raw) {
		out[nhl.Metric(k)] = v
	}
	return out
}

func (c *Config) AssignmentMultipliers() projections.AssignmentMultipliers {
	return projections.AssignmentMultipliers(parsePairs(c.AssignmentTable))
}

// parsePairs parses "KEY:VALUE,KEY:VALUE" tables. Malformed entries are
// skipped; Validate catches any required key that went missing.
func parsePairs(raw string) map[string]float64 {
	out := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(parts[0]))] = v
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
