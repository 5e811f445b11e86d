package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings, loaded from the environment.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DB" envDefault:"conectaplus"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// Daily.co video rooms; empty values disable the provider.
	DailyAPIKey string `env:"DAILY_API_KEY"`
	DailyDomain string `env:"DAILY_DOMAIN"`

	Game Game
}

// Game groups the gameplay tunables consumed by the coordinators.
type Game struct {
	AnswerDeadline     time.Duration `env:"ANSWER_DEADLINE" envDefault:"60s"`
	TurnAdvanceDelay   time.Duration `env:"TURN_ADVANCE_DELAY" envDefault:"3s"`
	RoomEvictionDelay  time.Duration `env:"ROOM_EVICTION_DELAY" envDefault:"1s"`
	SweepInterval      time.Duration `env:"ROOM_SWEEP_INTERVAL" envDefault:"5m"`
	DefaultTargetScore int           `env:"DEFAULT_TARGET_SCORE" envDefault:"20"`
	DeckSize           int           `env:"DECK_SIZE" envDefault:"56"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
