package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Ingest   Ingest   `yaml:"ingest"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"activity-service"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

// HTTP covers the ops surface only (health, readiness, metrics).
type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"9091"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"activity_db"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers         []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID         string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"activity-service"`
	StartOffset     string   `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"earliest"`
	DeadLetterTopic string   `yaml:"dead_letter_topic" env:"KAFKA_DEAD_LETTER_TOPIC" env-default:"activity_dead_letter"`
}

type Ingest struct {
	Lanes       int           `yaml:"lanes" env:"INGEST_LANES" env-default:"8"`
	BatchSize   int           `yaml:"batch_size" env:"INGEST_BATCH_SIZE" env-default:"16"`
	MaxRetries  int           `yaml:"max_retries" env:"INGEST_MAX_RETRIES" env-default:"5"`
	BackoffBase time.Duration `yaml:"backoff_base" env:"INGEST_BACKOFF_BASE" env-default:"500ms"`
	SeenTTL     time.Duration `yaml:"seen_ttl" env:"INGEST_SEEN_TTL" env-default:"24h"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
