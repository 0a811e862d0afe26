package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	URL string
}

// RedisConfig holds the negative-list backend settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the event forwarding settings. An empty URL
// disables the forwarder; events then stay on the in-process bus only.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr      string
	JWTSecret string
}

// OriginConfig identifies this deployment as an ACH originator.
type OriginConfig struct {
	ImmediateDestination string
	ImmediateOrigin      string
	DestinationName      string
	OriginName           string
	CompanyName          string
	CompanyID            string
	ODFIRoutingNumber    string
	FileIDModifier       string // single letter 'A'-'Z'
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	EncryptionKey string
	Postgres      PostgresConfig
	Redis         RedisConfig
	RabbitMQ      RabbitMQConfig
	HTTP          HTTPConfig
	Origin        OriginConfig
}

// bindings maps viper keys to the environment variables that feed them.
var bindings = map[string]string{
	"app.env":                    "APP_ENV",
	"encryption.key":             "ENCRYPTION_KEY",
	"postgres.url":               "DATABASE_URL",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"rabbitmq.url":               "RABBITMQ_URL",
	"rabbitmq.exchange":          "RABBITMQ_EXCHANGE",
	"http.addr":                  "HTTP_ADDR",
	"http.jwt_secret":            "JWT_SECRET",
	"origin.immediate_dest":      "ACH_IMMEDIATE_DESTINATION",
	"origin.immediate_origin":    "ACH_IMMEDIATE_ORIGIN",
	"origin.dest_name":           "ACH_DESTINATION_NAME",
	"origin.origin_name":         "ACH_ORIGIN_NAME",
	"origin.company_name":        "ACH_COMPANY_NAME",
	"origin.company_id":          "ACH_COMPANY_ID",
	"origin.odfi_routing_number": "ACH_ODFI_ROUTING_NUMBER",
	"origin.file_id_modifier":    "ACH_FILE_ID_MODIFIER",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file into the process environment. A missing file is
	// fine in prod; anything else should surface.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// Explicitly bind viper keys to env var names.
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("rabbitmq.exchange", "railsettle.events")
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("origin.file_id_modifier", "A")

	cfg := Config{
		AppEnv:        viper.GetString("app.env"),
		EncryptionKey: viper.GetString("encryption.key"),
		Postgres: PostgresConfig{
			URL: viper.GetString("postgres.url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      viper.GetString("rabbitmq.url"),
			Exchange: viper.GetString("rabbitmq.exchange"),
		},
		HTTP: HTTPConfig{
			Addr:      viper.GetString("http.addr"),
			JWTSecret: viper.GetString("http.jwt_secret"),
		},
		Origin: OriginConfig{
			ImmediateDestination: viper.GetString("origin.immediate_dest"),
			ImmediateOrigin:      viper.GetString("origin.immediate_origin"),
			DestinationName:      viper.GetString("origin.dest_name"),
			OriginName:           viper.GetString("origin.origin_name"),
			CompanyName:          viper.GetString("origin.company_name"),
			CompanyID:            viper.GetString("origin.company_id"),
			ODFIRoutingNumber:    viper.GetString("origin.odfi_routing_number"),
			FileIDModifier:       viper.GetString("origin.file_id_modifier"),
		},
	}

	if cfg.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is not set in environment or .env file")
	}
	if len(cfg.EncryptionKey) != 32 && len(cfg.EncryptionKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be a 32- or 64-character hex string, but got %d chars", len(cfg.EncryptionKey))
	}
	if cfg.Postgres.URL == "" {
		return nil, errors.New("DATABASE_URL is not set in environment or .env file")
	}
	if cfg.HTTP.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set in environment or .env file")
	}
	if len(cfg.Origin.FileIDModifier) != 1 || cfg.Origin.FileIDModifier[0] < 'A' || cfg.Origin.FileIDModifier[0] > 'Z' {
		return nil, fmt.Errorf("ACH_FILE_ID_MODIFIER must be a single letter A-Z, got %q", cfg.Origin.FileIDModifier)
	}

	return &cfg, nil
}
