package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	LogFile    string `yaml:"log_file" env:"LOG_FILE" env-default:""`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Redis      `yaml:"redis"`
	Shortener  `yaml:"shortener"`
	Auth       `yaml:"auth"`
	Stats      `yaml:"stats"`
	Sweeper    `yaml:"sweeper"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"linkcut"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Redis holds the key-value cache configuration. The cache is an
// optimization: when disabled or unreachable the service reads straight
// from the database.
type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"true"`
	URL      string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Shortener holds service-specific configuration.
type Shortener struct {
	BaseURL       string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	CodeLength    int           `yaml:"code_length" env:"CODE_LENGTH" env-default:"6"`
	MaxCollisions int           `yaml:"max_collisions" env:"MAX_COLLISIONS" env-default:"3"`
	LinkCacheTTL  time.Duration `yaml:"link_cache_ttl" env:"LINK_CACHE_TTL" env-default:"1h"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl" env:"STATS_CACHE_TTL" env-default:"1m"`
}

// Auth holds JWT issuance configuration.
type Auth struct {
	SecretKey     string        `yaml:"secret_key" env:"AUTH_SECRET_KEY" env-default:"change-me-in-production"`
	TokenDuration time.Duration `yaml:"token_duration" env:"AUTH_TOKEN_DURATION" env-default:"30m"`
	Issuer        string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"LinkCut-Backend"`
}

// Stats holds the asynchronous click recorder configuration.
type Stats struct {
	Workers       int           `yaml:"workers" env:"STATS_WORKERS" env-default:"3"`
	BufferSize    int           `yaml:"buffer_size" env:"STATS_BUFFER_SIZE" env-default:"1000"`
	RetryAttempts int           `yaml:"retry_attempts" env:"STATS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"STATS_RETRY_DELAY" env-default:"1s"`
}

// Sweeper holds the expired-link sweep configuration.
type Sweeper struct {
	Interval  time.Duration `yaml:"interval" env:"SWEEP_INTERVAL" env-default:"10m"`
	BatchSize int           `yaml:"batch_size" env:"SWEEP_BATCH_SIZE" env-default:"500"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	// Check if config file path is specified
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	// Try to load config file
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
