package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mmushaes/sheet-mail-scrubber/models"
	"github.com/mmushaes/sheet-mail-scrubber/verifier"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type ScrubConfig struct {
	ProbeTimeout   time.Duration `json:"probe_timeout"`
	MaxRetries     int           `json:"max_retries"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	DNSTimeout     time.Duration `json:"dns_timeout"`
	DoHEndpoint    string        `json:"doh_endpoint"`
	HeloDomain     string        `json:"helo_domain"`
	ProbeSender    string        `json:"probe_sender"`
	PerDomainCap   int           `json:"per_domain_cap"`
	GlobalCap      int           `json:"global_cap"`
	Concurrency    int           `json:"concurrency"`
	BatchSize      int           `json:"batch_size"`
	MaxListSize    int           `json:"max_list_size"`
	Policy         string        `json:"policy"` // cascade or score
}

type Config struct {
	Environment        string      `json:"environment"`
	ServerPort         string      `json:"server_port"`
	DBHost             string      `json:"db_host"`
	DBPort             string      `json:"db_port"`
	DBUser             string      `json:"db_user"`
	DBPassword         string      `json:"-"`
	DBName             string      `json:"db_name"`
	DBSSLMode          string      `json:"db_ssl_mode"`
	DBMaxIdleConns     int         `json:"db_max_idle_conns"`
	DBMaxOpenConns     int         `json:"db_max_open_conns"`
	SentryDSN          string      `json:"-"`
	RateLimitPerMinute int         `json:"rate_limit_per_minute"`
	Redis              RedisConfig `json:"redis"`
	Scrub              ScrubConfig `json:"scrub"`
}

func init() {
	// A missing .env file is fine; env vars may come from elsewhere.
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         getEnv("SERVER_PORT", "5000"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "sheetmail"),
		DBSSLMode:          getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ADDRESS", "") != "",
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Scrub: ScrubConfig{
			ProbeTimeout:   getEnvAsDuration("SCRUB_PROBE_TIMEOUT", 10*time.Second),
			MaxRetries:     getEnvAsInt("SCRUB_MAX_RETRIES", 1),
			RetryBaseDelay: getEnvAsDuration("SCRUB_RETRY_BASE_DELAY", time.Second),
			DNSTimeout:     getEnvAsDuration("SCRUB_DNS_TIMEOUT", 3*time.Second),
			DoHEndpoint:    getEnv("SCRUB_DOH_ENDPOINT", "https://dns.google/resolve"),
			HeloDomain:     getEnv("SCRUB_HELO_DOMAIN", "scrub.sheetmail.app"),
			ProbeSender:    getEnv("SCRUB_PROBE_SENDER", "probe@sheetmail.app"),
			PerDomainCap:   getEnvAsInt("SCRUB_PER_DOMAIN_CAP", 5),
			GlobalCap:      getEnvAsInt("SCRUB_GLOBAL_CAP", 200),
			Concurrency:    getEnvAsInt("SCRUB_CONCURRENCY", 10),
			BatchSize:      getEnvAsInt("SCRUB_BATCH_SIZE", 50),
			MaxListSize:    getEnvAsInt("SCRUB_MAX_LIST_SIZE", 10000),
			Policy:         getEnv("SCRUB_POLICY", "cascade"),
		},
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	logConfig()
	return nil
}

// VerifierConfig maps the loaded environment onto the engine options.
func (c Config) VerifierConfig() verifier.Config {
	policy := verifier.PolicyCascade
	if strings.EqualFold(c.Scrub.Policy, "score") {
		policy = verifier.PolicyScore
	}
	return verifier.Config{
		ProbeTimeout:   c.Scrub.ProbeTimeout,
		MaxRetries:     c.Scrub.MaxRetries,
		RetryBaseDelay: c.Scrub.RetryBaseDelay,
		DNSTimeout:     c.Scrub.DNSTimeout,
		DoHEndpoint:    c.Scrub.DoHEndpoint,
		HeloDomain:     c.Scrub.HeloDomain,
		ProbeSender:    c.Scrub.ProbeSender,
		PerDomainCap:   c.Scrub.PerDomainCap,
		GlobalCap:      c.Scrub.GlobalCap,
		Concurrency:    c.Scrub.Concurrency,
		BatchSize:      c.Scrub.BatchSize,
		Policy:         policy,
	}
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Connected to the database, running migrations...")
	if err := DB.AutoMigrate(&models.ScrubJob{}, &models.ScrubResult{}); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Probe identity: EHLO %s, MAIL FROM %s",
		AppConfig.Scrub.HeloDomain,
		AppConfig.Scrub.ProbeSender)
	log.Printf("Probe limits: %d per domain, %d global, policy %s",
		AppConfig.Scrub.PerDomainCap,
		AppConfig.Scrub.GlobalCap,
		AppConfig.Scrub.Policy)
}
