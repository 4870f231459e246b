package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"paygate/internal/payment"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	API      APIConfig
	Payment  payment.Settings
	Ledger   LedgerConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// BotConfig configures payment reports to a Telegram chat. Reporting is
// off unless both fields are set.
type BotConfig struct {
	Token        string
	ReportChatID int64
}

// APIConfig holds the /api credentials. KeyHash is the hex SHA256 of an
// accepted token. With both empty the API rejects every request.
type APIConfig struct {
	Key     string
	KeyHash string
}

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerMySQL    = "mysql"
	LedgerDynamoDB = "dynamodb"
)

type LedgerConfig struct {
	Backend string
	TTL     time.Duration

	DynamoTable    string
	DynamoEndpoint string
	AWSRegion      string
	AWSAccessKey   string
	AWSSecretKey   string
}

type CronConfig struct {
	ReconcileSchedule string
	StaleAfter        time.Duration
	ExpireAfter       time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PAYMENT_TIMEOUT", "30s")
	viper.SetDefault("PAYPAL_MODE", "sandbox")
	viper.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "5m")
	viper.SetDefault("LEDGER_BACKEND", LedgerMemory)
	viper.SetDefault("LEDGER_TTL", "720h")
	viper.SetDefault("DYNAMODB_LEDGER_TABLE", "webhook_ledger")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("RECONCILE_SCHEDULE", "0 */5 * * * *")
	viper.SetDefault("RECONCILE_STALE_AFTER", "15m")
	viper.SetDefault("RECONCILE_EXPIRE_AFTER", "24h")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Bot: BotConfig{
			Token:        viper.GetString("BOT_TOKEN"),
			ReportChatID: viper.GetInt64("BOT_REPORT_CHAT_ID"),
		},
		API: APIConfig{
			Key:     viper.GetString("API_KEY"),
			KeyHash: viper.GetString("API_KEY_HASH"),
		},
		Payment: payment.Settings{
			Provider:  viper.GetString("PAYMENT_GATEWAY"),
			ReturnURL: viper.GetString("PAYMENT_RETURN_URL"),
			CancelURL: viper.GetString("PAYMENT_CANCEL_URL"),
			Timeout:   durationOr("PAYMENT_TIMEOUT", 30*time.Second),
			Razorpay: payment.RazorpayConfig{
				KeyID:         viper.GetString("RAZORPAY_KEY_ID"),
				KeySecret:     viper.GetString("RAZORPAY_KEY_SECRET"),
				WebhookSecret: viper.GetString("RAZORPAY_WEBHOOK_SECRET"),
				BaseURL:       viper.GetString("RAZORPAY_BASE_URL"),
			},
			Stripe: payment.StripeConfig{
				SecretKey:        viper.GetString("STRIPE_SECRET_KEY"),
				WebhookSecret:    viper.GetString("STRIPE_WEBHOOK_SECRET"),
				BaseURL:          viper.GetString("STRIPE_BASE_URL"),
				WebhookTolerance: durationOr("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
			},
			PayPal: payment.PayPalConfig{
				ClientID:      viper.GetString("PAYPAL_CLIENT_ID"),
				ClientSecret:  viper.GetString("PAYPAL_CLIENT_SECRET"),
				WebhookSecret: viper.GetString("PAYPAL_WEBHOOK_SECRET"),
				Mode:          strings.ToLower(viper.GetString("PAYPAL_MODE")),
				BaseURL:       viper.GetString("PAYPAL_BASE_URL"),
			},
		},
		Ledger: LedgerConfig{
			Backend:        strings.ToLower(strings.TrimSpace(viper.GetString("LEDGER_BACKEND"))),
			TTL:            durationOr("LEDGER_TTL", 30*24*time.Hour),
			DynamoTable:    viper.GetString("DYNAMODB_LEDGER_TABLE"),
			DynamoEndpoint: viper.GetString("DYNAMODB_ENDPOINT"),
			AWSRegion:      viper.GetString("AWS_REGION"),
			AWSAccessKey:   viper.GetString("AWS_ACCESS_KEY_ID"),
			AWSSecretKey:   viper.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		Cron: CronConfig{
			ReconcileSchedule: viper.GetString("RECONCILE_SCHEDULE"),
			StaleAfter:        durationOr("RECONCILE_STALE_AFTER", 15*time.Minute),
			ExpireAfter:       durationOr("RECONCILE_EXPIRE_AFTER", 24*time.Hour),
		},
	}

	switch cfg.Ledger.Backend {
	case LedgerMemory, LedgerRedis, LedgerMySQL, LedgerDynamoDB:
	case "gorm":
		cfg.Ledger.Backend = LedgerMySQL
	default:
		return nil, fmt.Errorf("unsupported LEDGER_BACKEND %q", cfg.Ledger.Backend)
	}

	if cfg.Payment.Provider == "" {
		log.Println("WARNING: PAYMENT_GATEWAY is not set")
	}
	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database settings, for --bootstrap-db.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")

	db := loadDatabase()
	if db.Name == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),

		MaxIdleConns:    intOr("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    intOr("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: durationOr("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

func intOr(key string, fallback int) int {
	if n := viper.GetInt(key); n > 0 {
		return n
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
