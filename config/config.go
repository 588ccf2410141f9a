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

	"netasampark/models"
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

// GatewayConfig selects one vendor per channel and carries the vendor
// credentials. Unknown provider values fail closed in gateway.NewSelector.
type GatewayConfig struct {
	SMSProvider      string `json:"sms_provider"`
	WhatsAppProvider string `json:"whatsapp_provider"`
	VoiceProvider    string `json:"voice_provider"`
	EmailProvider    string `json:"email_provider"`

	GupshupAPIKey   string `json:"-"`
	GupshupUserID   string `json:"-"`
	GupshupPassword string `json:"-"`
	GupshupSenderID string `json:"gupshup_sender_id"`
	GupshupAppID    string `json:"gupshup_app_id"`

	ExotelAccountSID string `json:"-"`
	ExotelAPIKey     string `json:"-"`
	ExotelAPISecret  string `json:"-"`
	ExotelCallerID   string `json:"exotel_caller_id"`
	ExotelAudioURL   string `json:"exotel_audio_url"`

	HTTPTimeout time.Duration `json:"http_timeout"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	// BaseDomain is the platform domain tenant subdomains hang off of,
	// e.g. "netasampark.com" -> "testparty.netasampark.com".
	BaseDomain string `json:"base_domain"`

	JWTSecret string `json:"-"`
	SentryDSN string `json:"-"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"-"`
	FromEmail    string `json:"from_email"`

	Gateway GatewayConfig `json:"gateway"`
	Redis   RedisConfig   `json:"redis"`

	RateLimitWebhook int `json:"rate_limit_webhook"`
	RateLimitSend    int `json:"rate_limit_send"`

	// ChannelCosts is the flat per-unit cost per channel, overridable from
	// the environment so pricing changes don't need a deploy.
	ChannelCosts map[string]float64 `json:"channel_costs"`

	// DefaultTrialDays applies when a plan doesn't carry its own trial window.
	DefaultTrialDays int `json:"default_trial_days"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),
		BaseDomain:  getEnv("BASE_DOMAIN", "netasampark.com"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "netasampark"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "no-reply@netasampark.com"),

		Gateway: GatewayConfig{
			SMSProvider:      getEnv("SMS_PROVIDER", "gupshup"),
			WhatsAppProvider: getEnv("WHATSAPP_PROVIDER", "gupshup"),
			VoiceProvider:    getEnv("VOICE_PROVIDER", "exotel"),
			EmailProvider:    getEnv("EMAIL_PROVIDER", "smtp"),

			GupshupAPIKey:   getEnv("GUPSHUP_API_KEY", ""),
			GupshupUserID:   getEnv("GUPSHUP_USER_ID", ""),
			GupshupPassword: getEnv("GUPSHUP_PASSWORD", ""),
			GupshupSenderID: getEnv("GUPSHUP_SENDER_ID", ""),
			GupshupAppID:    getEnv("GUPSHUP_APP_ID", ""),

			ExotelAccountSID: getEnv("EXOTEL_ACCOUNT_SID", ""),
			ExotelAPIKey:     getEnv("EXOTEL_API_KEY", ""),
			ExotelAPISecret:  getEnv("EXOTEL_API_SECRET", ""),
			ExotelCallerID:   getEnv("EXOTEL_CALLER_ID", ""),
			ExotelAudioURL:   getEnv("EXOTEL_AUDIO_URL", ""),

			HTTPTimeout: time.Duration(getEnvAsInt("GATEWAY_HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		},

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		RateLimitWebhook: getEnvAsInt("RATE_LIMIT_WEBHOOK", 300),
		RateLimitSend:    getEnvAsInt("RATE_LIMIT_SEND", 60),

		ChannelCosts: map[string]float64{
			"sms":      getEnvAsFloat("COST_SMS", 0.25),
			"whatsapp": getEnvAsFloat("COST_WHATSAPP", 0.50),
			"email":    getEnvAsFloat("COST_EMAIL", 0.05),
			"voice":    getEnvAsFloat("COST_VOICE_MINUTE", 2.00),
		},

		DefaultTrialDays: getEnvAsInt("DEFAULT_TRIAL_DAYS", 14),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.Gateway.GupshupAPIKey == "" {
			return fmt.Errorf("GUPSHUP_API_KEY is required in production")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := CentralDSN()
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

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting central schema migration...")
	if err := models.MigrateCentral(DB); err != nil {
		return fmt.Errorf("central migration failed: %w", err)
	}
	if err := models.CreateDefaultPlans(DB); err != nil {
		return fmt.Errorf("plan seeding failed: %w", err)
	}
	log.Println("✅ Central schema migration completed")
	return nil
}

// CentralDSN builds the control-plane connection string. Partition handles
// append their own search_path (see tenancy.Manager).
func CentralDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
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

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value float64
	_, err := fmt.Sscanf(valueStr, "%f", &value)
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
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Base Domain: %s", AppConfig.BaseDomain)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Gateways: sms=%s whatsapp=%s voice=%s email=%s",
		AppConfig.Gateway.SMSProvider,
		AppConfig.Gateway.WhatsAppProvider,
		AppConfig.Gateway.VoiceProvider,
		AppConfig.Gateway.EmailProvider)
}
