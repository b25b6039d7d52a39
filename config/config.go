package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	JWTSecret string
	TokenTTL  time.Duration

	LocalCachePath string

	GeocodingBaseURL string
	GeocodingAPIKey  string

	SMSGatewayURL  string
	SMSToken       string
	SMSFrom        string
	RecipientsFile string

	SendGridAPIKey string
	MailFromName   string
	MailFromEmail  string

	StripeSecretKey    string
	PaymentDelay       time.Duration
	PaymentFailureRate float64

	CloudinaryURL    string
	CloudinaryFolder string
	BitlyURL         string
	BitlyToken       string

	ReloadSchedule string
	RequestTimeout time.Duration
}

// New sets up all config related services
func New() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "local")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: getEnv("DB_NAME", "safekid"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         getEnv("PORT", "8080"),
		Env:          env,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("TOKEN_TTL", 30*24*time.Hour),

		LocalCachePath: getEnv("LOCAL_CACHE_PATH", "safekid-cache.db"),

		GeocodingBaseURL: getEnv("GEOCODING_BASE_URL", "http://api.openweathermap.org"),
		GeocodingAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),

		SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", "https://api.sparrowsms.com/v2/sms/"),
		SMSToken:       os.Getenv("SMS_TOKEN"),
		SMSFrom:        getEnv("SMS_FROM", "SafeKid"),
		RecipientsFile: os.Getenv("ALERT_RECIPIENTS_FILE"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "SafeKid Nepal"),
		MailFromEmail:  getEnv("MAIL_FROM_EMAIL", "no-reply@safekid-nepal.app"),

		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		PaymentDelay:       getDuration("PAYMENT_DELAY", 2*time.Second),
		PaymentFailureRate: getFloat("PAYMENT_FAILURE_RATE", 0),

		CloudinaryURL:    os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "safekid"),
		BitlyURL:         getEnv("BITLY_URL", "https://api-ssl.bitly.com/v4/shorten"),
		BitlyToken:       os.Getenv("BITLY_API_KEY"),

		ReloadSchedule: getEnv("REPORT_RELOAD_SCHEDULE", "@every 5m"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		zap.S().Warnw("invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		zap.S().Warnw("invalid number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}
