package config

import "time"

// APIConfig holds runtime configuration for the notes API service.
type APIConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	MigrationsDir   string
	JWTSecret       string
	SessionTTL      time.Duration
	BaseURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailEnabled  bool

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int

	BoardEventBuffer int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://notes:notes@db:5432/notes?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		SessionTTL:         time.Duration(GetInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		BaseURL:            GetString("APP_BASE_URL", "http://localhost:4000"),
		VerificationTTL:    GetDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		ResetTTL:           GetDuration("RESET_TOKEN_TTL", time.Hour),
		SMTPAddr:           GetString("SMTP_ADDR", "localhost:587"),
		SMTPUser:           GetString("SMTP_USER", ""),
		SMTPPassword:       GetString("SMTP_PASSWORD", ""),
		MailFrom:           GetString("MAIL_FROM", "noreply@notes.local"),
		MailEnabled:        GetBool("MAIL_ENABLED", false),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		BoardEventBuffer:   GetInt("WS_BOARD_BUFFER", 100),
	}
}
