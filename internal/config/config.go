package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
	BackendSheets = "sheets"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // APP_ENV (dev, test, prod)
	Port string // APP_PORT

	LedgerBackend string        // LEDGER_BACKEND: memory, mysql or sheets
	LedgerID      string        // LEDGER_ID, names the ledger in MySQL and in lock keys
	Threshold     int           // CAPACITY_THRESHOLD, guests per page
	CountPolicy   string        // LEDGER_COUNT_POLICY: zero, one or reject
	Timezone      string        // EVENT_TIMEZONE, IANA name used for row timestamps
	LockBackend   string        // LOCK_BACKEND: local or redis
	LockTTL       time.Duration // LOCK_TTL, lease length of the redis lock; never shorter than SubmitTimeout
	SubmitTimeout time.Duration // SUBMIT_TIMEOUT, bound on one lock, resolve and append sequence

	DBUser    string
	DBPass    string // empty allowed
	DBHost    string
	DBPort    string
	DBName    string
	DBMigrate bool // DB_MIGRATE, create ledger tables on startup

	SheetID          string // GOOGLE_SHEET_ID
	SheetClientEmail string // GOOGLE_CLIENT_EMAIL
	SheetPrivateKey  string // GOOGLE_PRIVATE_KEY, "\n" escapes allowed

	AdminPasswordHash string // ADMIN_PASSWORD_HASH (bcrypt); admin routes are off when empty
	JWTSecret         string // JWT_SECRET, required with ADMIN_PASSWORD_HASH
	AccessTTLMin      int    // ACCESS_TOKEN_TTL_MIN
	BcryptCost        int    // BCRYPT_COST, used by the hash-password command

	RabbitURL       string // RABBITMQ_URL; events are not published when empty
	ConsumerEnabled bool   // CONSUMER_ENABLED
	LogDir          string // LOG_DIR, where the consumer writes rsvp.log
}

// Load reads a .env file when present, then the environment. Missing
// required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "5000"),
		LedgerBackend: strings.ToLower(envStr("LEDGER_BACKEND", BackendMemory)),
		LedgerID:      envStr("LEDGER_ID", "default"),
		Threshold:     envInt("CAPACITY_THRESHOLD", 250),
		CountPolicy:   envStr("LEDGER_COUNT_POLICY", "zero"),
		Timezone:      envStr("EVENT_TIMEZONE", "Asia/Kathmandu"),
		LockBackend:   strings.ToLower(envStr("LOCK_BACKEND", LockLocal)),
		LockTTL:       envDur("LOCK_TTL", 30*time.Second),
		SubmitTimeout: envDur("SUBMIT_TIMEOUT", 30*time.Second),

		DBPass:    os.Getenv("DB_PASS"),
		DBMigrate: envBool("DB_MIGRATE", true),

		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:        envInt("BCRYPT_COST", 12),

		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		ConsumerEnabled: envBool("CONSUMER_ENABLED", false),
		LogDir:          envStr("LOG_DIR", "logs"),
	}

	switch cfg.LedgerBackend {
	case BackendMemory:
	case BackendMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case BackendSheets:
		cfg.SheetID = must("GOOGLE_SHEET_ID")
		cfg.SheetClientEmail = must("GOOGLE_CLIENT_EMAIL")
		cfg.SheetPrivateKey = must("GOOGLE_PRIVATE_KEY")
	default:
		return Config{}, fmt.Errorf("LEDGER_BACKEND: unknown backend %q", cfg.LedgerBackend)
	}
	if cfg.LockBackend != LockLocal && cfg.LockBackend != LockRedis {
		return Config{}, fmt.Errorf("LOCK_BACKEND: unknown backend %q", cfg.LockBackend)
	}
	if cfg.AdminPasswordHash != "" {
		cfg.JWTSecret = must("JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.Threshold < 1 {
		return Config{}, errors.New("CAPACITY_THRESHOLD must be positive")
	}
	if cfg.SubmitTimeout <= 0 {
		return Config{}, errors.New("SUBMIT_TIMEOUT must be positive")
	}
	// the lease is not renewed, so it has to cover the slowest submission
	if cfg.LockBackend == LockRedis && cfg.LockTTL < cfg.SubmitTimeout {
		return Config{}, fmt.Errorf("LOCK_TTL (%s) must be at least SUBMIT_TIMEOUT (%s)", cfg.LockTTL, cfg.SubmitTimeout)
	}
	return cfg, nil
}

// AdminEnabled reports whether the admin routes should be mounted.
func (c Config) AdminEnabled() bool { return c.AdminPasswordHash != "" }
