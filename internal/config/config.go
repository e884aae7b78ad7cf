package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string // sqlite|postgres|memory
	DBDSN    string

	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt
	EnableDevLogin bool

	CORSOrigins []string

	// Redis backs the distributed lock. Empty means in-process locks.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTLSec    int

	// SweepSchedule is a cron spec for auto-submitting overdue attempts.
	// Empty disables the sweeper; lazy expiry still applies.
	SweepSchedule string
}

// Load reads a .env file when present, then the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[config] .env: %v", err)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeOffline)))
	defCORS := "http://localhost:3000"
	if mode == ModeOnline {
		defCORS = "https://quiz.mindengage.ai"
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:      envOr("ADMIN_USER", "admin"),
		AdminPassHash:  envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		EnableDevLogin: envBool("ENABLE_DEV_LOGIN", mode == ModeOffline),
		CORSOrigins:    csvOr("CORS_ORIGINS", defCORS),
		RedisAddr:      envOr("REDIS_ADDR", ""),
		RedisPassword:  envOr("REDIS_PASSWORD", ""),
		RedisDB:        envInt("REDIS_DB", 0),
		LockTTLSec:     envInt("LOCK_TTL_SEC", 10),
		SweepSchedule:  envOr("SWEEP_SCHEDULE", "@every 1m"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
