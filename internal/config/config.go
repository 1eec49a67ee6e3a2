package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// Remote learning backend.
	BackendURL string
	DeviceID   string
	// Shared secret issued at device enrollment; signs sync submissions.
	DeviceSecret string

	// Reachability probe target; defaults to the backend health endpoint.
	ProbeURL         string
	ProbeIntervalSec int

	// Retry ceilings per submission kind.
	ProgressMaxRetries   int
	AnswerMaxRetries     int
	CompletionMaxRetries int

	// Local control API auth.
	LocalAuthSecret string
	LocalPassHash   string // bcrypt
	EnableLocalAuth bool

	CORSOrigins []string

	LogLevel string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	backend := envOr("BACKEND_URL", "http://localhost:8080/api")
	return Config{
		HTTPAddr: addr,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BackendURL:   backend,
		DeviceID:     envOr("DEVICE_ID", "dev-local"),
		DeviceSecret: envOr("DEVICE_SECRET", "supersecret-dev-key"),

		ProbeURL:         envOr("PROBE_URL", strings.TrimSuffix(backend, "/")+"/healthz"),
		ProbeIntervalSec: envInt("PROBE_INTERVAL_SEC", 15),

		ProgressMaxRetries:   envInt("PROGRESS_MAX_RETRIES", 5),
		AnswerMaxRetries:     envInt("ANSWER_MAX_RETRIES", 8),
		CompletionMaxRetries: envInt("COMPLETION_MAX_RETRIES", 8),

		LocalAuthSecret: envOr("LOCAL_AUTH_SECRET", "supersecret-dev-key"),
		LocalPassHash:   envOr("LOCAL_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:3010"),

		LogLevel: envOr("LOG_LEVEL", "info"),
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
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
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
