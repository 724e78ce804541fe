package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	StoreBackend string // "postgres" or "memory"
	DatabaseURL  string
	SslCertPath  string

	ObjectBackend string // "s3" or "memory"
	AwsAccessKey  string
	AwsSecretKey  string
	AwsRegion     string
	BucketName    string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string
	UseMockLLM bool

	JWTSecret string
	TokenTTL  time.Duration
	RedisURL  string

	ArxivURL         string
	SearchMaxResults int

	IngestWorkers        int
	DashboardConcurrency int
	CORSOrigins          []string

	LogFile string

	OtelEnabled  bool
	OtelEndpoint string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),

		ObjectBackend: getEnv("OBJECT_BACKEND", "s3"),
		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-2"),
		BucketName:    getEnv("BUCKET_NAME", "researchhub-papers"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),
		UseMockLLM: getEnvBool("USE_MOCK_LLM", false),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RedisURL:  getEnv("REDIS_URL", ""),

		ArxivURL:         getEnv("ARXIV_URL", "http://export.arxiv.org/api/query"),
		SearchMaxResults: getEnvInt("SEARCH_MAX_RESULTS", 10),

		IngestWorkers:        getEnvInt("INGEST_WORKERS", 2),
		DashboardConcurrency: getEnvInt("DASHBOARD_CONCURRENCY", 4),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		LogFile: getEnv("LOG_FILE", "logs/researchhub.log"),

		OtelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	return cfg
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	case "memory":
	default:
		errs = append(errs, errors.New("STORE_BACKEND must be postgres or memory"))
	}
	switch c.ObjectBackend {
	case "s3":
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
			errs = append(errs, errors.New("AWS credentials not set"))
		}
	case "memory":
	default:
		errs = append(errs, errors.New("OBJECT_BACKEND must be s3 or memory"))
	}
	if !c.UseMockLLM && c.AIAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY not set (or set USE_MOCK_LLM=true)"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET not set"))
	}
	if c.SearchMaxResults <= 0 {
		errs = append(errs, errors.New("SEARCH_MAX_RESULTS must be positive"))
	}
	return errors.Join(errs...)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
