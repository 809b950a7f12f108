package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything the API process reads from its environment.
type Config struct {
	HTTPAddr    string
	ServiceName string

	StoreBackend string // memory | dynamodb | mysql
	UsersTable   string
	ProductTable string
	OrdersTable  string
	MySQLDSN     string
	AWSRegion    string

	S3Bucket        string
	S3PublicBaseURL string
	PresignTTL      time.Duration

	JWTSecret     string
	JWTTTL        time.Duration
	AdminID       string
	AdminPassword string

	RedisAddr    string
	KafkaBrokers []string

	DefaultCategory string
	StockMode       string // unsafe | optimistic
	StockRetries    int
	SagaCompensate  bool
	LoginRatePerMin int
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		ServiceName: getenv("SERVICE_NAME", "modelshop-api"),

		StoreBackend: getenv("STORE_BACKEND", "memory"),
		UsersTable:   getenv("USER_TABLE_NAME", "users"),
		ProductTable: getenv("PRODUCTS_TABLE_NAME", "products"),
		OrdersTable:  getenv("ORDER_TABLE_NAME", "orders"),
		MySQLDSN:     getenv("DB_DSN_PRIMARY", ""),
		AWSRegion:    getenv("AWS_REGION", "us-east-1"),

		S3Bucket:        getenv("S3_BUCKET_NAME", ""),
		S3PublicBaseURL: getenv("S3_PUBLIC_BASE_URL", ""),
		PresignTTL:      getduration("PRESIGN_TTL", 15*time.Minute),

		JWTSecret:     getenv("JWT_SECRET", ""),
		JWTTTL:        getduration("JWT_TTL", 7*24*time.Hour),
		AdminID:       getenv("ADMIN_ID", ""),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),

		RedisAddr:    getenv("REDIS_ADDR", ""),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),

		DefaultCategory: getenv("DEFAULT_CATEGORY", "general"),
		StockMode:       getenv("STOCK_MODE", "unsafe"),
		StockRetries:    getint("STOCK_RETRIES", 3),
		SagaCompensate:  getbool("SAGA_COMPENSATE", false),
		LoginRatePerMin: getint("LOGIN_RATE_PER_MIN", 30),
	}
}

// Validate rejects settings that would otherwise be silently replaced by a default.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "dynamodb", "mysql":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.StockMode {
	case "unsafe", "optimistic":
	default:
		return fmt.Errorf("unknown STOCK_MODE %q (want unsafe or optimistic)", c.StockMode)
	}
	if c.StockRetries < 0 {
		return fmt.Errorf("STOCK_RETRIES must not be negative, got %d", c.StockRetries)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}

func getbool(k string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return b
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return d
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
