package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"storefront/internal/entity"
)

type Config struct {
	HTTPAddr string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret []byte
	JWTTTL    time.Duration

	PickupLocations entity.PickupLocations
	CatalogCacheTTL time.Duration

	RateLimit float64
	RateBurst int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		DBHost:       getEnv("DB_HOST", "127.0.0.1"),
		DBPort:       getEnv("DB_PORT", "3306"),
		DBUser:       getEnv("DB_USER", "root"),
		DBPass:       os.Getenv("DB_PASS"),
		DBName:       getEnv("DB_NAME", "storefront"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-events"),
		JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.PickupLocations = entity.DefaultPickupLocations()
	if raw := os.Getenv("PICKUP_LOCATIONS"); raw != "" {
		if cfg.PickupLocations, err = entity.ParsePickupLocations(raw); err != nil {
			return nil, fmt.Errorf("PICKUP_LOCATIONS: %w", err)
		}
	}

	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("RATE_LIMIT", "5"), 64); err != nil || cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT must be a positive number")
	}
	if cfg.RateBurst, err = strconv.Atoi(getEnv("RATE_BURST", "10")); err != nil || cfg.RateBurst <= 0 {
		return nil, fmt.Errorf("RATE_BURST must be a positive integer")
	}

	return cfg, nil
}

// DSN is the MySQL data source name. Affected-row counts report matched rows.
func (c *Config) DSN() string {
	m := mysql.NewConfig()
	m.User = c.DBUser
	m.Passwd = c.DBPass
	m.Net = "tcp"
	m.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	m.DBName = c.DBName
	m.ParseTime = true
	m.ClientFoundRows = true
	m.Loc = time.UTC
	return m.FormatDSN()
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
