package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %t\n", key, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %s\n", key, fallback)
		return fallback
	}
	return parsed
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadConfig() config {
	return config{
		addr:   getEnv("ADDR", ":8080"),
		env:    getEnv("ENV", "development"),
		apiURL: getEnv("EXTERNAL_URL", "localhost:8080"),
		store: storeConfig{
			driver:      getEnv("STORE_DRIVER", "postgres"),
			autoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),
		},
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(getEnvInt("DB_MAX_CONNS", 30)),
			maxIdleTime: getEnv("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				exp:    time.Hour * 24 * 3, // 3 days
				iss:    getEnv("AUTH_TOKEN_ISS", "storefront"),
			},
		},
		orderNumberSalt: os.Getenv("ORDER_NUMBER_SALT"),
		kafka: kafkaConfig{
			brokers: getEnvList("KAFKA_BROKERS"),
			topic:   getEnv("KAFKA_TOPIC", "storefront.orders"),
		},
		redis: redisConfig{
			addr:       os.Getenv("REDIS_ADDR"),
			productTTL: getEnvDuration("PRODUCT_CACHE_TTL", 2*time.Minute),
		},
	}
}

func (c config) validate() error {
	switch c.store.driver {
	case "postgres":
		if c.db.addr == "" {
			return fmt.Errorf("DB_ADDR is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.store.driver)
	}
	if c.auth.token.secret == "" {
		return fmt.Errorf("AUTH_TOKEN_SECRET is required")
	}
	if c.env == "production" && c.orderNumberSalt == "" {
		return fmt.Errorf("ORDER_NUMBER_SALT is required in production")
	}
	return nil
}
