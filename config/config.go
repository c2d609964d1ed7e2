// Package config loads the server configuration from the environment,
// with an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Gateway GatewayConfig
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Engine  EngineConfig
}

type GatewayConfig struct {
	Addr           string
	MaxMessageSize int
}

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	TradesTopic   string
	DrainInterval time.Duration
}

type StorageConfig struct {
	TradeLogDir     string
	OutboxDir       string
	SegmentSize     int64
	SegmentDuration time.Duration
}

type EngineConfig struct {
	TickScale    int64
	DefaultDepth int
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Gateway: GatewayConfig{
			Addr:           getEnv("GATEWAY_ADDR", ":31337"),
			MaxMessageSize: getEnvInt("GATEWAY_MAX_MESSAGE_SIZE", 4096),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		GRPC: GRPCConfig{
			Addr: getEnv("GRPC_ADDR", ":9090"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnv("KAFKA_ORDERS_TOPIC", "orders.new"),
			TradesTopic:   getEnv("KAFKA_TRADES_TOPIC", "trades"),
			DrainInterval: getEnvDuration("KAFKA_DRAIN_INTERVAL", 250*time.Millisecond),
		},
		Storage: StorageConfig{
			TradeLogDir:     getEnv("TRADELOG_DIR", "./data/tradelog"),
			OutboxDir:       getEnv("OUTBOX_DIR", "./data/outbox"),
			SegmentSize:     getEnvInt64("TRADELOG_SEGMENT_SIZE", 64<<20),
			SegmentDuration: getEnvDuration("TRADELOG_SEGMENT_DURATION", time.Hour),
		},
		Engine: EngineConfig{
			TickScale:    getEnvInt64("TICK_SCALE", 100),
			DefaultDepth: getEnvInt("DEFAULT_DEPTH", 10),
		},
	}

	if cfg.Engine.TickScale <= 0 {
		return nil, fmt.Errorf("config: TICK_SCALE must be positive, got %d", cfg.Engine.TickScale)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("config: KAFKA_BROKERS must not be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
