// Package config reads service settings from the environment, optionally
// preloaded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Auth struct {
	SecretKey string
	Algorithm string
}

type Kafka struct {
	Brokers []string
	Queue   string
}

type Payments struct {
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	Kafka               Kafka
	Auth                Auth
	SettlementDelay     time.Duration
	SettlementWorkers   int
	DefaultAmount       float64
	Currency            string
	ConfirmationBaseURL string
	CarServiceURL       string
}

type Ledger struct {
	HTTPAddr      string
	GRPCAddr      string
	LogLevel      string
	LogFormat     string
	Kafka         Kafka
	Auth          Auth
	ConsumerGroup string
	AccrualRate   float64
}

// LoadEnvFile merges path into the process environment without overriding
// variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func LoadPayments() Payments {
	return Payments{
		HTTPAddr:            getenv("HTTP_ADDR", ":8005"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFormat:           getenv("LOG_FORMAT", "json"),
		Kafka:               loadKafka(),
		Auth:                loadAuth(),
		SettlementDelay:     getDuration("SETTLEMENT_DELAY", 5*time.Second),
		SettlementWorkers:   getInt("SETTLEMENT_WORKERS", 16),
		DefaultAmount:       getFloat("PAYMENT_DEFAULT_AMOUNT", 5000),
		Currency:            getenv("PAYMENT_CURRENCY", "RUB"),
		ConfirmationBaseURL: getenv("CONFIRMATION_BASE_URL", "https://payment.gateway/confirm"),
		CarServiceURL:       getenv("CAR_SERVICE_URL", "http://car-service:8000"),
	}
}

func LoadLedger() Ledger {
	return Ledger{
		HTTPAddr:      getenv("HTTP_ADDR", ":8006"),
		GRPCAddr:      getenv("GRPC_ADDR", ":9106"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
		Kafka:         loadKafka(),
		Auth:          loadAuth(),
		ConsumerGroup: getenv("CONSUMER_GROUP", "bonus-service"),
		AccrualRate:   getFloat("BONUS_ACCRUAL_RATE", 0.01),
	}
}

func loadKafka() Kafka {
	var brokers []string
	for _, b := range strings.Split(getenv("KAFKA_BROKERS", "kafka:9092"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return Kafka{
		Brokers: brokers,
		Queue:   getenv("PAYMENT_QUEUE", "payment_succeeded_queue"),
	}
}

func loadAuth() Auth {
	return Auth{
		SecretKey: getenv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
		Algorithm: getenv("JWT_ALGORITHM", "HS256"),
	}
}

/******************** Utils ********************/
func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return d
}

func getFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur >= 0 {
			return dur
		}
	}
	return d
}
