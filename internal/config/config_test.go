package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPayments_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "PAYMENT_QUEUE", "SETTLEMENT_DELAY", "SETTLEMENT_WORKERS", "PAYMENT_DEFAULT_AMOUNT", "PAYMENT_CURRENCY"} {
		t.Setenv(k, "")
	}

	cfg := LoadPayments()

	assert.Equal(t, ":8005", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "payment_succeeded_queue", cfg.Kafka.Queue)
	assert.Equal(t, 5*time.Second, cfg.SettlementDelay)
	assert.Equal(t, 16, cfg.SettlementWorkers)
	assert.Equal(t, 5000.0, cfg.DefaultAmount)
	assert.Equal(t, "RUB", cfg.Currency)
}

func TestLoadLedger_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BONUS_ACCRUAL_RATE", "0.05")
	t.Setenv("CONSUMER_GROUP", "ledger")

	cfg := LoadLedger()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.05, cfg.AccrualRate)
	assert.Equal(t, "ledger", cfg.ConsumerGroup)
}

func TestLoadLedger_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("BONUS_ACCRUAL_RATE", "-1")
	assert.Equal(t, 0.01, LoadLedger().AccrualRate)

	t.Setenv("BONUS_ACCRUAL_RATE", "abc")
	assert.Equal(t, 0.01, LoadLedger().AccrualRate)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, LoadEnvFile(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SETTLEMENT_DELAY=250ms\n"), 0o600))
	t.Setenv("SETTLEMENT_DELAY", "")
	os.Unsetenv("SETTLEMENT_DELAY")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, 250*time.Millisecond, LoadPayments().SettlementDelay)
}
