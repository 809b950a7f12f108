package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("STOCK_MODE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	assert.Equal(t, "unsafe", cfg.StockMode)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.SagaCompensate)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SAGA_COMPENSATE", "true")
	t.Setenv("STOCK_RETRIES", "7")
	t.Setenv("JWT_TTL", "1h")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.SagaCompensate)
	assert.Equal(t, 7, cfg.StockRetries)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("STOCK_RETRIES", "")

	t.Run("stock mode typo", func(t *testing.T) {
		t.Setenv("STOCK_MODE", "optimistc")
		err := Load().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown STOCK_MODE "optimistc"`)
	})

	t.Run("optimistic accepted", func(t *testing.T) {
		t.Setenv("STOCK_MODE", "optimistic")
		assert.NoError(t, Load().Validate())
	})

	t.Run("unknown store backend", func(t *testing.T) {
		t.Setenv("STOCK_MODE", "")
		t.Setenv("STORE_BACKEND", "postgres")
		assert.Error(t, Load().Validate())
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Setenv("STOCK_MODE", "")
		t.Setenv("STOCK_RETRIES", "-1")
		assert.Error(t, Load().Validate())
	})
}
