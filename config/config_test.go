package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")
	t.Setenv("INVENTORY_ENFORCE_FLOOR", "")
	t.Setenv("PRODUCT_RECONCILE_INVENTORY", "")
	t.Setenv("EVENTS_DRIVER", "")

	cfg := Load()

	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Business.RequestTimeout)
	assert.False(t, cfg.Business.EnforceStockFloor)
	assert.False(t, cfg.Business.ReconcileInventory)
	assert.Equal(t, "none", cfg.Events.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("INVENTORY_ENFORCE_FLOOR", "true")
	t.Setenv("LOW_STOCK_THRESHOLD", "250.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Business.RequestTimeout)
	assert.True(t, cfg.Business.EnforceStockFloor)
	assert.Equal(t, 250.5, cfg.Business.LowStockThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 0, cfg.Redis.DB)
}
