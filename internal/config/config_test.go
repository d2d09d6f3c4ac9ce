package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr)
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("LowStockThreshold = %d", cfg.LowStockThreshold)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("StoreTimeout = %s", cfg.StoreTimeout)
	}
	if cfg.InstanceID == "" {
		t.Error("InstanceID empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOW_STOCK_THRESHOLD", "10")
	t.Setenv("STORE_TIMEOUT", "500ms")
	t.Setenv("LOW_STOCK_THRESHOLD_BAD", "x") // unrelated keys are ignored

	cfg := Load()
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.LowStockThreshold != 10 {
		t.Errorf("LowStockThreshold = %d", cfg.LowStockThreshold)
	}
	if cfg.StoreTimeout != 500*time.Millisecond {
		t.Errorf("StoreTimeout = %s", cfg.StoreTimeout)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "lots")
	t.Setenv("STORE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.LowStockThreshold != 5 {
		t.Errorf("malformed int not defaulted: %d", cfg.LowStockThreshold)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("malformed duration not defaulted: %s", cfg.StoreTimeout)
	}
}
