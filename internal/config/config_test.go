package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SWIPE_DAILY_LIMIT", "")
	t.Setenv("SWIPE_CHARGE_DUPLICATES", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := New()

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "port=5432")
	assert.Equal(t, 20, cfg.Swipe.DailyLimit)
	assert.True(t, cfg.Swipe.ChargeDuplicates)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.Interval)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SWIPE_DAILY_LIMIT", "5")
	t.Setenv("SWIPE_CHARGE_DUPLICATES", "no")
	t.Setenv("SWIPE_TIMEZONE", "Europe/London")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DISPATCH_INTERVAL", "750ms")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example.com/")

	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "birdie:birdie@tcp(db.internal:3306)/birdie?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, 5, cfg.Swipe.DailyLimit)
	assert.False(t, cfg.Swipe.ChargeDuplicates)
	assert.Equal(t, "Europe/London", cfg.Location().String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Dispatch.Interval)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
}

func TestLocation_UnknownFallsBackToLocal(t *testing.T) {
	cfg := &Config{}
	cfg.Swipe.Timezone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())
}
