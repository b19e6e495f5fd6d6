package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "./lightplan.sqlite", cfg.Database.Path)
	assert.Equal(t, "Europe/Moscow", cfg.Geo.Timezone)
	assert.Equal(t, 55.751, cfg.Geo.Lat)
	assert.Equal(t, 37.617, cfg.Geo.Lon)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "lightplan/scenarios", cfg.MQTT.ScenariosTopic())
	assert.Equal(t, "lightplan/events", cfg.MQTT.EventsTopic())
	assert.Equal(t, 30*24*time.Hour, cfg.Ledger.Retention())
	assert.Equal(t, 200, cfg.Ledger.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
	assert.Equal(t, 4, cfg.EventBus.GetWorkers())
	assert.Equal(t, 100, cfg.EventBus.GetQueueSize())

	assert.Equal(t, cfg, Default())
}

func TestParse_Values(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  format: json
geo:
  name: Berlin
  timezone: Europe/Berlin
  lat: 52.52
  lon: 13.405
server:
  port: 9000
  read_timeout: 3s
mqtt:
  enabled: true
  broker: tcp://broker:1883
  topic_prefix: home/light/
  qos: 7
eventbus:
  workers: 2
shutdown_timeout: 1m
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "Berlin", cfg.Geo.Name)
	assert.Equal(t, 52.52, cfg.Geo.Lat)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "home/light/scenarios", cfg.MQTT.ScenariosTopic())
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 2, cfg.EventBus.GetWorkers())
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout.Duration())
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("LIGHTPLAN_TEST_BROKER", "tcp://env:1883")

	cfg, err := Parse([]byte(`
mqtt:
  broker: ${LIGHTPLAN_TEST_BROKER}
  username: ${LIGHTPLAN_TEST_MISSING:guest}
  password: ${LIGHTPLAN_TEST_MISSING}
`))
	require.NoError(t, err)

	assert.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
	assert.Equal(t, "guest", cfg.MQTT.Username)
	assert.Empty(t, cfg.MQTT.Password)
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("shutdown_timeout: soon\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/x.db\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
