package influxdb

import (
	"errors"
	"testing"

	"github.com/homedcloud/homed-cloud/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float64", float64(21.5), 21.5, true},
		{"int", 42, 42, true},
		{"int64", int64(7), 7, true},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"string", "on", 0, false},
		{"map", map[string]any{"r": 1}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numericValue(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("numericValue(%v) = (%v, %v), want (%v, %v)",
					tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWriteReadingSkipsWhenDisconnected(t *testing.T) {
	// Zero-value client: never connected, writeAPI nil. Writes must be
	// silently dropped rather than panicking.
	c := &Client{}
	c.WriteReading("u-1", "c-1", "zigbee/lamp", 0, false, map[string]any{"temperature": 21.0})
	c.WriteAvailability("u-1", "c-1", "zigbee/lamp", true)
	c.Flush()
}
