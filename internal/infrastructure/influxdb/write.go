package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading records the numeric values of a device reading.
//
// Boolean readings are stored as 0/1 so availability-style flags chart
// cleanly; string and structured values are skipped. The write is
// non-blocking.
func (c *Client) WriteReading(userID, clientID, deviceKey string, endpointID int, hasEndpoint bool, readings map[string]any) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]any)
	for name, value := range readings {
		if v, ok := numericValue(value); ok {
			fields[name] = v
		}
	}
	if len(fields) == 0 {
		return
	}

	tags := map[string]string{
		"user_id":    userID,
		"client_id":  clientID,
		"device_key": deviceKey,
	}
	if hasEndpoint {
		tags["endpoint"] = strconv.Itoa(endpointID)
	}

	c.writeAPI.WritePoint(write.NewPoint("device_readings", tags, fields, time.Now()))
}

// WriteAvailability records a device availability transition.
func (c *Client) WriteAvailability(userID, clientID, deviceKey string, online bool) {
	if !c.IsConnected() {
		return
	}

	online01 := 0.0
	if online {
		online01 = 1.0
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"device_availability",
		map[string]string{
			"user_id":    userID,
			"client_id":  clientID,
			"device_key": deviceKey,
		},
		map[string]any{"online": online01},
		time.Now(),
	))
}

// numericValue coerces a reading value to float64 where that makes sense
// for time-series storage.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
