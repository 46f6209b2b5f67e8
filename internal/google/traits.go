package google

import (
	"math"

	"github.com/homedcloud/homed-cloud/internal/device"
)

// Handler implements one Google trait: whether a device supports it, the
// attributes it contributes at SYNC, the state fragment it contributes at
// QUERY, and the translation of its commands into gateway messages.
type Handler interface {
	Trait() Trait
	Supports(exposes []string, options device.Options) bool
	Attributes(exposes []string, options device.Options) map[string]any
	State(state device.State) map[string]any
	Command(cmd Command) map[string]any
}

// handlers is the fixed trait registry. Order matters twice: trait
// inference emits traits in this order, and command translation takes the
// first handler that produces a message.
var handlers = []Handler{
	onOffHandler{},
	brightnessHandler{},
	colorSettingHandler{},
	openCloseHandler{},
	temperatureSettingHandler{},
	sensorStateHandler{},
}

func handlerFor(trait Trait) (Handler, bool) {
	for _, h := range handlers {
		if h.Trait() == trait {
			return h, true
		}
	}
	return nil, false
}

// TraitsFor infers the trait set for an expose list.
func TraitsFor(exposes []string, options device.Options) []Trait {
	var traits []Trait
	for _, h := range handlers {
		if h.Supports(exposes, options) {
			traits = append(traits, h.Trait())
		}
	}
	return traits
}

// primaryExposes orders the exposes that can anchor a control endpoint;
// the first match is the endpoint's primary expose.
var primaryExposes = []string{
	"color_light", "dimmable_light", "light",
	"outlet", "relay", "switch",
	"blinds", "curtain", "shutter", "cover",
	"door_lock", "lock",
	"thermostat", "temperature_controller",
}

// controlExposes is the vocabulary that makes an endpoint controllable.
var controlExposes = map[string]bool{
	"switch": true, "relay": true, "outlet": true,
	"light": true, "dimmable_light": true, "color_light": true,
	"brightness": true, "color": true,
	"cover": true, "blinds": true, "curtain": true, "shutter": true,
	"lock": true, "door_lock": true,
	"thermostat": true, "temperature_controller": true,
}

// sensorExposes lists the sensor tags that contribute SensorState, in the
// order sensorStatesSupported reports them.
var sensorExposes = []string{
	"temperature", "humidity", "pressure", "co2", "pm10", "pm25",
	"co", "no2", "contact", "occupancy", "motion", "water_leak",
	"gas", "smoke",
}

// sensorUnits maps numeric sensors to the unit their raw values carry.
var sensorUnits = map[string]string{
	"temperature": "C",
	"humidity":    "%",
	"pressure":    "Pa",
	"co2":         "ppm",
	"co":          "ppm",
	"no2":         "ppm",
	"pm10":        "µg/m³",
	"pm25":        "µg/m³",
}

func hasExpose(exposes []string, name string) bool {
	for _, e := range exposes {
		if e == name {
			return true
		}
	}
	return false
}

func hasAnyExpose(exposes []string, names ...string) bool {
	for _, name := range names {
		if hasExpose(exposes, name) {
			return true
		}
	}
	return false
}

func hasPowerMonitoring(exposes []string) bool {
	return hasAnyExpose(exposes, "power", "energy", "voltage", "current")
}

// optionStrings reads a string-list option, tolerating both []string and
// the []any produced by JSON decoding.
func optionStrings(options device.Options, key string) []string {
	if options == nil {
		return nil
	}
	switch val := options[key].(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func optionListContains(options device.Options, key, item string) bool {
	for _, s := range optionStrings(options, key) {
		if s == item {
			return true
		}
	}
	return false
}

// toFloat coerces the numeric types a JSON-fed state map can hold.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truthy interprets the loose boolean encodings gateways use.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "on" || val == "true" || val == "1"
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}
