package google

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/homedcloud/homed-cloud/internal/device"
)

func TestOnOffState(t *testing.T) {
	h := onOffHandler{}
	tests := []struct {
		name  string
		state device.State
		want  map[string]any
	}{
		{"bool on", device.State{"on": true}, map[string]any{"on": true}},
		{"bool off", device.State{"on": false}, map[string]any{"on": false}},
		{"status string", device.State{"status": "on"}, map[string]any{"on": true}},
		{"status off string", device.State{"status": "off"}, map[string]any{"on": false}},
		{"state string", device.State{"state": "on"}, map[string]any{"on": true}},
		{"power truthy", device.State{"power": float64(1)}, map[string]any{"on": true}},
		{"on wins over status", device.State{"on": false, "status": "on"}, map[string]any{"on": false}},
		{"nothing", device.State{"level": 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.State(tt.state)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOnOffCommand(t *testing.T) {
	h := onOffHandler{}
	if diff := cmp.Diff(map[string]any{"status": "on"}, h.Command(OnOffCommand{On: true})); diff != "" {
		t.Errorf("on command mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"status": "off"}, h.Command(OnOffCommand{On: false})); diff != "" {
		t.Errorf("off command mismatch (-want +got):\n%s", diff)
	}
	if got := h.Command(OpenCloseCommand{}); got != nil {
		t.Errorf("foreign command = %v, want nil", got)
	}
}

func TestBrightnessState(t *testing.T) {
	h := brightnessHandler{}
	tests := []struct {
		name  string
		state device.State
		want  map[string]any
	}{
		{"native brightness", device.State{"brightness": float64(60)}, map[string]any{"brightness": 60}},
		{"brightness clamped", device.State{"brightness": float64(150)}, map[string]any{"brightness": 100}},
		{"level 255", device.State{"level": float64(255)}, map[string]any{"brightness": 100}},
		{"level 128", device.State{"level": float64(128)}, map[string]any{"brightness": 50}},
		{"level 0", device.State{"level": float64(0)}, map[string]any{"brightness": 0}},
		{"brightness wins over level", device.State{"brightness": float64(10), "level": float64(255)},
			map[string]any{"brightness": 10}},
		{"nothing", device.State{"on": true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.State(tt.state)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBrightnessCommand(t *testing.T) {
	h := brightnessHandler{}
	tests := []struct {
		brightness float64
		wantLevel  int
	}{
		{100, 255},
		{50, 128},
		{0, 0},
		{-10, 0},
		{150, 255},
	}
	for _, tt := range tests {
		got := h.Command(BrightnessAbsoluteCommand{Brightness: tt.brightness})
		if diff := cmp.Diff(map[string]any{"level": tt.wantLevel}, got); diff != "" {
			t.Errorf("Command(%v) mismatch (-want +got):\n%s", tt.brightness, diff)
		}
	}
}

func TestColorSettingAttributes(t *testing.T) {
	h := colorSettingHandler{}

	attrs := h.Attributes([]string{"color_light"}, nil)
	if attrs["colorModel"] != "rgb" {
		t.Errorf("colorModel = %v, want rgb", attrs["colorModel"])
	}

	attrs = h.Attributes([]string{"color_light", "color_temperature"}, nil)
	if attrs["colorModel"] != "hsv" {
		t.Errorf("colorModel with color_temperature = %v, want hsv", attrs["colorModel"])
	}

	attrs = h.Attributes([]string{"color_light"}, device.Options{"colorTemperature": map[string]any{"min": 150}})
	if attrs["colorModel"] != "hsv" {
		t.Errorf("colorModel with colorTemperature option = %v, want hsv", attrs["colorModel"])
	}
}

func TestColorSettingState(t *testing.T) {
	h := colorSettingHandler{}
	tests := []struct {
		name  string
		state device.State
		want  map[string]any
	}{
		{
			"rgb object passthrough",
			device.State{"color": map[string]any{"r": 255, "g": 0, "b": 0}},
			map[string]any{"color": map[string]any{"r": 255, "g": 0, "b": 0}},
		},
		{
			"xy object passthrough",
			device.State{"color": map[string]any{"x": 0.3, "y": 0.4}},
			map[string]any{"color": map[string]any{"x": 0.3, "y": 0.4}},
		},
		{
			"hex string",
			device.State{"color": "#ff8000"},
			map[string]any{"color": map[string]any{"spectrumRgb": 0xff8000}},
		},
		{
			"temperature",
			device.State{"colorTemperature": float64(4000)},
			map[string]any{"color": map[string]any{"temperatureK": 4000}},
		},
		{"nothing", device.State{"on": true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.State(tt.state)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestColorSettingCommand(t *testing.T) {
	h := colorSettingHandler{}

	got := h.Command(ColorAbsoluteCommand{Color: SpectrumRGB(0xff8000)})
	want := map[string]any{"color": map[string]any{"r": 255, "g": 128, "b": 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rgb command mismatch (-want +got):\n%s", diff)
	}

	got = h.Command(ColorAbsoluteCommand{Color: SpectrumHSV{Hue: 120, Saturation: 1, Value: 0.5}})
	want = map[string]any{"color": map[string]any{"h": 120.0, "s": 1.0, "v": 0.5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hsv command mismatch (-want +got):\n%s", diff)
	}

	got = h.Command(ColorAbsoluteCommand{Color: TemperatureK(3000)})
	want = map[string]any{"colorTemperature": 3000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("temperature command mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenCloseState(t *testing.T) {
	h := openCloseHandler{}
	tests := []struct {
		name  string
		state device.State
		want  map[string]any
	}{
		{"position", device.State{"position": float64(70)}, map[string]any{"openPercent": 70}},
		{"position clamped", device.State{"position": float64(130)}, map[string]any{"openPercent": 100}},
		{"state open", device.State{"state": "open"}, map[string]any{"openPercent": 100}},
		{"state closed", device.State{"state": "closed"}, map[string]any{"openPercent": 0}},
		{"state unknown", device.State{"state": "stopped"}, map[string]any{"openPercent": 50}},
		{"nothing", device.State{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.State(tt.state)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpenCloseCommand(t *testing.T) {
	h := openCloseHandler{}
	if diff := cmp.Diff(map[string]any{"position": 30}, h.Command(OpenCloseCommand{OpenPercent: 30})); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestTemperatureSettingAttributes(t *testing.T) {
	h := temperatureSettingHandler{}

	attrs := h.Attributes([]string{"thermostat"}, nil)
	if attrs["thermostatTemperatureUnit"] != "CELSIUS" {
		t.Errorf("unit = %v, want CELSIUS", attrs["thermostatTemperatureUnit"])
	}
	if diff := cmp.Diff([]string{"heat", "cool", "off"}, attrs["availableThermostatModes"]); diff != "" {
		t.Errorf("default modes mismatch (-want +got):\n%s", diff)
	}

	attrs = h.Attributes([]string{"thermostat"}, device.Options{
		"systemMode": map[string]any{"enum": []any{"off", "heat", "boost"}},
	})
	if diff := cmp.Diff([]string{"off", "heat"}, attrs["availableThermostatModes"]); diff != "" {
		t.Errorf("filtered modes mismatch (-want +got):\n%s", diff)
	}

	attrs = h.Attributes([]string{"temperature"}, nil)
	if attrs["queryOnlyTemperatureSetting"] != true {
		t.Error("expected query-only attributes without a controllable expose")
	}
}

func TestTemperatureSettingState(t *testing.T) {
	h := temperatureSettingHandler{}
	got := h.State(device.State{
		"temperature": float64(21.5),
		"humidity":    float64(40),
		"setpoint":    float64(23),
		"mode":        "heat",
	})
	want := map[string]any{
		"thermostatTemperatureAmbient":  21.5,
		"thermostatHumidityAmbient":     40.0,
		"thermostatTemperatureSetpoint": 23.0,
		"thermostatMode":                "heat",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}

	if got := h.State(device.State{"mode": "boost"}); got != nil {
		t.Errorf("invalid mode produced state %v, want nil", got)
	}
}

func TestTemperatureSettingCommands(t *testing.T) {
	h := temperatureSettingHandler{}
	if diff := cmp.Diff(map[string]any{"setpoint": 22.5},
		h.Command(ThermostatTemperatureSetpointCommand{Setpoint: 22.5})); diff != "" {
		t.Errorf("setpoint command mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"mode": "eco"},
		h.Command(ThermostatSetModeCommand{Mode: "eco"})); diff != "" {
		t.Errorf("mode command mismatch (-want +got):\n%s", diff)
	}
}

func TestSensorStateAttributes(t *testing.T) {
	h := sensorStateHandler{}
	attrs := h.Attributes([]string{"temperature", "contact"}, nil)
	supported, ok := attrs["sensorStatesSupported"].([]map[string]any)
	if !ok || len(supported) != 2 {
		t.Fatalf("sensorStatesSupported = %v, want two entries", attrs["sensorStatesSupported"])
	}
	if supported[0]["name"] != "temperature" {
		t.Errorf("first sensor = %v, want temperature", supported[0]["name"])
	}
	caps, ok := supported[0]["numericCapabilities"].(map[string]any)
	if !ok || caps["rawValueUnit"] != "C" {
		t.Errorf("temperature capabilities = %v, want rawValueUnit C", supported[0]["numericCapabilities"])
	}
	if _, ok := supported[1]["numericCapabilities"]; ok {
		t.Error("contact sensor should have no numeric capabilities")
	}
}

func TestSensorStateState(t *testing.T) {
	h := sensorStateHandler{}
	got := h.State(device.State{
		"occupancy":   true,
		"contact":     true,
		"smoke":       false,
		"water_leak":  true,
		"gas":         false,
		"temperature": float64(21.5),
		"humidity":    float64(45),
	})

	if got["occupancy"] != "OCCUPIED" {
		t.Errorf("occupancy = %v, want OCCUPIED", got["occupancy"])
	}
	if got["openclose"] != "CLOSED" {
		t.Errorf("openclose = %v, want CLOSED (contact true means shut)", got["openclose"])
	}
	if got["smoke"] != "NO_SMOKE" {
		t.Errorf("smoke = %v, want NO_SMOKE", got["smoke"])
	}
	if got["waterleak"] != "LEAK" {
		t.Errorf("waterleak = %v, want LEAK", got["waterleak"])
	}
	if got["gas"] != "NORMAL" {
		t.Errorf("gas = %v, want NORMAL", got["gas"])
	}

	numeric, ok := got["currentSensorStateData"].([]map[string]any)
	if !ok || len(numeric) != 2 {
		t.Fatalf("currentSensorStateData = %v, want two entries", got["currentSensorStateData"])
	}
	if numeric[0]["name"] != "temperature" || numeric[0]["rawValue"] != 21.5 {
		t.Errorf("first numeric entry = %v, want temperature 21.5", numeric[0])
	}
}

func TestSensorStateMotionFallback(t *testing.T) {
	h := sensorStateHandler{}
	got := h.State(device.State{"motion": false})
	if got["occupancy"] != "UNOCCUPIED" {
		t.Errorf("occupancy from motion = %v, want UNOCCUPIED", got["occupancy"])
	}
}
