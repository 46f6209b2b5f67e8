package google

import "github.com/homedcloud/homed-cloud/internal/device"

type temperatureSettingHandler struct{}

func (temperatureSettingHandler) Trait() Trait { return TraitTemperatureSetting }

func (temperatureSettingHandler) Supports(exposes []string, _ device.Options) bool {
	return hasAnyExpose(exposes, "thermostat", "temperature_controller")
}

// validThermostatModes is the closed set Google accepts.
var validThermostatModes = map[string]bool{
	"off": true, "heat": true, "cool": true, "auto": true,
	"drying": true, "eco": true, "heatCool": true,
}

var defaultThermostatModes = []string{"heat", "cool", "off"}

func (temperatureSettingHandler) Attributes(exposes []string, options device.Options) map[string]any {
	if !hasAnyExpose(exposes, "thermostat", "temperature_controller") {
		return map[string]any{
			"queryOnlyTemperatureSetting": true,
			"availableThermostatModes":    []string{"off"},
			"thermostatTemperatureUnit":   "CELSIUS",
		}
	}

	modes := filterModes(optionStrings(options, "modes"))
	if len(modes) == 0 {
		modes = filterModes(enumOption(options, "systemMode"))
	}
	if len(modes) == 0 {
		modes = filterModes(enumOption(options, "operationMode"))
	}
	if len(modes) == 0 {
		modes = defaultThermostatModes
	}
	return map[string]any{
		"availableThermostatModes":  modes,
		"thermostatTemperatureUnit": "CELSIUS",
	}
}

func filterModes(modes []string) []string {
	var out []string
	for _, m := range modes {
		if validThermostatModes[m] {
			out = append(out, m)
		}
	}
	return out
}

// enumOption reads the enum list of a {enum: [...]} option descriptor.
func enumOption(options device.Options, key string) []string {
	if options == nil {
		return nil
	}
	descriptor, ok := options[key].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := descriptor["enum"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (temperatureSettingHandler) State(state device.State) map[string]any {
	out := map[string]any{}
	if v, ok := toFloat(state["temperature"]); ok {
		out["thermostatTemperatureAmbient"] = v
	}
	if v, ok := toFloat(state["humidity"]); ok {
		out["thermostatHumidityAmbient"] = v
	}
	if v, ok := toFloat(state["setpoint"]); ok {
		out["thermostatTemperatureSetpoint"] = v
	}
	if mode, ok := state["mode"].(string); ok && validThermostatModes[mode] {
		out["thermostatMode"] = mode
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (temperatureSettingHandler) Command(cmd Command) map[string]any {
	switch c := cmd.(type) {
	case ThermostatTemperatureSetpointCommand:
		return map[string]any{"setpoint": c.Setpoint}
	case ThermostatSetModeCommand:
		return map[string]any{"mode": c.Mode}
	default:
		return nil
	}
}
