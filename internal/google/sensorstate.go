package google

import "github.com/homedcloud/homed-cloud/internal/device"

type sensorStateHandler struct{}

func (sensorStateHandler) Trait() Trait { return TraitSensorState }

func (sensorStateHandler) Supports(exposes []string, _ device.Options) bool {
	return hasAnyExpose(exposes, sensorExposes...)
}

func (sensorStateHandler) Attributes(exposes []string, _ device.Options) map[string]any {
	var supported []map[string]any
	for _, sensor := range sensorExposes {
		if !hasExpose(exposes, sensor) {
			continue
		}
		entry := map[string]any{"name": sensor}
		if unit, ok := sensorUnits[sensor]; ok {
			entry["numericCapabilities"] = map[string]any{"rawValueUnit": unit}
		}
		supported = append(supported, entry)
	}
	if len(supported) == 0 {
		return nil
	}
	return map[string]any{"sensorStatesSupported": supported}
}

func (sensorStateHandler) State(state device.State) map[string]any {
	out := map[string]any{}

	if v, ok := boolReading(state, "occupancy"); ok {
		out["occupancy"] = pick(v, "OCCUPIED", "UNOCCUPIED")
	} else if v, ok := boolReading(state, "motion"); ok {
		out["occupancy"] = pick(v, "OCCUPIED", "UNOCCUPIED")
	}
	if v, ok := boolReading(state, "contact"); ok {
		// A closed contact sensor means the opening is shut.
		out["openclose"] = pick(v, "CLOSED", "OPEN")
	}
	if v, ok := boolReading(state, "smoke"); ok {
		out["smoke"] = pick(v, "SMOKE", "NO_SMOKE")
	}
	if v, ok := boolReading(state, "water_leak"); ok {
		out["waterleak"] = pick(v, "LEAK", "NO_LEAK")
	}
	if v, ok := boolReading(state, "gas"); ok {
		out["gas"] = pick(v, "HIGH", "NORMAL")
	}

	var numeric []map[string]any
	for _, sensor := range sensorExposes {
		if _, isNumeric := sensorUnits[sensor]; !isNumeric {
			continue
		}
		v, ok := toFloat(state[sensor])
		if !ok || !isFinite(v) {
			continue
		}
		numeric = append(numeric, map[string]any{"name": sensor, "rawValue": v})
	}
	if len(numeric) > 0 {
		out["currentSensorStateData"] = numeric
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func (sensorStateHandler) Command(Command) map[string]any {
	return nil
}

func boolReading(state device.State, key string) (bool, bool) {
	v, ok := state[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	if !ok {
		return truthy(v), true
	}
	return b, true
}

func pick(cond bool, whenTrue, whenFalse string) string {
	if cond {
		return whenTrue
	}
	return whenFalse
}
