package google

import "github.com/homedcloud/homed-cloud/internal/device"

type onOffHandler struct{}

func (onOffHandler) Trait() Trait { return TraitOnOff }

func (onOffHandler) Supports(exposes []string, _ device.Options) bool {
	if hasAnyExpose(exposes, "switch", "relay", "outlet", "lock",
		"light", "dimmable_light", "color_light") {
		return true
	}
	return hasExpose(exposes, "brightness") && hasExpose(exposes, "light")
}

func (onOffHandler) Attributes([]string, device.Options) map[string]any {
	return nil
}

// State reads the on/off flag from the first of on, status, state, power.
func (onOffHandler) State(state device.State) map[string]any {
	for _, key := range []string{"on", "status", "state", "power"} {
		v, ok := state[key]
		if !ok {
			continue
		}
		if b, ok := v.(bool); ok {
			return map[string]any{"on": b}
		}
		return map[string]any{"on": truthy(v)}
	}
	return nil
}

func (onOffHandler) Command(cmd Command) map[string]any {
	c, ok := cmd.(OnOffCommand)
	if !ok {
		return nil
	}
	status := "off"
	if c.On {
		status = "on"
	}
	return map[string]any{"status": status}
}
