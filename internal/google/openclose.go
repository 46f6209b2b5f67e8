package google

import "github.com/homedcloud/homed-cloud/internal/device"

type openCloseHandler struct{}

func (openCloseHandler) Trait() Trait { return TraitOpenClose }

func (openCloseHandler) Supports(exposes []string, _ device.Options) bool {
	return hasAnyExpose(exposes, "cover", "blinds", "curtain", "shutter")
}

func (openCloseHandler) Attributes([]string, device.Options) map[string]any {
	return nil
}

// State reads a numeric position, else maps the open/closed state string.
// An unrecognised string reads as half-open rather than guessing a side.
func (openCloseHandler) State(state device.State) map[string]any {
	if v, ok := toFloat(state["position"]); ok {
		return map[string]any{"openPercent": int(clamp(v, 0, 100))}
	}
	if s, ok := state["state"].(string); ok {
		switch s {
		case "open":
			return map[string]any{"openPercent": 100}
		case "closed":
			return map[string]any{"openPercent": 0}
		default:
			return map[string]any{"openPercent": 50}
		}
	}
	return nil
}

func (openCloseHandler) Command(cmd Command) map[string]any {
	c, ok := cmd.(OpenCloseCommand)
	if !ok {
		return nil
	}
	return map[string]any{"position": int(clamp(c.OpenPercent, 0, 100))}
}
