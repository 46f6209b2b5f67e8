package google

import (
	"math"

	"github.com/homedcloud/homed-cloud/internal/device"
)

type brightnessHandler struct{}

func (brightnessHandler) Trait() Trait { return TraitBrightness }

// Supports adds Brightness for dimmable lights. A plain light with a
// "level" option qualifies unless the device also monitors power, where
// "level" describes metering rather than dimming.
func (brightnessHandler) Supports(exposes []string, options device.Options) bool {
	if hasAnyExpose(exposes, "dimmable_light", "color_light", "brightness") {
		return true
	}
	return hasExpose(exposes, "light") &&
		optionListContains(options, "light", "level") &&
		!hasPowerMonitoring(exposes)
}

func (brightnessHandler) Attributes([]string, device.Options) map[string]any {
	return nil
}

// State prefers a native 0..100 brightness, else normalises a 0..255
// level.
func (brightnessHandler) State(state device.State) map[string]any {
	if v, ok := toFloat(state["brightness"]); ok {
		return map[string]any{"brightness": int(clamp(v, 0, 100))}
	}
	if v, ok := toFloat(state["level"]); ok {
		return map[string]any{"brightness": int(math.Round(v * 100 / 255))}
	}
	return nil
}

func (brightnessHandler) Command(cmd Command) map[string]any {
	c, ok := cmd.(BrightnessAbsoluteCommand)
	if !ok {
		return nil
	}
	brightness := clamp(c.Brightness, 0, 100)
	return map[string]any{"level": int(math.Round(brightness * 255 / 100))}
}
