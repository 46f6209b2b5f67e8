package google

import (
	"strconv"

	"github.com/homedcloud/homed-cloud/internal/device"
)

type colorSettingHandler struct{}

func (colorSettingHandler) Trait() Trait { return TraitColorSetting }

func (colorSettingHandler) Supports(exposes []string, options device.Options) bool {
	if hasAnyExpose(exposes, "color_light", "color") {
		return true
	}
	return hasExpose(exposes, "light") &&
		(optionListContains(options, "light", "color") ||
			optionListContains(options, "light", "colorTemperature"))
}

func (colorSettingHandler) Attributes(exposes []string, options device.Options) map[string]any {
	model := "rgb"
	if hasExpose(exposes, "color_temperature") {
		model = "hsv"
	}
	if options != nil {
		if _, ok := options["colorTemperature"]; ok {
			model = "hsv"
		}
	}
	return map[string]any{"colorModel": model}
}

// State passes colour objects through, converts hex strings to a packed
// spectrum value, and reports colour temperature when present.
func (colorSettingHandler) State(state device.State) map[string]any {
	if raw, ok := state["color"]; ok {
		switch color := raw.(type) {
		case map[string]any:
			_, hasR := color["r"]
			_, hasX := color["x"]
			if hasR || hasX {
				return map[string]any{"color": color}
			}
		case string:
			if rgb, ok := parseHexColor(color); ok {
				return map[string]any{"color": map[string]any{"spectrumRgb": rgb}}
			}
		}
	}
	if v, ok := toFloat(state["colorTemperature"]); ok {
		return map[string]any{"color": map[string]any{"temperatureK": int(v)}}
	}
	return nil
}

func parseHexColor(s string) (int, bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, false
	}
	v, err := strconv.ParseInt(s[1:], 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func (colorSettingHandler) Command(cmd Command) map[string]any {
	c, ok := cmd.(ColorAbsoluteCommand)
	if !ok {
		return nil
	}
	switch color := c.Color.(type) {
	case SpectrumRGB:
		return map[string]any{"color": map[string]any{
			"r": (int(color) >> 16) & 0xff,
			"g": (int(color) >> 8) & 0xff,
			"b": int(color) & 0xff,
		}}
	case SpectrumHSV:
		return map[string]any{"color": map[string]any{
			"h": color.Hue,
			"s": color.Saturation,
			"v": color.Value,
		}}
	case TemperatureK:
		return map[string]any{"colorTemperature": int(color)}
	default:
		return nil
	}
}
