package google

import (
	"strconv"
	"strings"

	"github.com/homedcloud/homed-cloud/internal/device"
)

// projection is one GoogleDevice a HomedDevice maps to, with the expose
// and option view used for its traits, attributes and state.
type projection struct {
	id          string
	endpointID  int
	hasEndpoint bool
	exposes     []string
	options     device.Options
	suffix      string
}

// primaryExpose returns the endpoint's primary expose, if it has one.
func primaryExpose(exposes []string) (string, bool) {
	for _, primary := range primaryExposes {
		if hasExpose(exposes, primary) {
			return primary, true
		}
	}
	return "", false
}

func controlEndpoints(d device.Device) []device.Endpoint {
	var out []device.Endpoint
	for _, ep := range d.Endpoints {
		for _, expose := range ep.Exposes {
			if controlExposes[expose] {
				out = append(out, ep)
				break
			}
		}
	}
	return out
}

// shouldSplit decides whether a device projects to one GoogleDevice per
// control endpoint: at least two control endpoints, at least two of them
// anchored by a primary expose, and all anchored ones agreeing on it.
func shouldSplit(control []device.Endpoint) bool {
	if len(control) < 2 {
		return false
	}
	primaries := 0
	first := ""
	for _, ep := range control {
		primary, ok := primaryExpose(ep.Exposes)
		if !ok {
			continue
		}
		primaries++
		if first == "" {
			first = primary
		} else if primary != first {
			return false
		}
	}
	return primaries >= 2
}

// mergedView unions exposes across endpoints (deduplicated, in first-seen
// order) and merges option maps with later endpoints overriding.
func mergedView(d device.Device) ([]string, device.Options) {
	var exposes []string
	seen := map[string]bool{}
	options := device.Options{}
	for _, ep := range d.Endpoints {
		for _, expose := range ep.Exposes {
			if !seen[expose] {
				seen[expose] = true
				exposes = append(exposes, expose)
			}
		}
		for k, v := range ep.Options {
			options[k] = v
		}
	}
	return exposes, options
}

func projections(d device.Device, clientID string) []projection {
	control := controlEndpoints(d)
	if shouldSplit(control) {
		out := make([]projection, 0, len(control))
		for _, ep := range control {
			out = append(out, projection{
				id:          EndpointDeviceID(clientID, d.Key, ep.ID),
				endpointID:  ep.ID,
				hasEndpoint: true,
				exposes:     ep.Exposes,
				options:     ep.Options,
				suffix:      " - Switch " + strconv.Itoa(ep.ID),
			})
		}
		return out
	}

	exposes, options := mergedView(d)
	return []projection{{
		id:      DeviceID(clientID, d.Key),
		exposes: exposes,
		options: options,
	}}
}

// TypeFor detects the Google device type for an expose set, first match
// wins. An empty set reads as a sensor.
func TypeFor(exposes []string) DeviceType {
	switch {
	case len(exposes) == 0:
		return TypeSensor
	case hasExpose(exposes, "smoke"):
		return TypeSmokeAlarm
	case hasAnyExpose(exposes, "temperature", "humidity", "pressure", "co2",
		"pm10", "pm25", "co", "no2", "contact", "occupancy", "motion",
		"water_leak", "gas"):
		return TypeSensor
	case hasExpose(exposes, "outlet"):
		return TypeOutlet
	case hasAnyExpose(exposes, "light", "color_light", "dimmable_light"):
		return TypeLight
	case hasAnyExpose(exposes, "lock", "door_lock"):
		return TypeLock
	case hasAnyExpose(exposes, "thermostat", "temperature_controller"):
		return TypeThermostat
	case hasAnyExpose(exposes, "cover", "blinds", "curtain", "shutter"):
		return TypeBlinds
	case hasAnyExpose(exposes, "switch", "relay"):
		return TypeSwitch
	default:
		return TypeSensor
	}
}

// MapToGoogleDevices projects one HomedDevice into its GoogleDevices.
// Projections with an empty trait set are included; SYNC filters them.
func MapToGoogleDevices(d device.Device, clientID string) []Device {
	projs := projections(d, clientID)
	out := make([]Device, 0, len(projs))
	for _, proj := range projs {
		traits := TraitsFor(proj.exposes, proj.options)

		attributes := map[string]any{}
		for _, trait := range traits {
			handler, ok := handlerFor(trait)
			if !ok {
				continue
			}
			for k, v := range handler.Attributes(proj.exposes, proj.options) {
				attributes[k] = v
			}
		}
		if len(attributes) == 0 {
			attributes = nil
		}

		out = append(out, Device{
			ID:              proj.id,
			Type:            TypeFor(proj.exposes),
			Traits:          traits,
			Name:            nameBlock(d, proj.suffix),
			WillReportState: true,
			Attributes:      attributes,
			DeviceInfo:      deviceInfo(d),
		})
	}
	return out
}

func friendlyName(d device.Device) string {
	if d.Name != "" {
		return d.Name
	}
	if i := strings.LastIndexByte(d.Key, '/'); i >= 0 {
		return d.Key[i+1:]
	}
	return d.Key
}

func nameBlock(d device.Device, suffix string) DeviceName {
	name := friendlyName(d) + suffix

	var nicknames []string
	if d.Description != "" {
		nicknames = append(nicknames, d.Description)
	}
	if vendor := strings.TrimSpace(strings.TrimSpace(d.Manufacturer) + " " + strings.TrimSpace(d.Model)); vendor != "" {
		nicknames = append(nicknames, vendor)
	}

	return DeviceName{
		DefaultNames: []string{name},
		Name:         name,
		Nicknames:    nicknames,
	}
}

func deviceInfo(d device.Device) DeviceInfo {
	info := DeviceInfo{
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
		HwVersion:    d.Version,
		SwVersion:    d.Firmware,
	}
	if info.Manufacturer == "" {
		info.Manufacturer = "Unknown Manufacturer"
	}
	if info.Model == "" {
		info.Model = "Unknown Model"
	}
	if info.HwVersion == "" {
		info.HwVersion = "unknown"
	}
	if info.SwVersion == "" {
		info.SwVersion = "unknown"
	}
	return info
}
