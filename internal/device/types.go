package device

import "strconv"

// Device is one device behind a gateway, assembled from status and expose
// messages.
type Device struct {
	// Key identifies the device within its gateway: "<service>/<name>",
	// with the hardware address standing in for a missing name.
	Key string

	Name         string
	Description  string
	Manufacturer string
	Model        string
	Version      string
	Firmware     string

	// Endpoints lists what the device exposes, one entry per endpoint id.
	// Endpoint zero holds device-wide exposes.
	Endpoints []Endpoint
}

// Endpoint is one functional unit of a device.
type Endpoint struct {
	ID      int
	Exposes []string
	Options Options
}

// Options refines exposes, keyed by expose name.
type Options map[string]any

// State is the last-known state of a device: expose names mapped to
// values, plus an "endpoints" sub-object keyed by endpoint id for
// endpoint-scoped readings.
type State map[string]any

// Endpoint returns the state sub-object for one endpoint, if present.
func (s State) Endpoint(id int) (State, bool) {
	endpoints, ok := s["endpoints"].(map[string]any)
	if !ok {
		return nil, false
	}
	sub, ok := endpoints[strconv.Itoa(id)].(map[string]any)
	if !ok {
		return nil, false
	}
	return State(sub), true
}

// DeepCopy returns an isolated copy of the state tree.
func (s State) DeepCopy() State {
	if s == nil {
		return nil
	}
	return State(copyValue(map[string]any(s)).(map[string]any))
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// DeepCopy returns an isolated copy of the device, endpoints included.
func (d Device) DeepCopy() Device {
	out := d
	out.Endpoints = make([]Endpoint, len(d.Endpoints))
	for i, ep := range d.Endpoints {
		copied := ep
		copied.Exposes = append([]string(nil), ep.Exposes...)
		if ep.Options != nil {
			copied.Options = copyValue(map[string]any(ep.Options)).(map[string]any)
		}
		out.Endpoints[i] = copied
	}
	return out
}

// Endpoint returns the endpoint with the given id, if present.
func (d Device) Endpoint(id int) (Endpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// ClientDevice pairs a device with the gateway it lives behind.
type ClientDevice struct {
	ClientID string
	Device   Device
}

// ClientDeviceState additionally carries the device's state snapshot.
type ClientDeviceState struct {
	ClientID string
	Device   Device
	State    State
}
