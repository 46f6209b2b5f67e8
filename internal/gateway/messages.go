package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// authMessage is the first encrypted message a gateway sends. Both fields
// are required; anything else on the wire before authorization is a
// protocol violation.
type authMessage struct {
	UniqueID string `json:"uniqueId"`
	Token    string `json:"token"`
}

func parseAuthMessage(data []byte) (authMessage, error) {
	var msg authMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return authMessage{}, fmt.Errorf("%w: auth message: %v", ErrSchema, err)
	}
	if msg.UniqueID == "" || msg.Token == "" {
		return authMessage{}, fmt.Errorf("%w: auth message missing uniqueId or token", ErrSchema)
	}
	return msg, nil
}

// inboundMessage is the envelope for every post-auth message from a
// gateway: a topic and an opaque payload routed by the topic's prefix.
type inboundMessage struct {
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// parseInboundMessage separates fatal protocol errors (not JSON at all)
// from recoverable schema errors (JSON without a usable envelope).
func parseInboundMessage(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return inboundMessage{}, fmt.Errorf("%w: message envelope: %v", ErrProtocol, err)
	}
	if msg.Topic == "" {
		return inboundMessage{}, fmt.Errorf("%w: message without topic", ErrSchema)
	}
	return msg, nil
}

// outboundMessage is the envelope for every message the server sends to a
// gateway after the handshake.
type outboundMessage struct {
	Action  string `json:"action"`
	Topic   string `json:"topic,omitempty"`
	Message any    `json:"message,omitempty"`
	Device  string `json:"device,omitempty"`
	Service string `json:"service,omitempty"`
}

// StringOrNumber accepts a JSON string or number and normalises it to a
// string. Gateway firmware reports versions in both forms.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StringOrNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = StringOrNumber(num.String())
	return nil
}

// DeviceInfo is one entry in a status message's device list.
type DeviceInfo struct {
	IEEEAddress  string         `json:"ieeeAddress"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Manufacturer string         `json:"manufacturerName"`
	Model        string         `json:"modelName"`
	Firmware     string         `json:"firmware"`
	Version      StringOrNumber `json:"version"`
	Active       *bool          `json:"active"`
	Discovery    *bool          `json:"discovery"`
	Cloud        *bool          `json:"cloud"`
}

// Key returns the device's identity within its service: the friendly name
// when set, otherwise the hardware address.
func (d DeviceInfo) Key() string {
	if d.Name != "" {
		return d.Name
	}
	return d.IEEEAddress
}

// StatusMessage is the payload of a status/<service> topic: the full
// device list of one gateway service.
type StatusMessage struct {
	Devices []DeviceInfo `json:"devices"`
	Names   *bool        `json:"names"`
}

func parseStatusMessage(data []byte) (StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return StatusMessage{}, fmt.Errorf("%w: status message: %v", ErrSchema, err)
	}
	return msg, nil
}

// ExposeEndpoint describes what one endpoint of a device exposes and the
// per-expose options that refine it.
type ExposeEndpoint struct {
	Items   []string       `json:"items"`
	Options map[string]any `json:"options"`
}

// parseExposeMessage decodes an expose/<device> payload: endpoint ids
// (numeric strings, or the word "common" for endpoint zero) mapped to
// their expose lists.
func parseExposeMessage(data []byte) (map[int]ExposeEndpoint, error) {
	var raw map[string]ExposeEndpoint
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: expose message: %v", ErrSchema, err)
	}
	endpoints := make(map[int]ExposeEndpoint, len(raw))
	for key, ep := range raw {
		id := 0
		if key != "common" {
			n, err := strconv.Atoi(key)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: expose endpoint id %q", ErrSchema, key)
			}
			id = n
		}
		endpoints[id] = ep
	}
	return endpoints, nil
}

// AvailabilityMessage is the payload of a device/<device> topic.
type AvailabilityMessage struct {
	Status string `json:"status"`
}

func parseAvailabilityMessage(data []byte) (AvailabilityMessage, error) {
	var msg AvailabilityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return AvailabilityMessage{}, fmt.Errorf("%w: availability message: %v", ErrSchema, err)
	}
	if msg.Status == "" {
		return AvailabilityMessage{}, fmt.Errorf("%w: availability without status", ErrSchema)
	}
	return msg, nil
}

// parseReadingMessage decodes an fd/ payload: expose names mapped to
// their current values.
func parseReadingMessage(data []byte) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: device reading: %v", ErrSchema, err)
	}
	return values, nil
}

// splitTopic cuts a topic into its routing prefix and the remainder.
func splitTopic(topic string) (prefix, rest string) {
	if i := strings.IndexByte(topic, '/'); i >= 0 {
		return topic[:i], topic[i+1:]
	}
	return topic, ""
}

// splitReadingTopic separates an fd/ topic remainder into device key and
// optional endpoint id. The endpoint is the final path segment when it
// parses as a positive integer and at least one segment precedes it.
func splitReadingTopic(rest string) (deviceKey string, endpointID int) {
	i := strings.LastIndexByte(rest, '/')
	if i < 0 {
		return rest, 0
	}
	n, err := strconv.Atoi(rest[i+1:])
	if err != nil || n <= 0 {
		return rest, 0
	}
	return rest[:i], n
}
