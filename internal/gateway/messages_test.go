package gateway

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAuthMessage(t *testing.T) {
	msg, err := parseAuthMessage([]byte(`{"uniqueId":"c-1","token":"t-1"}`))
	if err != nil {
		t.Fatalf("parseAuthMessage() unexpected error: %v", err)
	}
	if msg.UniqueID != "c-1" || msg.Token != "t-1" {
		t.Errorf("parseAuthMessage() = %+v, want {c-1 t-1}", msg)
	}
}

func TestParseAuthMessageStrict(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing token", `{"uniqueId":"c-1"}`},
		{"missing uniqueId", `{"token":"t-1"}`},
		{"empty object", `{}`},
		{"not json", `hello`},
		{"wrong types", `{"uniqueId":1,"token":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseAuthMessage([]byte(tt.data)); !errors.Is(err, ErrSchema) {
				t.Errorf("parseAuthMessage(%s) error = %v, want ErrSchema", tt.data, err)
			}
		})
	}
}

func TestStringOrNumber(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"string", `{"version":"1.2.3"}`, "1.2.3"},
		{"integer", `{"version":42}`, "42"},
		{"float", `{"version":1.5}`, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var info DeviceInfo
			if err := json.Unmarshal([]byte(tt.data), &info); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if string(info.Version) != tt.want {
				t.Errorf("Version = %q, want %q", info.Version, tt.want)
			}
		})
	}
}

func TestDeviceInfoKey(t *testing.T) {
	named := DeviceInfo{Name: "Lamp", IEEEAddress: "0x00124b0001"}
	if got := named.Key(); got != "Lamp" {
		t.Errorf("Key() = %q, want name", got)
	}
	unnamed := DeviceInfo{IEEEAddress: "0x00124b0001"}
	if got := unnamed.Key(); got != "0x00124b0001" {
		t.Errorf("Key() = %q, want ieee address", got)
	}
}

func TestParseExposeMessage(t *testing.T) {
	data := []byte(`{
		"1": {"items": ["light"], "options": {"light": ["level"]}},
		"2": {"items": ["switch"]},
		"common": {"items": ["linkQuality"]}
	}`)
	endpoints, err := parseExposeMessage(data)
	if err != nil {
		t.Fatalf("parseExposeMessage() unexpected error: %v", err)
	}
	if len(endpoints) != 3 {
		t.Fatalf("got %d endpoints, want 3", len(endpoints))
	}
	if got := endpoints[1].Items; len(got) != 1 || got[0] != "light" {
		t.Errorf("endpoint 1 items = %v, want [light]", got)
	}
	if _, ok := endpoints[1].Options["light"]; !ok {
		t.Error("endpoint 1 missing light option")
	}
	if got := endpoints[0].Items; len(got) != 1 || got[0] != "linkQuality" {
		t.Errorf("common endpoint items = %v, want [linkQuality]", got)
	}
}

func TestParseExposeMessageBadEndpoint(t *testing.T) {
	for _, data := range []string{
		`{"x": {"items": []}}`,
		`{"-1": {"items": []}}`,
		`[1,2,3]`,
	} {
		if _, err := parseExposeMessage([]byte(data)); !errors.Is(err, ErrSchema) {
			t.Errorf("parseExposeMessage(%s) error = %v, want ErrSchema", data, err)
		}
	}
}

func TestParseAvailabilityMessage(t *testing.T) {
	msg, err := parseAvailabilityMessage([]byte(`{"status":"online"}`))
	if err != nil {
		t.Fatalf("parseAvailabilityMessage() unexpected error: %v", err)
	}
	if msg.Status != "online" {
		t.Errorf("Status = %q, want online", msg.Status)
	}
	if _, err := parseAvailabilityMessage([]byte(`{}`)); !errors.Is(err, ErrSchema) {
		t.Errorf("empty availability error = %v, want ErrSchema", err)
	}
}

func TestSplitTopic(t *testing.T) {
	tests := []struct {
		topic  string
		prefix string
		rest   string
	}{
		{"status/zigbee", "status", "zigbee"},
		{"expose/zigbee/Lamp", "expose", "zigbee/Lamp"},
		{"fd/zigbee/Lamp/2", "fd", "zigbee/Lamp/2"},
		{"status", "status", ""},
	}
	for _, tt := range tests {
		prefix, rest := splitTopic(tt.topic)
		if prefix != tt.prefix || rest != tt.rest {
			t.Errorf("splitTopic(%q) = (%q, %q), want (%q, %q)",
				tt.topic, prefix, rest, tt.prefix, tt.rest)
		}
	}
}

func TestSplitReadingTopic(t *testing.T) {
	tests := []struct {
		rest     string
		device   string
		endpoint int
	}{
		{"zigbee/Lamp", "zigbee/Lamp", 0},
		{"zigbee/Lamp/2", "zigbee/Lamp", 2},
		{"Lamp", "Lamp", 0},
		{"zigbee/Lamp/0", "zigbee/Lamp/0", 0},
		{"zigbee/Lamp/x", "zigbee/Lamp/x", 0},
	}
	for _, tt := range tests {
		device, endpoint := splitReadingTopic(tt.rest)
		if device != tt.device || endpoint != tt.endpoint {
			t.Errorf("splitReadingTopic(%q) = (%q, %d), want (%q, %d)",
				tt.rest, device, endpoint, tt.device, tt.endpoint)
		}
	}
}
