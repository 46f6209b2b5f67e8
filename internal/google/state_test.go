package google

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/homedcloud/homed-cloud/internal/device"
)

func dimmableLamp(key string) device.Device {
	return device.Device{
		Key: key,
		Endpoints: []device.Endpoint{
			{ID: 0, Exposes: []string{"light"}, Options: device.Options{"light": []any{"level"}}},
		},
	}
}

func TestMapToGoogleStateOnline(t *testing.T) {
	d := dimmableLamp("dev3")

	got := MapToGoogleState(d, device.State{})
	if got["online"] != true {
		t.Errorf("online with no availability = %v, want true", got["online"])
	}

	got = MapToGoogleState(d, device.State{"available": false})
	if got["online"] != false {
		t.Errorf("online with available=false = %v, want false", got["online"])
	}

	got = MapToGoogleState(d, device.State{"available": true})
	if got["online"] != true {
		t.Errorf("online with available=true = %v, want true", got["online"])
	}
}

func TestMapToGoogleStateTraitFragments(t *testing.T) {
	d := dimmableLamp("dev3")
	got := MapToGoogleState(d, device.State{"on": true, "level": float64(255)})

	want := DeviceState{"online": true, "on": true, "brightness": 100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapToGoogleState() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapToGoogleStatesSplitDevice(t *testing.T) {
	d := device.Device{
		Key: "strip",
		Endpoints: []device.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"switch"}},
		},
	}
	state := device.State{
		"endpoints": map[string]any{
			"1": map[string]any{"status": "on"},
			"2": map[string]any{"status": "off"},
		},
	}

	got := MapToGoogleStates(d, "c-1", state)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got["c-1/strip#1"]["on"] != true {
		t.Errorf("endpoint 1 on = %v, want true", got["c-1/strip#1"]["on"])
	}
	if got["c-1/strip#2"]["on"] != false {
		t.Errorf("endpoint 2 on = %v, want false", got["c-1/strip#2"]["on"])
	}
}

func TestMapToGoogleStatesEndpointFallback(t *testing.T) {
	d := device.Device{
		Key: "strip",
		Endpoints: []device.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"switch"}},
		},
	}
	// No per-endpoint state: both projections fall back to the device
	// level state.
	state := device.State{"status": "on"}

	got := MapToGoogleStates(d, "c-1", state)
	for _, id := range []string{"c-1/strip#1", "c-1/strip#2"} {
		if got[id]["on"] != true {
			t.Errorf("%s on = %v, want true (device-level fallback)", id, got[id]["on"])
		}
	}
}

func TestStateUpdatesReportsOnlyChanges(t *testing.T) {
	d := dimmableLamp("dev3")
	prev := device.State{"on": true, "level": float64(128)}
	next := device.State{"on": true, "level": float64(255)}

	got := StateUpdates(d, "c-1", prev, next)
	want := map[string]DeviceState{
		"c-1/dev3": {"online": true, "on": true, "brightness": 100},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StateUpdates() mismatch (-want +got):\n%s", diff)
	}
}

func TestStateUpdatesIdenticalStatesYieldNone(t *testing.T) {
	d := dimmableLamp("dev3")
	state := device.State{"on": true, "level": float64(128)}

	if got := StateUpdates(d, "c-1", state, state); got != nil {
		t.Errorf("StateUpdates(s, s) = %v, want nil", got)
	}
}

func TestStateUpdatesProjectedNoChange(t *testing.T) {
	// level 254 and 255 both project to brightness 100; the raw change is
	// invisible in Google state.
	d := dimmableLamp("dev3")
	prev := device.State{"on": true, "level": float64(254)}
	next := device.State{"on": true, "level": float64(255)}

	if got := StateUpdates(d, "c-1", prev, next); got != nil {
		t.Errorf("StateUpdates() = %v, want nil for identical projections", got)
	}
}

func TestStateUpdatesNothingExposed(t *testing.T) {
	d := device.Device{Key: "ghost", Endpoints: []device.Endpoint{{ID: 0}}}
	prev := device.State{"x": 1}
	next := device.State{"x": 2}

	if got := StateUpdates(d, "c-1", prev, next); got != nil {
		t.Errorf("StateUpdates() = %v, want nil when nothing is exposed", got)
	}
}

func TestStateUpdatesSplitDeviceOnlyChangedEndpoint(t *testing.T) {
	d := device.Device{
		Key: "strip",
		Endpoints: []device.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"switch"}},
		},
	}
	prev := device.State{
		"endpoints": map[string]any{
			"1": map[string]any{"status": "on"},
			"2": map[string]any{"status": "on"},
		},
	}
	next := device.State{
		"endpoints": map[string]any{
			"1": map[string]any{"status": "on"},
			"2": map[string]any{"status": "off"},
		},
	}

	got := StateUpdates(d, "c-1", prev, next)
	if len(got) != 1 {
		t.Fatalf("got %d updates, want 1: %v", len(got), got)
	}
	if got["c-1/strip#2"]["on"] != false {
		t.Errorf("changed endpoint state = %v, want on=false", got["c-1/strip#2"])
	}
}

func TestRoundLevel254(t *testing.T) {
	// Guards the rounding convention the projected-no-change test
	// depends on.
	h := brightnessHandler{}
	if got := h.State(device.State{"level": float64(254)}); got["brightness"] != 100 {
		t.Errorf("level 254 brightness = %v, want 100", got["brightness"])
	}
}
