package google

import (
	"reflect"

	"github.com/homedcloud/homed-cloud/internal/device"
)

// stateFragment collects the trait state contributions for an expose view.
func stateFragment(exposes []string, options device.Options, state device.State) DeviceState {
	out := DeviceState{}
	for _, trait := range TraitsFor(exposes, options) {
		handler, ok := handlerFor(trait)
		if !ok {
			continue
		}
		for k, v := range handler.State(state) {
			out[k] = v
		}
	}
	return out
}

func online(state device.State) bool {
	if v, ok := state["available"].(bool); ok {
		return v
	}
	return true
}

// MapToGoogleState builds the full Google state of an unsplit device view:
// online status plus every applicable trait fragment.
func MapToGoogleState(d device.Device, state device.State) DeviceState {
	exposes, options := mergedView(d)
	out := DeviceState{"online": online(state)}
	for k, v := range stateFragment(exposes, options, state) {
		out[k] = v
	}
	return out
}

// MapToGoogleStates builds the per-GoogleDeviceId state mapping for a
// device. Split devices read each endpoint's state sub-object, falling
// back to the device-level state when the endpoint has none.
func MapToGoogleStates(d device.Device, clientID string, state device.State) map[string]DeviceState {
	out := make(map[string]DeviceState)
	for _, proj := range projections(d, clientID) {
		source := state
		if proj.hasEndpoint {
			if sub, ok := state.Endpoint(proj.endpointID); ok {
				source = sub
			}
		}
		entry := DeviceState{"online": online(state)}
		for k, v := range stateFragment(proj.exposes, proj.options, source) {
			entry[k] = v
		}
		out[proj.id] = entry
	}
	return out
}

// StateUpdates returns the projected states that differ between two state
// snapshots under deep structural equality. Nil when nothing is exposed or
// nothing changed.
func StateUpdates(d device.Device, clientID string, prev, next device.State) map[string]DeviceState {
	exposed := false
	for _, ep := range d.Endpoints {
		if len(ep.Exposes) > 0 {
			exposed = true
			break
		}
	}
	if !exposed {
		return nil
	}

	before := MapToGoogleStates(d, clientID, prev)
	after := MapToGoogleStates(d, clientID, next)

	out := make(map[string]DeviceState)
	for id, state := range after {
		if !reflect.DeepEqual(before[id], state) {
			out[id] = state
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
