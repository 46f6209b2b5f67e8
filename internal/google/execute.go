package google

import "github.com/homedcloud/homed-cloud/internal/device"

// CommandToSend is one planned gateway command produced from an EXECUTE
// intent.
type CommandToSend struct {
	UserID          string
	ClientID        string
	DeviceKey       string
	EndpointID      int
	HasEndpoint     bool
	GoogleDeviceIDs []string
	Message         map[string]any
}

// MapToHomedCommand translates a Google command into a gateway message:
// the first handler whose trait the device carries and which understands
// the command wins.
func MapToHomedCommand(d device.Device, cmd Command) (map[string]any, bool) {
	exposes, options := mergedView(d)
	supported := map[Trait]bool{}
	for _, trait := range TraitsFor(exposes, options) {
		supported[trait] = true
	}
	for _, handler := range handlers {
		if !supported[handler.Trait()] {
			continue
		}
		if msg := handler.Command(cmd); len(msg) > 0 {
			return msg, true
		}
	}
	return nil, false
}

// MapExecutionRequest plans gateway commands for an EXECUTE group: for
// every owned projection matching a requested id, each command that
// translates yields one CommandToSend.
func MapExecutionRequest(userID string, requestedIDs []string, commands []Command, all []device.ClientDevice) []CommandToSend {
	requested := make(map[string]bool, len(requestedIDs))
	for _, id := range requestedIDs {
		requested[id] = true
	}

	var out []CommandToSend
	for _, cd := range all {
		for _, proj := range projections(cd.Device, cd.ClientID) {
			if !requested[proj.id] {
				continue
			}

			// Restrict the translation view to the matched endpoint for
			// split devices.
			view := cd.Device
			if proj.hasEndpoint {
				if ep, ok := cd.Device.Endpoint(proj.endpointID); ok {
					view = cd.Device.DeepCopy()
					view.Endpoints = []device.Endpoint{ep}
				}
			}

			endpointID, hasEndpoint := proj.endpointID, proj.hasEndpoint
			if !hasEndpoint {
				endpointID, hasEndpoint = soleNonZeroEndpoint(cd.Device)
			}

			for _, cmd := range commands {
				message, ok := MapToHomedCommand(view, cmd)
				if !ok {
					continue
				}
				out = append(out, CommandToSend{
					UserID:          userID,
					ClientID:        cd.ClientID,
					DeviceKey:       cd.Device.Key,
					EndpointID:      endpointID,
					HasEndpoint:     hasEndpoint,
					GoogleDeviceIDs: []string{proj.id},
					Message:         message,
				})
			}
		}
	}
	return out
}

// soleNonZeroEndpoint reports the endpoint id to address when an unsplit
// device still needs endpoint routing: exactly one endpoint with id > 0.
func soleNonZeroEndpoint(d device.Device) (int, bool) {
	id := 0
	count := 0
	for _, ep := range d.Endpoints {
		if ep.ID > 0 {
			id = ep.ID
			count++
		}
	}
	if count == 1 {
		return id, true
	}
	return 0, false
}
