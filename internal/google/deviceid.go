package google

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceID encodes a (gateway, device) pair as a Google device id:
// "<clientId>/<deviceKey>".
func DeviceID(clientID, deviceKey string) string {
	return clientID + "/" + deviceKey
}

// EndpointDeviceID encodes a split endpoint: "<clientId>/<deviceKey>#<id>".
func EndpointDeviceID(clientID, deviceKey string, endpointID int) string {
	return clientID + "/" + deviceKey + "#" + strconv.Itoa(endpointID)
}

// ParsedDeviceID is the decomposition of a Google device id. EndpointID is
// meaningful only when HasEndpoint is true.
type ParsedDeviceID struct {
	ClientID    string
	DeviceKey   string
	EndpointID  int
	HasEndpoint bool
}

// ParseDeviceID is the inverse of DeviceID and EndpointDeviceID. The
// client id is the first path segment; the device key may itself contain
// slashes.
func ParseDeviceID(id string) (ParsedDeviceID, error) {
	slash := strings.IndexByte(id, '/')
	if slash <= 0 || slash == len(id)-1 {
		return ParsedDeviceID{}, fmt.Errorf("google: malformed device id %q", id)
	}
	parsed := ParsedDeviceID{
		ClientID:  id[:slash],
		DeviceKey: id[slash+1:],
	}
	if hash := strings.LastIndexByte(parsed.DeviceKey, '#'); hash >= 0 {
		endpoint, err := strconv.Atoi(parsed.DeviceKey[hash+1:])
		if err != nil || endpoint < 0 {
			return ParsedDeviceID{}, fmt.Errorf("google: malformed endpoint in device id %q", id)
		}
		parsed.EndpointID = endpoint
		parsed.HasEndpoint = true
		parsed.DeviceKey = parsed.DeviceKey[:hash]
	}
	if parsed.DeviceKey == "" {
		return ParsedDeviceID{}, fmt.Errorf("google: malformed device id %q", id)
	}
	return parsed, nil
}
