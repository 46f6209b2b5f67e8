package device

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/homedcloud/homed-cloud/internal/gateway"
)

// Logger is the minimal logging interface the device package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Commander is the slice of a gateway connection the repository needs to
// push commands through.
type Commander interface {
	Publish(topic string, message any) error
	Authorized() bool
}

// ConnectionSource resolves a (user, gateway) pair to its live connection.
// *gateway.Server satisfies it through a thin adapter.
type ConnectionSource interface {
	Connection(userID, clientID string) (Commander, bool)
}

// StateChange describes one observed state transition of a device.
// Previous and Current are isolated snapshots.
type StateChange struct {
	UserID   string
	ClientID string
	Device   Device
	Previous State
	Current  State
}

type deviceEntry struct {
	device Device
	state  State
}

type clientEntry struct {
	devices map[string]*deviceEntry
}

// Repository is the in-memory device store for all users.
type Repository struct {
	log Logger

	// dispatchMu orders event dispatch: it is taken for the whole of a
	// mutation including its callbacks, so listeners see changes in the
	// order they were applied.
	dispatchMu sync.Mutex

	mu    sync.RWMutex
	users map[string]map[string]*clientEntry // userID -> clientID

	source ConnectionSource

	listenerMu       sync.Mutex
	onDevicesUpdated []func(userID string)
	onStateChanged   []func(change StateChange)
}

// NewRepository builds an empty repository.
func NewRepository(log Logger) *Repository {
	if log == nil {
		log = noopLogger{}
	}
	return &Repository{
		log:   log,
		users: make(map[string]map[string]*clientEntry),
	}
}

// SetConnectionSource wires the repository to the gateway connection
// registry. Must be called before ExecuteCommand is used.
func (r *Repository) SetConnectionSource(source ConnectionSource) {
	r.source = source
}

// OnDevicesUpdated registers a listener for changes to a user's device
// set or device structure.
func (r *Repository) OnDevicesUpdated(fn func(userID string)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onDevicesUpdated = append(r.onDevicesUpdated, fn)
}

// OnStateChanged registers a listener for device state transitions.
func (r *Repository) OnStateChanged(fn func(change StateChange)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.onStateChanged = append(r.onStateChanged, fn)
}

func (r *Repository) fireDevicesUpdated(userID string) {
	r.listenerMu.Lock()
	listeners := append([]func(string){}, r.onDevicesUpdated...)
	r.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(userID)
	}
}

func (r *Repository) fireStateChanged(change StateChange) {
	r.listenerMu.Lock()
	listeners := append([]func(StateChange){}, r.onStateChanged...)
	r.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}

func (r *Repository) client(userID, clientID string) *clientEntry {
	clients, ok := r.users[userID]
	if !ok {
		clients = make(map[string]*clientEntry)
		r.users[userID] = clients
	}
	entry, ok := clients[clientID]
	if !ok {
		entry = &clientEntry{devices: make(map[string]*deviceEntry)}
		clients[clientID] = entry
	}
	return entry
}

// ApplyStatus replaces the device list of one gateway service. Devices of
// that service absent from the message are removed; metadata of the rest
// is refreshed.
func (r *Repository) ApplyStatus(userID, clientID, service string, msg gateway.StatusMessage) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	changed := false

	r.mu.Lock()
	entry := r.client(userID, clientID)
	prefix := service + "/"

	seen := make(map[string]bool, len(msg.Devices))
	for _, info := range msg.Devices {
		key := prefix + info.Key()
		seen[key] = true

		existing, ok := entry.devices[key]
		updated := Device{
			Key:          key,
			Name:         info.Name,
			Description:  info.Description,
			Manufacturer: info.Manufacturer,
			Model:        info.Model,
			Version:      string(info.Version),
			Firmware:     info.Firmware,
		}
		if !ok {
			entry.devices[key] = &deviceEntry{device: updated, state: State{}}
			changed = true
			continue
		}
		updated.Endpoints = existing.device.Endpoints
		if !reflect.DeepEqual(existing.device, updated) {
			existing.device = updated
			changed = true
		}
	}

	for key := range entry.devices {
		if strings.HasPrefix(key, prefix) && !seen[key] {
			delete(entry.devices, key)
			changed = true
		}
	}
	r.mu.Unlock()

	if changed {
		r.log.Debug("device list updated",
			"user_id", userID, "client_id", clientID, "service", service)
		r.fireDevicesUpdated(userID)
	}
}

// ApplyExposes replaces a device's endpoint structure.
func (r *Repository) ApplyExposes(userID, clientID, deviceKey string, endpoints map[int]gateway.ExposeEndpoint) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	ids := make([]int, 0, len(endpoints))
	for id := range endpoints {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	next := make([]Endpoint, 0, len(ids))
	for _, id := range ids {
		ep := endpoints[id]
		next = append(next, Endpoint{
			ID:      id,
			Exposes: append([]string(nil), ep.Items...),
			Options: Options(ep.Options),
		})
	}

	changed := false
	r.mu.Lock()
	entry := r.client(userID, clientID)
	dev, ok := entry.devices[deviceKey]
	if !ok {
		dev = &deviceEntry{device: Device{Key: deviceKey}, state: State{}}
		entry.devices[deviceKey] = dev
		changed = true
	}
	if !reflect.DeepEqual(dev.device.Endpoints, next) {
		dev.device.Endpoints = next
		changed = true
	}
	r.mu.Unlock()

	if changed {
		r.fireDevicesUpdated(userID)
	}
}

// ApplyAvailability records a device going online or offline.
func (r *Repository) ApplyAvailability(userID, clientID, deviceKey string, online bool) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	entry := r.client(userID, clientID)
	dev, ok := entry.devices[deviceKey]
	if !ok {
		r.mu.Unlock()
		return
	}
	previous := dev.state.DeepCopy()
	if prev, ok := dev.state["available"].(bool); ok && prev == online {
		r.mu.Unlock()
		return
	}
	dev.state["available"] = online
	change := StateChange{
		UserID:   userID,
		ClientID: clientID,
		Device:   dev.device.DeepCopy(),
		Previous: previous,
		Current:  dev.state.DeepCopy(),
	}
	r.mu.Unlock()

	r.fireStateChanged(change)
}

// ApplyReading merges a device reading into its state. endpointID zero
// targets the state root; a positive id targets that endpoint's
// sub-object.
func (r *Repository) ApplyReading(userID, clientID, deviceKey string, endpointID int, values map[string]any) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	entry := r.client(userID, clientID)
	dev, ok := entry.devices[deviceKey]
	if !ok {
		r.mu.Unlock()
		return
	}
	previous := dev.state.DeepCopy()

	target := map[string]any(dev.state)
	if endpointID > 0 {
		endpoints, ok := dev.state["endpoints"].(map[string]any)
		if !ok {
			endpoints = make(map[string]any)
			dev.state["endpoints"] = endpoints
		}
		sub, ok := endpoints[strconv.Itoa(endpointID)].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			endpoints[strconv.Itoa(endpointID)] = sub
		}
		target = sub
	}
	for k, v := range values {
		target[k] = copyValue(v)
	}

	change := StateChange{
		UserID:   userID,
		ClientID: clientID,
		Device:   dev.device.DeepCopy(),
		Previous: previous,
		Current:  dev.state.DeepCopy(),
	}
	r.mu.Unlock()

	r.fireStateChanged(change)
}

// GetDevices returns every device of a user across all gateways, in a
// stable order.
func (r *Repository) GetDevices(userID string) []ClientDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ClientDevice
	for clientID, entry := range r.users[userID] {
		for _, dev := range entry.devices {
			out = append(out, ClientDevice{ClientID: clientID, Device: dev.device.DeepCopy()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientID != out[j].ClientID {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].Device.Key < out[j].Device.Key
	})
	return out
}

// GetDevicesWithState returns every device of a user with its state
// snapshot.
func (r *Repository) GetDevicesWithState(userID string) []ClientDeviceState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ClientDeviceState
	for clientID, entry := range r.users[userID] {
		for _, dev := range entry.devices {
			out = append(out, ClientDeviceState{
				ClientID: clientID,
				Device:   dev.device.DeepCopy(),
				State:    dev.state.DeepCopy(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientID != out[j].ClientID {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].Device.Key < out[j].Device.Key
	})
	return out
}

// GetDeviceState returns the state snapshot of one device.
func (r *Repository) GetDeviceState(userID, clientID, deviceKey string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID][clientID]
	if !ok {
		return nil, false
	}
	dev, ok := entry.devices[deviceKey]
	if !ok {
		return nil, false
	}
	return dev.state.DeepCopy(), true
}

// ExecuteCommand pushes a command message to a device through its
// gateway connection. Reports false when the gateway is not connected,
// not authorized, or the write fails.
func (r *Repository) ExecuteCommand(userID, clientID, deviceKey string, endpointID int, message map[string]any) bool {
	if r.source == nil {
		return false
	}
	conn, ok := r.source.Connection(userID, clientID)
	if !ok || !conn.Authorized() {
		return false
	}

	topic := "td/" + deviceKey
	if endpointID > 0 {
		topic += "/" + strconv.Itoa(endpointID)
	}
	if err := conn.Publish(topic, message); err != nil {
		r.log.Warn("command publish failed",
			"user_id", userID, "client_id", clientID, "topic", topic, "error", err)
		return false
	}
	r.log.Debug("command published",
		"user_id", userID, "client_id", clientID, "topic", topic)
	return true
}

// RemoveUserDevices drops everything known about a user. Used when the
// user unlinks their account.
func (r *Repository) RemoveUserDevices(userID string) {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}
