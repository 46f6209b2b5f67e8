package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homedcloud/homed-cloud/internal/auth"
	"github.com/homedcloud/homed-cloud/internal/device"
	"github.com/homedcloud/homed-cloud/internal/google"
)

// Logger is the minimal logging interface the fulfillment package needs.
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

// Statuses of a commandResult entry.
const (
	statusSuccess = "SUCCESS"
	statusOffline = "OFFLINE"

	errorCodeDeviceOffline = "deviceOffline"
)

// homeGraphTimeout bounds each outbound Home Graph call.
const homeGraphTimeout = 10 * time.Second

// Router answers Smart Home intents from the device repository and
// pushes proactive updates to the Home Graph.
type Router struct {
	repo      *device.Repository
	users     auth.UserRepository
	homeGraph HomeGraph
	log       Logger

	syncDebounce *debouncer
}

// NewRouter wires a router to the repository's change events. The
// homeGraph may be nil, in which case proactive reporting is a no-op.
func NewRouter(repo *device.Repository, users auth.UserRepository, homeGraph HomeGraph, syncDebounce time.Duration, log Logger) *Router {
	if log == nil {
		log = noopLogger{}
	}

	r := &Router{
		repo:      repo,
		users:     users,
		homeGraph: homeGraph,
		log:       log,
	}
	r.syncDebounce = newDebouncer(syncDebounce, r.requestSync)

	repo.OnDevicesUpdated(func(userID string) {
		r.syncDebounce.Trigger(userID)
	})
	repo.OnStateChanged(r.onStateChanged)

	return r
}

// Close cancels pending debounced syncs.
func (r *Router) Close() {
	r.syncDebounce.Close()
}

// HandleFulfillment answers one intent request for an authenticated
// user. The returned bytes are the JSON response body.
func (r *Router) HandleFulfillment(ctx context.Context, user *auth.User, body []byte) ([]byte, error) {
	req, err := parseRequest(body)
	if err != nil {
		return nil, err
	}

	input := req.Inputs[0]
	r.log.Debug("handling intent",
		"request_id", req.RequestID, "intent", input.Intent, "user_id", user.ID)

	switch input.Intent {
	case intentSync:
		return r.handleSync(req.RequestID, user)
	case intentQuery:
		if input.Query == nil {
			return nil, fmt.Errorf("%w: missing QUERY payload", ErrInvalidRequest)
		}
		return r.handleQuery(req.RequestID, user, input.Query)
	case intentExecute:
		if input.Execute == nil {
			return nil, fmt.Errorf("%w: missing EXECUTE payload", ErrInvalidRequest)
		}
		return r.handleExecute(req.RequestID, user, input.Execute)
	case intentDisconnect:
		return r.handleDisconnect(ctx, user)
	}

	return nil, fmt.Errorf("%w: unsupported intent %q", ErrInvalidRequest, input.Intent)
}

// handleSync builds the device list. Devices without endpoints and
// projections without any trait are invisible to Google.
func (r *Router) handleSync(requestID string, user *auth.User) ([]byte, error) {
	resp := syncResponse{RequestID: requestID}
	resp.Payload.AgentUserID = user.ID
	resp.Payload.Devices = []google.Device{}

	for _, cd := range r.repo.GetDevicesWithState(user.ID) {
		if len(cd.Device.Endpoints) == 0 {
			continue
		}
		for _, dev := range google.MapToGoogleDevices(cd.Device, cd.ClientID) {
			if len(dev.Traits) == 0 {
				continue
			}
			resp.Payload.Devices = append(resp.Payload.Devices, dev)
		}
	}

	return json.Marshal(resp)
}

// handleQuery reports state for exactly the requested ids.
func (r *Router) handleQuery(requestID string, user *auth.User, payload *queryPayload) ([]byte, error) {
	requested := make(map[string]bool, len(payload.Devices))
	for _, ref := range payload.Devices {
		requested[ref.ID] = true
	}

	resp := queryResponse{RequestID: requestID}
	resp.Payload.Devices = map[string]google.DeviceState{}

	for _, cd := range r.repo.GetDevicesWithState(user.ID) {
		for id, state := range google.MapToGoogleStates(cd.Device, cd.ClientID, cd.State) {
			if requested[id] {
				resp.Payload.Devices[id] = state
			}
		}
	}

	return json.Marshal(resp)
}

// handleExecute plans and dispatches commands, reporting per-command
// SUCCESS or OFFLINE. An unreachable gateway is never a request failure.
func (r *Router) handleExecute(requestID string, user *auth.User, payload *executePayload) ([]byte, error) {
	all := r.repo.GetDevices(user.ID)

	resp := executeResponse{RequestID: requestID}
	resp.Payload.Commands = []commandResult{}

	for _, group := range payload.Commands {
		commands := make([]google.Command, 0, len(group.Execution))
		for _, spec := range group.Execution {
			cmd, err := decodeCommand(spec)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		}

		ids := make([]string, 0, len(group.Devices))
		for _, ref := range group.Devices {
			ids = append(ids, ref.ID)
		}

		for _, plan := range google.MapExecutionRequest(user.ID, ids, commands, all) {
			endpointID := 0
			if plan.HasEndpoint {
				endpointID = plan.EndpointID
			}

			result := commandResult{IDs: plan.GoogleDeviceIDs, Status: statusSuccess}
			if !r.repo.ExecuteCommand(plan.UserID, plan.ClientID, plan.DeviceKey, endpointID, plan.Message) {
				result.Status = statusOffline
				result.ErrorCode = errorCodeDeviceOffline
			}
			resp.Payload.Commands = append(resp.Payload.Commands, result)
		}
	}

	return json.Marshal(resp)
}

// handleDisconnect unlinks the account: the user row goes away (gateway
// tokens cascade) along with every device we hold for them.
func (r *Router) handleDisconnect(ctx context.Context, user *auth.User) ([]byte, error) {
	if err := r.users.Delete(ctx, user.ID); err != nil {
		r.log.Warn("deleting user on disconnect", "user_id", user.ID, "error", err)
	}
	r.repo.RemoveUserDevices(user.ID)

	return []byte("{}"), nil
}

// requestSync is the debounced REQUEST_SYNC trigger.
func (r *Router) requestSync(userID string) {
	if r.homeGraph == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), homeGraphTimeout)
	defer cancel()

	if err := r.homeGraph.RequestSync(ctx, userID); err != nil {
		r.log.Warn("request sync failed", "user_id", userID, "error", err)
		return
	}
	r.log.Debug("requested sync", "user_id", userID)
}

// onStateChanged projects a repository state transition into Google
// state and reports it. Runs the outbound call on its own goroutine so
// gateway ingest never blocks on Home Graph.
func (r *Router) onStateChanged(change device.StateChange) {
	if r.homeGraph == nil {
		return
	}

	updates := google.StateUpdates(change.Device, change.ClientID, change.Previous, change.Current)
	if len(updates) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), homeGraphTimeout)
		defer cancel()

		if err := r.homeGraph.ReportState(ctx, change.UserID, updates); err != nil {
			r.log.Warn("report state failed",
				"user_id", change.UserID, "device_key", change.Device.Key, "error", err)
		}
	}()
}
