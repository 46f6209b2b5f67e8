package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/api/homegraph/v1"
	"google.golang.org/api/option"

	"github.com/homedcloud/homed-cloud/internal/google"
)

// HomeGraph is the outbound port to Google's Home Graph API.
type HomeGraph interface {
	// RequestSync asks Google to re-run SYNC for the agent user.
	RequestSync(ctx context.Context, agentUserID string) error

	// ReportState pushes complete per-device states, keyed by Google
	// device id.
	ReportState(ctx context.Context, agentUserID string, states map[string]google.DeviceState) error
}

// HomeGraphService implements HomeGraph against the homegraph/v1 API.
type HomeGraphService struct {
	devices *homegraph.DevicesService
}

// NewHomeGraphService builds the adapter from a service-account
// credentials file.
func NewHomeGraphService(ctx context.Context, credentialsFile string) (*HomeGraphService, error) {
	svc, err := homegraph.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("creating homegraph service: %w", err)
	}
	return &HomeGraphService{devices: homegraph.NewDevicesService(svc)}, nil
}

// RequestSync triggers a synchronous REQUEST_SYNC call.
func (s *HomeGraphService) RequestSync(ctx context.Context, agentUserID string) error {
	call := s.devices.RequestSync(&homegraph.RequestSyncDevicesRequest{
		AgentUserId: agentUserID,
	})
	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSyncFailed, resp.ServerResponse.HTTPStatusCode)
	}
	return nil
}

// ReportState pushes device states via ReportStateAndNotification.
func (s *HomeGraphService) ReportState(ctx context.Context, agentUserID string, states map[string]google.DeviceState) error {
	jsonStates, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("%w: encoding states: %w", ErrReportStateFailed, err)
	}

	call := s.devices.ReportStateAndNotification(&homegraph.ReportStateAndNotificationRequest{
		AgentUserId: agentUserID,
		RequestId:   uuid.NewString(),
		Payload: &homegraph.StateAndNotificationPayload{
			Devices: &homegraph.ReportStateAndNotificationDevice{
				States: jsonStates,
			},
		},
	})
	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReportStateFailed, err)
	}
	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrReportStateFailed, resp.ServerResponse.HTTPStatusCode)
	}
	return nil
}
