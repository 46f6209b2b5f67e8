package fulfillment

import "errors"

var (
	// ErrInvalidRequest indicates a request body that does not conform to
	// the intent schema. The HTTP edge maps it to a 400.
	ErrInvalidRequest = errors.New("fulfillment: invalid request")

	// ErrSyncFailed indicates Home Graph rejected a REQUEST_SYNC call.
	ErrSyncFailed = errors.New("fulfillment: request sync failed")

	// ErrReportStateFailed indicates Home Graph rejected a state report.
	ErrReportStateFailed = errors.New("fulfillment: report state failed")
)
