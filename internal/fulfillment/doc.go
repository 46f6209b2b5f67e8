// Package fulfillment serves the Google Smart Home intent interface and
// drives proactive Home Graph updates.
//
// Inbound: HandleFulfillment parses an intent envelope (SYNC, QUERY,
// EXECUTE, DISCONNECT) and answers it from the device repository.
// Outbound: repository events trigger a debounced REQUEST_SYNC and
// per-device state reports. Home Graph failures are logged, never
// surfaced to the intent caller.
package fulfillment
