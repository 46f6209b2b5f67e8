// Package google maps the gateway device model onto the Google Smart Home
// model: device projection with multi-endpoint splitting, trait inference
// from expose tags, state mapping with structural diffing, and command
// translation back to gateway messages.
//
// Everything here is pure and stateless; the fulfillment router drives it.
package google
