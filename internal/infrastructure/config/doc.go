// Package config loads and validates homed-cloud configuration.
//
// Configuration is read from a YAML file, with hardcoded defaults applied
// first and environment variables (HOMEDCLOUD_*) applied last. Validation
// rejects configurations that would start an insecure or non-functional
// server (missing JWT secret, unbound gateway listener, etc.).
//
// The gateway protocol parameters (auth timeout, receive buffer bound) are
// compatibility values shared with the deployed gateway fleet; change them
// only in lockstep with gateway firmware.
package config
