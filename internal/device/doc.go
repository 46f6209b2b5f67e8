// Package device holds the in-memory model of every user's devices and
// their last-known state, fed by gateway traffic and read by the
// fulfillment layer.
//
// The repository is the single writer ordering point: mutations from
// gateway connections are applied under one lock and change events are
// dispatched synchronously in the order the mutations happened, so
// downstream consumers observe a per-gateway history consistent with the
// wire. All snapshots handed out are deep copies; callers may mutate them
// freely.
package device
