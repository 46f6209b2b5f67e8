// Package gateway implements the server side of the homed gateway TCP
// protocol: byte framing, the Diffie-Hellman handshake and AES-128-CBC
// session cipher, the per-connection authentication state machine, and the
// TCP listener that hosts the connection fleet.
//
// A connection moves through three states driven purely by bytes arriving
// on the socket:
//
//	awaiting handshake -> awaiting auth -> authorized
//
// The first 12 bytes of the stream are the raw DH preamble; everything after
// is framed, encrypted JSON. Messages received once authorized are routed by
// topic prefix (status/, expose/, device/, fd/) to typed callbacks in wire
// order. A single deadline covers handshake plus authorization, and the
// receive buffer is bounded; crossing either closes the connection.
//
// The wire format is a compatibility contract with deployed gateways.
// In particular the 32-bit DH exchange and the zero-padded (non-PKCS#7)
// CBC mode cannot be changed server-side.
package gateway
