package gateway

import "errors"

// Sentinel errors for gateway protocol failures.
//
// Each maps to one class of connection-fatal fault. Callers use errors.Is
// to classify; all of them except ErrUnknownTopic close the connection.
var (
	// ErrFraming indicates malformed byte framing: a stray byte outside a
	// frame, or an escape byte with nothing following it.
	ErrFraming = errors.New("gateway: malformed framing")

	// ErrCrypto indicates a handshake or cipher failure, such as a
	// ciphertext whose length is not a multiple of the AES block size.
	ErrCrypto = errors.New("gateway: cryptographic failure")

	// ErrProtocol indicates a message that is valid JSON but violates the
	// protocol, such as a non-auth message before authorization.
	ErrProtocol = errors.New("gateway: protocol violation")

	// ErrSchema indicates a payload that failed structural validation.
	ErrSchema = errors.New("gateway: schema violation")

	// ErrTimeout indicates the handshake/authorization deadline expired.
	ErrTimeout = errors.New("gateway: authorization timeout")

	// ErrBufferOverflow indicates the receive buffer exceeded its bound.
	ErrBufferOverflow = errors.New("gateway: receive buffer overflow")

	// ErrUnknownTopic indicates a message on an unrecognised topic prefix.
	// The message is dropped; the connection stays up.
	ErrUnknownTopic = errors.New("gateway: unknown topic")

	// ErrClosed indicates an operation on a connection that has been closed.
	ErrClosed = errors.New("gateway: connection closed")

	// ErrNotAuthorized indicates a send attempted on a connection that has
	// not completed authorization.
	ErrNotAuthorized = errors.New("gateway: connection not authorized")
)
