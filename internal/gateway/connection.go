package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State identifies where a connection is in its lifecycle.
type State int32

const (
	// StateAwaitingHandshake means the 12-byte DH preamble has not yet
	// arrived in full.
	StateAwaitingHandshake State = iota
	// StateAwaitingAuth means the session cipher is established but the
	// gateway has not been authorized yet.
	StateAwaitingAuth
	// StateAuthorized means the connection is fully up and routing messages.
	StateAuthorized
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateAuthorized:
		return "authorized"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Logger is the minimal logging interface the gateway package needs.
// *logging.Logger satisfies it.
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

// Handlers carries the typed callbacks a connection dispatches to. Any nil
// handler is skipped. Callbacks for one connection are invoked in wire
// order, never concurrently with each other.
type Handlers struct {
	// OnToken fires once the gateway has presented its credentials. The
	// receiver decides whether to call Authorize or Close.
	OnToken func(c *Conn, uniqueID, token string)

	// OnStatus fires for a status/<service> message.
	OnStatus func(c *Conn, service string, msg StatusMessage)

	// OnExpose fires for an expose/<device> message.
	OnExpose func(c *Conn, deviceKey string, endpoints map[int]ExposeEndpoint)

	// OnAvailability fires for a device/<device> message.
	OnAvailability func(c *Conn, deviceKey string, online bool)

	// OnReading fires for an fd/<device>[/<endpoint>] message.
	// endpointID is zero when the topic carries no endpoint segment.
	OnReading func(c *Conn, deviceKey string, endpointID int, values map[string]any)

	// OnClose fires exactly once when the connection terminates. err is
	// nil for an orderly remote close.
	OnClose func(c *Conn, err error)
}

// Options tunes a connection.
type Options struct {
	// AuthTimeout bounds the time from accept to successful authorization.
	AuthTimeout time.Duration

	// MaxBuffer bounds the receive buffer in bytes.
	MaxBuffer int

	// WriteTimeout bounds each socket write. Defaults to 5s.
	WriteTimeout time.Duration

	Logger Logger

	// Secret supplies the server's DH secret. Defaults to a 31-bit value
	// from crypto/rand; tests substitute a fixed one.
	Secret func() (uint32, error)
}

const defaultWriteTimeout = 5 * time.Second

// Conn is one gateway connection.
//
// A Conn is driven by its owning Server: the server runs the read loop and
// reacts to callbacks. External goroutines interact through Authorize,
// Publish, Subscribe and Close, all of which are safe for concurrent use.
type Conn struct {
	conn     net.Conn
	opts     Options
	handlers Handlers
	log      Logger

	// procMu serialises buffer processing and callback dispatch so that
	// messages are handled strictly in wire order.
	procMu sync.Mutex

	mu       sync.Mutex
	state    State
	buf      []byte
	cipher   *Cipher
	uniqueID string
	userID   string
	pending  *authMessage

	sendMu sync.Mutex

	authTimer *time.Timer
	closeOnce sync.Once
	closeErr  error

	rxPackets atomic.Uint64
	txPackets atomic.Uint64
}

// NewConn wraps an accepted socket. The caller starts processing with Run.
func NewConn(conn net.Conn, handlers Handlers, opts Options) *Conn {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Secret == nil {
		opts.Secret = randomSecret
	}
	c := &Conn{
		conn:     conn,
		opts:     opts,
		handlers: handlers,
		log:      opts.Logger,
		state:    StateAwaitingHandshake,
	}
	c.authTimer = time.AfterFunc(opts.AuthTimeout, func() {
		c.closeWithError(ErrTimeout)
	})
	return c
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Authorized reports whether the connection has completed authorization
// and is still open.
func (c *Conn) Authorized() bool {
	return c.State() == StateAuthorized
}

// UniqueID returns the gateway's claimed identity. Empty before the auth
// message has been received.
func (c *Conn) UniqueID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uniqueID
}

// UserID returns the user bound by Authorize. Empty before authorization.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// RemoteAddr reports the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Run reads from the socket until the connection dies. It blocks; the
// server runs it in a dedicated goroutine.
func (c *Conn) Run() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.ingest(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.closeWithError(nil)
			} else {
				c.closeWithError(err)
			}
			return
		}
	}
}

// ingest appends data to the receive buffer and processes whatever is
// complete.
func (c *Conn) ingest(data []byte) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if len(c.buf)+len(data) > c.opts.MaxBuffer {
		c.mu.Unlock()
		c.closeWithError(fmt.Errorf("%w: %d bytes", ErrBufferOverflow, len(c.buf)+len(data)))
		return
	}
	c.buf = append(c.buf, data...)
	c.mu.Unlock()

	c.process()
}

// process drains the receive buffer as far as the current state allows.
//
// In the awaiting-auth state it consumes exactly one message (the auth
// message) and then parks until Authorize or Close is called; bytes that
// arrive in between stay buffered.
func (c *Conn) process() {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	for {
		c.mu.Lock()
		state := c.state
		if state == StateClosed {
			c.mu.Unlock()
			return
		}

		if state == StateAwaitingHandshake {
			if len(c.buf) < preambleLen {
				c.mu.Unlock()
				return
			}
			preamble := make([]byte, preambleLen)
			copy(preamble, c.buf[:preambleLen])
			c.buf = c.buf[preambleLen:]
			c.mu.Unlock()
			if err := c.handshake(preamble); err != nil {
				c.closeWithError(err)
				return
			}
			continue
		}

		if state == StateAwaitingAuth && c.pending != nil {
			// Auth presented, decision not made yet. Hold further input.
			c.mu.Unlock()
			return
		}

		packet, rest, err := ReadPacket(c.buf)
		if err != nil {
			c.mu.Unlock()
			c.closeWithError(err)
			return
		}
		if packet == nil {
			c.mu.Unlock()
			return
		}
		c.buf = rest
		c.mu.Unlock()

		plaintext, err := c.decode(packet)
		if err != nil {
			c.closeWithError(err)
			return
		}
		c.rxPackets.Add(1)

		if state == StateAwaitingAuth {
			if err := c.handleAuth(plaintext); err != nil {
				c.closeWithError(err)
				return
			}
			continue
		}
		if err := c.dispatch(plaintext); err != nil {
			c.closeWithError(err)
			return
		}
	}
}

// handshake derives the session cipher from the preamble and replies with
// the server's public key.
func (c *Conn) handshake(preamble []byte) error {
	pre, err := ParsePreamble(preamble)
	if err != nil {
		return err
	}
	secret, err := c.opts.Secret()
	if err != nil {
		return err
	}
	serverKey, key, iv := pre.Derive(secret)
	cipher, err := NewCipher(key, iv)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cipher = cipher
	c.state = StateAwaitingAuth
	c.mu.Unlock()

	return c.write(ServerKeyBytes(serverKey))
}

// decode unescapes and decrypts one packet interior.
func (c *Conn) decode(packet []byte) ([]byte, error) {
	raw, err := Unescape(packet)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cipher := c.cipher
	c.mu.Unlock()
	return cipher.Decrypt(raw)
}

// handleAuth expects the one message allowed before authorization.
func (c *Conn) handleAuth(plaintext []byte) error {
	msg, err := parseAuthMessage(plaintext)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.uniqueID = msg.UniqueID
	c.pending = &msg
	c.mu.Unlock()

	if c.handlers.OnToken != nil {
		// Runs on its own goroutine so the handler may call Authorize,
		// which re-enters process. The park in process keeps messages
		// that arrive during the credential check queued in order.
		go c.handlers.OnToken(c, msg.UniqueID, msg.Token)
	}
	return nil
}

// Authorize binds the connection to a user, cancels the auth deadline and
// drains any messages buffered while the credential check ran.
func (c *Conn) Authorize(userID string) {
	c.mu.Lock()
	if c.state != StateAwaitingAuth || c.pending == nil {
		c.mu.Unlock()
		return
	}
	c.state = StateAuthorized
	c.userID = userID
	c.pending = nil
	c.mu.Unlock()

	c.authTimer.Stop()
	c.log.Info("gateway connection authorized",
		"unique_id", c.UniqueID(), "user_id", userID, "remote", c.RemoteAddr())

	c.process()
}

// dispatch routes one decrypted post-auth message by topic prefix.
//
// Schema failures on an authorized connection are logged and the message
// dropped; only protocol-level failures (payload not JSON at all) are
// returned and close the connection.
func (c *Conn) dispatch(plaintext []byte) error {
	msg, err := parseInboundMessage(plaintext)
	if err != nil {
		if errors.Is(err, ErrSchema) {
			c.dropMessage(err, "")
			return nil
		}
		return err
	}
	if err := c.route(msg); err != nil {
		if errors.Is(err, ErrSchema) {
			c.dropMessage(err, msg.Topic)
			return nil
		}
		return err
	}
	return nil
}

func (c *Conn) dropMessage(err error, topic string) {
	c.log.Warn("dropping invalid gateway message",
		"topic", topic, "unique_id", c.UniqueID(), "error", err)
}

func (c *Conn) route(msg inboundMessage) error {
	prefix, rest := splitTopic(msg.Topic)
	switch prefix {
	case "status":
		if rest == "" {
			return fmt.Errorf("%w: status topic without service", ErrSchema)
		}
		status, err := parseStatusMessage(msg.Message)
		if err != nil {
			return err
		}
		if c.handlers.OnStatus != nil {
			c.handlers.OnStatus(c, rest, status)
		}
	case "expose":
		if rest == "" {
			return fmt.Errorf("%w: expose topic without device", ErrSchema)
		}
		endpoints, err := parseExposeMessage(msg.Message)
		if err != nil {
			return err
		}
		if c.handlers.OnExpose != nil {
			c.handlers.OnExpose(c, rest, endpoints)
		}
	case "device":
		if rest == "" {
			return fmt.Errorf("%w: device topic without device", ErrSchema)
		}
		avail, err := parseAvailabilityMessage(msg.Message)
		if err != nil {
			return err
		}
		if c.handlers.OnAvailability != nil {
			c.handlers.OnAvailability(c, rest, avail.Status == "online")
		}
	case "fd":
		if rest == "" {
			return fmt.Errorf("%w: fd topic without device", ErrSchema)
		}
		deviceKey, endpointID := splitReadingTopic(rest)
		values, err := parseReadingMessage(msg.Message)
		if err != nil {
			return err
		}
		if c.handlers.OnReading != nil {
			c.handlers.OnReading(c, deviceKey, endpointID, values)
		}
	default:
		c.log.Debug("dropping message on unknown topic",
			"topic", msg.Topic, "unique_id", c.UniqueID())
	}
	return nil
}

// Subscribe asks the gateway to forward messages matching topic.
func (c *Conn) Subscribe(topic string) error {
	return c.send(outboundMessage{Action: "subscribe", Topic: topic})
}

// Publish sends a message to the gateway for local re-publication on
// topic. The connection must be authorized.
func (c *Conn) Publish(topic string, message any) error {
	c.mu.Lock()
	authorized := c.state == StateAuthorized
	c.mu.Unlock()
	if !authorized {
		return ErrNotAuthorized
	}
	return c.send(outboundMessage{Action: "publish", Topic: topic, Message: message})
}

// Command sends a service command for one device. The topic is derived
// from the device id: everything up to the last slash becomes the
// transport prefix of a command/ topic, the last segment names the device.
func (c *Conn) Command(action, deviceID string) error {
	c.mu.Lock()
	authorized := c.state == StateAuthorized
	c.mu.Unlock()
	if !authorized {
		return ErrNotAuthorized
	}

	topic := "command"
	device := deviceID
	if i := strings.LastIndexByte(deviceID, '/'); i >= 0 {
		topic = "command/" + deviceID[:i]
		device = deviceID[i+1:]
	}
	return c.send(outboundMessage{
		Action:  action,
		Topic:   topic,
		Device:  device,
		Service: "cloud",
	})
}

// send encrypts, escapes, frames and writes one outbound message.
//
// Sending before the handshake has established a cipher is a programming
// error and panics.
func (c *Conn) send(msg outboundMessage) error {
	c.mu.Lock()
	cipher := c.cipher
	closed := c.state == StateClosed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if cipher == nil {
		panic("gateway: send before handshake established cipher")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("gateway: marshalling outbound message: %w", err)
	}
	frame := Frame(Escape(cipher.Encrypt(payload)))
	if err := c.write(frame); err != nil {
		return err
	}
	c.txPackets.Add(1)
	return nil
}

// write puts raw bytes on the socket under the write lock and deadline.
func (c *Conn) write(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("gateway: setting write deadline: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("gateway: writing to socket: %w", err)
	}
	return nil
}

// Close terminates the connection without an error reason.
func (c *Conn) Close() {
	c.closeWithError(nil)
}

func (c *Conn) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.closeErr = err
		c.mu.Unlock()

		c.authTimer.Stop()
		_ = c.conn.Close()

		if err != nil {
			c.log.Warn("gateway connection closed",
				"remote", c.RemoteAddr(), "error", err)
		} else {
			c.log.Debug("gateway connection closed", "remote", c.RemoteAddr())
		}
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(c, err)
		}
	})
}

// Stats reports packet counters for this connection.
func (c *Conn) Stats() (rx, tx uint64) {
	return c.rxPackets.Load(), c.txPackets.Load()
}
