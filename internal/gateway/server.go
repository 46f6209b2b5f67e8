package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Authorizer validates gateway credentials and resolves them to a user.
type Authorizer interface {
	// AuthorizeGateway returns the owning user's id for valid credentials,
	// or an error when the token is unknown or revoked.
	AuthorizeGateway(ctx context.Context, uniqueID, token string) (userID string, err error)
}

// DeviceSink receives the device traffic of authorized connections.
// *device.Repository satisfies it.
type DeviceSink interface {
	ApplyStatus(userID, clientID, service string, msg StatusMessage)
	ApplyExposes(userID, clientID, deviceKey string, endpoints map[int]ExposeEndpoint)
	ApplyAvailability(userID, clientID, deviceKey string, online bool)
	ApplyReading(userID, clientID, deviceKey string, endpointID int, values map[string]any)
}

// subscribeTopics is what the server asks every gateway to forward once it
// is authorized.
var subscribeTopics = []string{"status/#", "expose/#", "device/#", "fd/#"}

// ServerConfig tunes the gateway listener.
type ServerConfig struct {
	Addr        string
	AuthTimeout time.Duration
	MaxBuffer   int

	// Secret overrides the DH secret source. Nil means crypto/rand.
	Secret func() (uint32, error)
}

// Server accepts gateway connections and keeps the registry of live,
// authorized connections keyed by (user, gateway unique id).
type Server struct {
	cfg        ServerConfig
	authorizer Authorizer
	sink       DeviceSink
	log        Logger

	listener net.Listener

	mu    sync.Mutex
	conns map[connKey]*Conn

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type connKey struct {
	userID   string
	clientID string
}

// NewServer builds a gateway server. Start must be called to listen.
func NewServer(cfg ServerConfig, authorizer Authorizer, sink DeviceSink, log Logger) *Server {
	if log == nil {
		log = noopLogger{}
	}
	return &Server{
		cfg:        cfg,
		authorizer: authorizer,
		sink:       sink,
		log:        log,
		conns:      make(map[connKey]*Conn),
	}
}

// Start opens the listener and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway: listening on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.log.Info("gateway server listening", "addr", s.cfg.Addr)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr reports the bound listener address. Nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		socket, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("gateway accept failed", "error", err)
			continue
		}
		s.handle(socket)
	}
}

// handle wires a fresh socket into a Conn and starts its read loop.
func (s *Server) handle(socket net.Conn) {
	handlers := Handlers{
		OnToken:        s.onToken,
		OnStatus:       s.onStatus,
		OnExpose:       s.onExpose,
		OnAvailability: s.onAvailability,
		OnReading:      s.onReading,
		OnClose:        s.onClose,
	}
	conn := NewConn(socket, handlers, Options{
		AuthTimeout: s.cfg.AuthTimeout,
		MaxBuffer:   s.cfg.MaxBuffer,
		Logger:      s.log,
		Secret:      s.cfg.Secret,
	})
	s.log.Debug("gateway connection accepted", "remote", conn.RemoteAddr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		conn.Run()
	}()
}

// onToken checks the presented credentials and either authorizes the
// connection or drops it.
func (s *Server) onToken(c *Conn, uniqueID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AuthTimeout)
	defer cancel()

	userID, err := s.authorizer.AuthorizeGateway(ctx, uniqueID, token)
	if err != nil {
		s.log.Warn("gateway authorization rejected",
			"unique_id", uniqueID, "remote", c.RemoteAddr(), "error", err)
		c.Close()
		return
	}

	s.register(userID, uniqueID, c)
	c.Authorize(userID)

	for _, topic := range subscribeTopics {
		if err := c.Subscribe(topic); err != nil {
			s.log.Warn("gateway subscribe failed",
				"unique_id", uniqueID, "topic", topic, "error", err)
			c.Close()
			return
		}
	}
}

// register installs the connection in the registry. A newer connection for
// the same (user, gateway) pair replaces and closes the older one.
func (s *Server) register(userID, clientID string, c *Conn) {
	key := connKey{userID: userID, clientID: clientID}

	s.mu.Lock()
	old := s.conns[key]
	s.conns[key] = c
	s.mu.Unlock()

	if old != nil && old != c {
		s.log.Info("replacing existing gateway connection",
			"user_id", userID, "unique_id", clientID)
		old.Close()
	}
}

func (s *Server) onClose(c *Conn, err error) {
	userID := c.UserID()
	clientID := c.UniqueID()
	if userID == "" {
		return
	}
	key := connKey{userID: userID, clientID: clientID}

	s.mu.Lock()
	if s.conns[key] == c {
		delete(s.conns, key)
	}
	s.mu.Unlock()
}

func (s *Server) onStatus(c *Conn, service string, msg StatusMessage) {
	s.sink.ApplyStatus(c.UserID(), c.UniqueID(), service, msg)
}

func (s *Server) onExpose(c *Conn, deviceKey string, endpoints map[int]ExposeEndpoint) {
	s.sink.ApplyExposes(c.UserID(), c.UniqueID(), deviceKey, endpoints)
}

func (s *Server) onAvailability(c *Conn, deviceKey string, online bool) {
	s.sink.ApplyAvailability(c.UserID(), c.UniqueID(), deviceKey, online)
}

func (s *Server) onReading(c *Conn, deviceKey string, endpointID int, values map[string]any) {
	s.sink.ApplyReading(c.UserID(), c.UniqueID(), deviceKey, endpointID, values)
}

// Connection returns the live connection for a (user, gateway) pair.
func (s *Server) Connection(userID, clientID string) (*Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connKey{userID: userID, clientID: clientID}]
	return c, ok
}

// ConnectionCount reports the number of registered authorized connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops the listener, closes every connection and waits for all
// connection goroutines to finish.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			_ = s.listener.Close()
		}

		s.mu.Lock()
		conns := make([]*Conn, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		for _, c := range conns {
			c.Close()
		}
		s.wg.Wait()
		s.log.Info("gateway server stopped")
	})
}
