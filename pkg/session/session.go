package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodelink-protocol/nodelink-go/pkg/entity"
	"github.com/nodelink-protocol/nodelink-go/pkg/log"
	"github.com/nodelink-protocol/nodelink-go/pkg/transport"
	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

// Config configures a session.
type Config struct {
	// Host is the node's hostname or IP address.
	Host string

	// Port is the node's TCP port. Zero means wire.DefaultPort.
	Port uint16

	// Password authenticates the session. May be empty for nodes
	// without a password.
	Password string

	// PresharedKey enables transport frame encryption when non-empty.
	PresharedKey string

	// ClientInfo identifies this client in the Hello exchange.
	ClientInfo string

	// ConnectTimeout bounds dialing and the handshake (default 30s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds individual requests (default 30s).
	RequestTimeout time.Duration

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
}

func (c *Config) address() string {
	port := c.Port
	if port == 0 {
		port = wire.DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(int(port)))
}

// DeviceInfo is the node identity metadata.
type DeviceInfo struct {
	Name            string
	Model           string
	MACAddress      string
	FirmwareVersion string
	Compiled        string
	UsesPassword    bool
}

// String returns a one-line description for display.
func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s (model=%s, mac=%s, firmware=%s, compiled=%s)",
		d.Name, d.Model, d.MACAddress, d.FirmwareVersion, d.Compiled)
}

// LightCommand is a structured light command. Nil fields leave the
// corresponding light property unchanged.
type LightCommand struct {
	State            *bool
	Brightness       *float32
	RGB              *[3]float32
	White            *float32
	ColorTemperature *float32
	Transition       time.Duration
	Flash            time.Duration
	Effect           string
}

// Session is an authenticated connection to one node.
type Session struct {
	conn    *transport.Conn
	logger  log.Logger
	timeout time.Duration

	version    Version
	serverInfo string

	nextMsgID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan *wire.Frame

	stateMu      sync.RWMutex
	stateHandler func(entity.State)

	knownMu   sync.RWMutex
	knownKeys map[uint32]entity.Kind

	closed   atomic.Bool
	recvDone chan struct{}
}

// Connect dials the node, negotiates the protocol version and
// authenticates. All failures during this phase are reported as
// *ConnectionError.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ClientInfo == "" {
		cfg.ClientInfo = "nodelink-go"
	}

	client := transport.NewClient(transport.Config{
		ConnectTimeout: cfg.ConnectTimeout,
		PresharedKey:   cfg.PresharedKey,
		Logger:         cfg.Logger,
	})
	conn, err := client.Connect(ctx, cfg.address())
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Op: "dial", Err: err}
	}

	s, err := open(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// open performs the hello/auth handshake over an established framed
// connection and starts the receive loop. Split from Connect so tests
// can drive a session over an in-memory pipe.
func open(conn *transport.Conn, cfg Config) (*Session, error) {
	s := &Session{
		conn:     conn,
		logger:   cfg.Logger,
		timeout:  cfg.RequestTimeout,
		pending:  make(map[uint32]chan *wire.Frame),
		recvDone: make(chan struct{}),
	}

	// Handshake runs synchronously before the receive loop exists, so
	// replies are read directly off the connection.
	hello, err := s.roundTrip(wire.MsgHello, &wire.HelloPayload{ClientInfo: cfg.ClientInfo},
		wire.MsgHelloReply, cfg.ConnectTimeout)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Op: "hello", Err: err}
	}
	var helloReply wire.HelloReplyPayload
	if err := hello.DecodePayload(&helloReply); err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Op: "hello", Err: err}
	}
	s.version = Version{Major: helloReply.VersionMajor, Minor: helloReply.VersionMinor}
	s.serverInfo = helloReply.ServerInfo
	if !Current.Compatible(s.version) {
		return nil, &ConnectionError{
			Host: cfg.Host,
			Op:   "hello",
			Err:  fmt.Errorf("incompatible protocol version %s (client speaks %s)", s.version, Current),
		}
	}

	auth, err := s.roundTrip(wire.MsgAuth, &wire.AuthPayload{Password: cfg.Password},
		wire.MsgAuthReply, cfg.ConnectTimeout)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Op: "auth", Err: err}
	}
	var authReply wire.AuthReplyPayload
	if err := auth.DecodePayload(&authReply); err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Op: "auth", Err: err}
	}
	if authReply.InvalidPassword {
		return nil, &ConnectionError{Host: cfg.Host, Op: "auth", Err: ErrInvalidPassword}
	}

	go s.recvLoop()
	return s, nil
}

// roundTrip sends a request and reads the reply directly from the
// connection. Only valid before the receive loop starts.
func (s *Session) roundTrip(t wire.MessageType, payload any, reply wire.MessageType, timeout time.Duration) (*wire.Frame, error) {
	id := s.nextMsgID.Add(1)
	data, err := wire.EncodeFrame(t, id, payload)
	if err != nil {
		return nil, err
	}
	if err := s.conn.Send(data); err != nil {
		return nil, err
	}
	raw, err := s.conn.Receive(timeout)
	if err != nil {
		return nil, err
	}
	frame, err := wire.DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	if frame.Type != reply || frame.ID != id {
		return nil, fmt.Errorf("%w: got %s (id=%d), want %s (id=%d)",
			ErrUnexpectedReply, frame.Type, frame.ID, reply, id)
	}
	return frame, nil
}

// APIVersion returns the negotiated protocol version.
func (s *Session) APIVersion() Version {
	return s.version
}

// ServerInfo returns the node's self-description from the handshake.
func (s *Session) ServerInfo() string {
	return s.serverInfo
}

// recvLoop reads frames until the connection fails, routing replies to
// pending requests and dispatching pushed states.
func (s *Session) recvLoop() {
	defer close(s.recvDone)
	for {
		raw, err := s.conn.Receive(0)
		if err != nil {
			s.failPending()
			if !s.closed.Load() {
				s.logError("receive loop ended", err)
			}
			return
		}
		frame, err := wire.DecodeFrame(raw)
		if err != nil {
			s.logError("dropping undecodable frame", err)
			continue
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame *wire.Frame) {
	switch {
	case frame.Type == wire.MsgState:
		var p wire.StatePayload
		if err := frame.DecodePayload(&p); err != nil {
			s.logError("dropping undecodable state", err)
			return
		}
		state := entity.DecodeState(&p)
		s.logState(state)

		s.stateMu.RLock()
		handler := s.stateHandler
		s.stateMu.RUnlock()
		// The handler runs inline with stream delivery and must not
		// block; see SubscribeStates.
		if handler != nil {
			handler(state)
		}

	case frame.Type == wire.MsgPing:
		if data, err := wire.EncodeFrame(wire.MsgPong, wire.UnsolicitedID, nil); err == nil {
			_ = s.conn.Send(data)
		}

	case frame.ID != wire.UnsolicitedID:
		s.pendingMu.Lock()
		ch, ok := s.pending[frame.ID]
		s.pendingMu.Unlock()
		if !ok {
			s.logError("reply for unknown request", fmt.Errorf("type=%s id=%d", frame.Type, frame.ID))
			return
		}
		select {
		case ch <- frame:
		default:
		}
	}
}

// failPending wakes every waiter after the connection is gone.
func (s *Session) failPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

// request sends a request and waits for its reply via the receive loop.
func (s *Session) request(ctx context.Context, t wire.MessageType, payload any, reply wire.MessageType) (*wire.Frame, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	id := s.nextMsgID.Add(1)
	ch := make(chan *wire.Frame, 1)

	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	data, err := wire.EncodeFrame(t, id, payload)
	if err != nil {
		return nil, err
	}
	if err := s.conn.Send(data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.timeout):
		return nil, ErrRequestTimeout
	case frame, ok := <-ch:
		if !ok {
			return nil, ErrSessionClosed
		}
		if frame.Type != reply {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedReply, frame.Type, reply)
		}
		return frame, nil
	}
}

// send transmits a fire-and-forget message.
func (s *Session) send(t wire.MessageType, payload any) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	data, err := wire.EncodeFrame(t, s.nextMsgID.Add(1), payload)
	if err != nil {
		return err
	}
	return s.conn.Send(data)
}

// DeviceInfo retrieves the node identity metadata.
func (s *Session) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	frame, err := s.request(ctx, wire.MsgDeviceInfo, nil, wire.MsgDeviceInfoReply)
	if err != nil {
		return nil, err
	}
	var p wire.DeviceInfoReplyPayload
	if err := frame.DecodePayload(&p); err != nil {
		return nil, err
	}
	return &DeviceInfo{
		Name:            p.Name,
		Model:           p.Model,
		MACAddress:      p.MACAddress,
		FirmwareVersion: p.FirmwareVersion,
		Compiled:        p.Compiled,
		UsesPassword:    p.UsesPassword,
	}, nil
}

// ListEntities retrieves the node's capabilities, split into entities
// (stateful, observable) and services (invokable). The listed keys
// are recorded for command validation.
func (s *Session) ListEntities(ctx context.Context) ([]entity.Entity, []entity.Service, error) {
	frame, err := s.request(ctx, wire.MsgListEntities, nil, wire.MsgListEntitiesReply)
	if err != nil {
		return nil, nil, err
	}
	var p wire.ListEntitiesReplyPayload
	if err := frame.DecodePayload(&p); err != nil {
		return nil, nil, err
	}

	entities := make([]entity.Entity, 0, len(p.Entities))
	known := make(map[uint32]entity.Kind, len(p.Entities))
	for _, info := range p.Entities {
		e := entity.EntityFromInfo(info)
		entities = append(entities, e)
		known[e.Key] = e.Kind
	}
	services := make([]entity.Service, 0, len(p.Services))
	for _, info := range p.Services {
		services = append(services, entity.ServiceFromInfo(info))
	}

	s.knownMu.Lock()
	s.knownKeys = known
	s.knownMu.Unlock()

	return entities, services, nil
}

// SubscribeStates registers the push handler and asks the node to
// start streaming state records. Delivery is unordered and unbounded
// in time. The handler executes inline on the receive loop: it must
// not block or perform I/O, or stream delivery stalls.
func (s *Session) SubscribeStates(handler func(entity.State)) error {
	if handler == nil {
		return fmt.Errorf("nil state handler")
	}
	s.stateMu.Lock()
	s.stateHandler = handler
	s.stateMu.Unlock()
	return s.send(wire.MsgSubscribeStates, nil)
}

// CaptureImage asks the node to capture one camera image. The image
// arrives as a CameraState on the state stream; there is no direct
// reply. This is the priming poke for camera entities.
func (s *Session) CaptureImage() error {
	return s.send(wire.MsgCaptureImage, nil)
}

// LightCommand sends a structured command to the light with the given
// key. The key must be among the entities returned by ListEntities
// and must identify a light; violations are rejected locally before
// anything reaches the transport.
func (s *Session) LightCommand(key uint32, cmd *LightCommand) error {
	s.knownMu.RLock()
	known := s.knownKeys
	s.knownMu.RUnlock()

	if known == nil {
		return ErrNotEnumerated
	}
	kind, ok := known[key]
	if !ok {
		return &CommandError{Key: key, Reason: "key not among listed entities"}
	}
	if kind != entity.KindLight {
		return &CommandError{Key: key, Reason: fmt.Sprintf("entity is a %s, not a light", kind)}
	}

	p := &wire.LightCommandPayload{
		Key:              key,
		TransitionLength: uint32(cmd.Transition.Milliseconds()),
		FlashLength:      uint32(cmd.Flash.Milliseconds()),
		Effect:           cmd.Effect,
	}
	if cmd.State != nil {
		p.HasState = true
		p.State = *cmd.State
	}
	if cmd.Brightness != nil {
		p.HasBrightness = true
		p.Brightness = *cmd.Brightness
	}
	if cmd.RGB != nil {
		p.HasRGB = true
		p.Red, p.Green, p.Blue = cmd.RGB[0], cmd.RGB[1], cmd.RGB[2]
	}
	if cmd.White != nil {
		p.HasWhite = true
		p.White = *cmd.White
	}
	if cmd.ColorTemperature != nil {
		p.HasColorTemperature = true
		p.ColorTemperature = *cmd.ColorTemperature
	}
	return s.send(wire.MsgLightCommand, p)
}

// disconnectTimeout bounds the wait for the node's DisconnectReply.
const disconnectTimeout = 5 * time.Second

// Disconnect performs an orderly shutdown: Disconnect request, wait
// for the reply, then close the connection. The connection is closed
// even when the exchange fails.
func (s *Session) Disconnect(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	// closed is already set; bypass the request() guard.
	reqErr := func() error {
		id := s.nextMsgID.Add(1)
		ch := make(chan *wire.Frame, 1)
		s.pendingMu.Lock()
		s.pending[id] = ch
		s.pendingMu.Unlock()
		defer func() {
			s.pendingMu.Lock()
			delete(s.pending, id)
			s.pendingMu.Unlock()
		}()

		data, err := wire.EncodeFrame(wire.MsgDisconnect, id, nil)
		if err != nil {
			return err
		}
		if err := s.conn.Send(data); err != nil {
			return err
		}
		select {
		case <-reqCtx.Done():
			return reqCtx.Err()
		case frame, ok := <-ch:
			if !ok {
				return ErrSessionClosed
			}
			if frame.Type != wire.MsgDisconnectReply {
				return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedReply, frame.Type, wire.MsgDisconnectReply)
			}
			return nil
		}
	}()

	closeErr := s.conn.Close()
	<-s.recvDone

	if reqErr != nil {
		return fmt.Errorf("disconnect: %w", reqErr)
	}
	return closeErr
}

// Close tears the connection down without the disconnect exchange.
// Used on error paths.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.conn.Close()
	<-s.recvDone
	return err
}

func (s *Session) logError(context string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnectionID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		Error:        &log.ErrorEvent{Message: err.Error(), Context: context},
	})
}

func (s *Session) logState(state entity.State) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnectionID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		Message: &log.MessageEvent{
			Type:      wire.MsgState.String(),
			EntityKey: state.EntityKey(),
		},
	})
}
