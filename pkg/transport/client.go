package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodelink-protocol/nodelink-go/pkg/log"
)

// ErrConnectionClosed indicates the connection was closed.
var ErrConnectionClosed = errors.New("connection closed")

// Config configures a NodeLink transport client.
type Config struct {
	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout is the connection timeout (default: 30s).
	ConnectTimeout time.Duration

	// PresharedKey enables frame encryption when non-empty.
	PresharedKey string

	// Logger receives transport-layer events. Nil disables logging.
	Logger log.Logger
}

// Client dials NodeLink nodes.
type Client struct {
	config Config
}

// NewClient creates a new transport client.
func NewClient(config Config) *Client {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	return &Client{config: config}
}

// Connect establishes a connection to the specified address.
func (c *Client) Connect(ctx context.Context, address string) (*Conn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	conn, err := NewConn(nc, c.config)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return conn, nil
}

// Conn is a framed connection to a node.
type Conn struct {
	conn   net.Conn
	framer FrameReadWriter
	id     string

	closeCh   chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// NewConn wraps an established network connection with NodeLink
// framing (and PSK sealing when configured). Used by Client.Connect
// and directly by tests over in-memory pipes.
func NewConn(nc net.Conn, config Config) (*Conn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	id := uuid.NewString()

	framer := NewFramerWithMaxSize(nc, config.MaxMessageSize)
	if config.Logger != nil {
		framer.SetLogger(config.Logger, id)
	}

	var frw FrameReadWriter = framer
	if config.PresharedKey != "" {
		sealed, err := newSealedFramer(framer, config.PresharedKey)
		if err != nil {
			return nil, err
		}
		frw = sealed
	}

	return &Conn{
		conn:    nc,
		framer:  frw,
		id:      id,
		closeCh: make(chan struct{}),
	}, nil
}

// ConnectionID returns the UUID identifying this connection in logs.
func (c *Conn) ConnectionID() string {
	return c.id
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send sends a message to the node.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	return c.framer.WriteFrame(data)
}

// Receive receives a message from the node. A zero timeout blocks
// until a message arrives or the connection fails.
func (c *Conn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	return c.framer.ReadFrame()
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
