package transport

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func pipeConns(t *testing.T, config Config) (*Conn, *Conn) {
	t.Helper()

	clientNC, nodeNC := net.Pipe()
	client, err := NewConn(clientNC, config)
	if err != nil {
		t.Fatalf("NewConn(client) failed: %v", err)
	}
	// The peer gets no PSK here; sealed channels are covered by the
	// crypto tests where key direction is handled explicitly.
	node, err := NewConn(nodeNC, Config{MaxMessageSize: config.MaxMessageSize})
	if err != nil {
		t.Fatalf("NewConn(node) failed: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		node.Close()
	})
	return client, node
}

func TestConnSendReceive(t *testing.T) {
	client, node := pipeConns(t, Config{})

	payload := []byte("hello node")
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Send(payload)
	}()

	got, err := node.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestConnReceiveTimeout(t *testing.T) {
	client, _ := pipeConns(t, Config{})

	start := time.Now()
	_, err := client.Receive(50 * time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Error("Receive did not honor the timeout")
	}
}

func TestConnClosed(t *testing.T) {
	client, _ := pipeConns(t, Config{})

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := client.Send([]byte("x")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Send after close = %v, want ErrConnectionClosed", err)
	}
	if _, err := client.Receive(time.Second); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Receive after close = %v, want ErrConnectionClosed", err)
	}
}

func TestConnIDs(t *testing.T) {
	client, node := pipeConns(t, Config{})

	if client.ConnectionID() == "" {
		t.Error("empty connection ID")
	}
	if client.ConnectionID() == node.ConnectionID() {
		t.Error("connection IDs must be unique")
	}
}
