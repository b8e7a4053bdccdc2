package transport

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

// nodeSealedFramer builds the node side of a sealed channel: keys
// swapped relative to the client role.
func nodeSealedFramer(t *testing.T, inner FrameReadWriter, psk string) *sealedFramer {
	t.Helper()

	clientKey, nodeKey, err := deriveFrameKeys(psk)
	if err != nil {
		t.Fatalf("deriveFrameKeys failed: %v", err)
	}
	seal, err := chacha20poly1305.New(nodeKey)
	if err != nil {
		t.Fatalf("failed to create seal cipher: %v", err)
	}
	open, err := chacha20poly1305.New(clientKey)
	if err != nil {
		t.Fatalf("failed to create open cipher: %v", err)
	}
	return &sealedFramer{inner: inner, seal: seal, open: open}
}

func TestDeriveFrameKeys(t *testing.T) {
	clientKey, nodeKey, err := deriveFrameKeys("secret")
	if err != nil {
		t.Fatalf("deriveFrameKeys failed: %v", err)
	}
	if len(clientKey) != chacha20poly1305.KeySize || len(nodeKey) != chacha20poly1305.KeySize {
		t.Fatalf("key sizes = %d/%d, want %d", len(clientKey), len(nodeKey), chacha20poly1305.KeySize)
	}
	if bytes.Equal(clientKey, nodeKey) {
		t.Error("directional keys must differ")
	}

	clientKey2, nodeKey2, err := deriveFrameKeys("secret")
	if err != nil {
		t.Fatalf("deriveFrameKeys failed: %v", err)
	}
	if !bytes.Equal(clientKey, clientKey2) || !bytes.Equal(nodeKey, nodeKey2) {
		t.Error("derivation must be deterministic for the same key")
	}

	otherClient, _, err := deriveFrameKeys("other")
	if err != nil {
		t.Fatalf("deriveFrameKeys failed: %v", err)
	}
	if bytes.Equal(clientKey, otherClient) {
		t.Error("different keys must derive different material")
	}
}

func TestSealedFramerRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)

	client, err := newSealedFramer(NewFramer(buf), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}
	node := nodeSealedFramer(t, NewFramer(buf), "secret")

	messages := [][]byte{
		[]byte("first"),
		[]byte("second"),
		bytes.Repeat([]byte("x"), 1000),
	}
	for _, msg := range messages {
		if err := client.WriteFrame(msg); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	for _, msg := range messages {
		got, err := node.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Errorf("got %q, want %q", got, msg)
		}
	}
}

func TestSealedFramerCiphertextDiffers(t *testing.T) {
	buf := new(bytes.Buffer)
	client, err := newSealedFramer(NewFramer(buf), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}

	payload := []byte("plaintext on the wire is a bug")
	if err := client.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if bytes.Contains(buf.Bytes(), payload) {
		t.Error("payload appeared in cleartext on the wire")
	}
}

func TestSealedFramerWrongKey(t *testing.T) {
	buf := new(bytes.Buffer)
	client, err := newSealedFramer(NewFramer(buf), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}
	if err := client.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	node := nodeSealedFramer(t, NewFramer(buf), "wrong")
	_, err = node.ReadFrame()
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestSealedFramerTampered(t *testing.T) {
	buf := new(bytes.Buffer)
	client, err := newSealedFramer(NewFramer(buf), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}
	if err := client.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// Flip one payload bit behind the length prefix.
	wire := buf.Bytes()
	wire[LengthPrefixSize] ^= 0x01

	node := nodeSealedFramer(t, NewFramer(bytes.NewBuffer(wire)), "secret")
	_, err = node.ReadFrame()
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestSealedFramerNonceAdvances(t *testing.T) {
	// Reading frames out of order must fail: each direction uses a
	// strict counter nonce.
	first := new(bytes.Buffer)
	client, err := newSealedFramer(NewFramer(first), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}
	if err := client.WriteFrame([]byte("one")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	second := new(bytes.Buffer)
	client.inner = NewFramer(second)
	if err := client.WriteFrame([]byte("two")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	node := nodeSealedFramer(t, NewFramer(second), "secret")
	if _, err := node.ReadFrame(); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed for skipped frame, got %v", err)
	}
}

func TestSealedFramerEmptyMessage(t *testing.T) {
	client, err := newSealedFramer(NewFramer(new(bytes.Buffer)), "secret")
	if err != nil {
		t.Fatalf("newSealedFramer failed: %v", err)
	}
	if err := client.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
}
