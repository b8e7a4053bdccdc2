package transport

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// pskInfo is the HKDF info string for frame keys. Changing it breaks
// compatibility with deployed nodes.
const pskInfo = "nodelink frame key v1"

// ErrDecryptFailed indicates a sealed frame could not be opened:
// either the pre-shared key does not match or the frame was tampered
// with in transit.
var ErrDecryptFailed = errors.New("frame decryption failed")

// deriveFrameKeys derives the two directional frame keys from the
// pre-shared key. The first key seals client-to-node frames, the
// second node-to-client frames.
func deriveFrameKeys(psk string) (clientKey, nodeKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(psk), nil, []byte(pskInfo))
	material := make([]byte, 2*chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, nil, fmt.Errorf("failed to derive frame keys: %w", err)
	}
	return material[:chacha20poly1305.KeySize], material[chacha20poly1305.KeySize:], nil
}

// sealedFramer seals outbound frames and opens inbound frames with
// ChaCha20-Poly1305. Nonces are per-direction counters, so frames must
// be read in the order they were written; the framing layer guarantees
// that over TCP.
type sealedFramer struct {
	inner FrameReadWriter

	seal      cipher.AEAD
	open      cipher.AEAD
	sealNonce uint64
	openNonce uint64
}

// newSealedFramer wraps inner with PSK encryption. The client role
// seals with the client key and opens with the node key; a node-side
// implementation would pass the keys the other way around.
func newSealedFramer(inner FrameReadWriter, psk string) (*sealedFramer, error) {
	clientKey, nodeKey, err := deriveFrameKeys(psk)
	if err != nil {
		return nil, err
	}
	seal, err := chacha20poly1305.New(clientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create seal cipher: %w", err)
	}
	open, err := chacha20poly1305.New(nodeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create open cipher: %w", err)
	}
	return &sealedFramer{inner: inner, seal: seal, open: open}, nil
}

func (sf *sealedFramer) nonce(counter uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(n[chacha20poly1305.NonceSize-8:], counter)
	return n
}

// WriteFrame seals data and writes it as one frame.
func (sf *sealedFramer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	sealed := sf.seal.Seal(nil, sf.nonce(sf.sealNonce), data, nil)
	if err := sf.inner.WriteFrame(sealed); err != nil {
		return err
	}
	sf.sealNonce++
	return nil
}

// ReadFrame reads one frame and opens it.
func (sf *sealedFramer) ReadFrame() ([]byte, error) {
	sealed, err := sf.inner.ReadFrame()
	if err != nil {
		return nil, err
	}
	data, err := sf.open.Open(nil, sf.nonce(sf.openNonce), sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	sf.openNonce++
	return data, nil
}
