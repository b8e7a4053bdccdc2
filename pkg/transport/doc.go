// Package transport provides the TCP transport for NodeLink sessions:
// length-prefixed framing, an optional pre-shared-key encryption layer,
// and a dialing client.
//
// Frames are a 4-byte big-endian length prefix followed by the
// payload. When a pre-shared key is configured, each payload is sealed
// with ChaCha20-Poly1305 using per-direction counter nonces; the keys
// are derived from the PSK with HKDF-SHA256.
package transport
