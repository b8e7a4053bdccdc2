// Package wire defines the CBOR wire format for the NodeLink protocol.
//
// NodeLink uses CBOR (RFC 8949) with integer keys for efficient
// encoding. Every message is one length-prefixed frame containing a
// map of the form
//
//	{1: type, 2: id, 3: payload}
//
// where type is a MessageType, id matches a reply to its request
// (id 0 marks unsolicited messages such as pushed states), and the
// payload layout is type-specific.
//
// The encoder is deterministic (canonical key order) so identical
// messages encode to identical bytes; the decoder is lenient so that
// unknown keys from newer nodes are ignored.
package wire
