// Package session implements the client side of a NodeLink session:
// connection and authentication, request/response interactions, the
// pushed state stream, commands, and teardown.
//
// A Session owns exactly one connection. Requests are matched to
// replies by message id through a pending-request table; pushed state
// records are dispatched inline from the receive loop to the handler
// registered with SubscribeStates, so handlers must not block.
package session
