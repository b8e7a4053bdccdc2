package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DefaultPort is the well-known TCP port NodeLink nodes listen on.
const DefaultPort = 6053

// CBOR map keys of the message frame.
const (
	KeyType    = 1
	KeyID      = 2
	KeyPayload = 3
)

// UnsolicitedID marks messages that are not a reply to any request
// (pushed states, ping/pong).
const UnsolicitedID uint32 = 0

// MessageType identifies the layout of a frame's payload.
type MessageType uint8

// Message types. Requests flow client to node; replies and State flow
// node to client. CaptureImage and LightCommand have no reply.
const (
	MsgHello             MessageType = 1
	MsgHelloReply        MessageType = 2
	MsgAuth              MessageType = 3
	MsgAuthReply         MessageType = 4
	MsgDeviceInfo        MessageType = 5
	MsgDeviceInfoReply   MessageType = 6
	MsgListEntities      MessageType = 7
	MsgListEntitiesReply MessageType = 8
	MsgSubscribeStates   MessageType = 9
	MsgState             MessageType = 10
	MsgCaptureImage      MessageType = 11
	MsgLightCommand      MessageType = 12
	MsgDisconnect        MessageType = 13
	MsgDisconnectReply   MessageType = 14
	MsgPing              MessageType = 15
	MsgPong              MessageType = 16
)

// IsValid reports whether t is a known message type.
func (t MessageType) IsValid() bool {
	return t >= MsgHello && t <= MsgPong
}

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MsgHello:
		return "Hello"
	case MsgHelloReply:
		return "HelloReply"
	case MsgAuth:
		return "Auth"
	case MsgAuthReply:
		return "AuthReply"
	case MsgDeviceInfo:
		return "DeviceInfo"
	case MsgDeviceInfoReply:
		return "DeviceInfoReply"
	case MsgListEntities:
		return "ListEntities"
	case MsgListEntitiesReply:
		return "ListEntitiesReply"
	case MsgSubscribeStates:
		return "SubscribeStates"
	case MsgState:
		return "State"
	case MsgCaptureImage:
		return "CaptureImage"
	case MsgLightCommand:
		return "LightCommand"
	case MsgDisconnect:
		return "Disconnect"
	case MsgDisconnectReply:
		return "DisconnectReply"
	case MsgPing:
		return "Ping"
	case MsgPong:
		return "Pong"
	default:
		return "Unknown"
	}
}

// Frame is the envelope every NodeLink message travels in.
//
// CBOR encoding:
//
//	{
//	  1: type,     // uint8
//	  2: id,       // uint32, 0 = unsolicited
//	  3: payload   // type-specific map
//	}
type Frame struct {
	Type    MessageType     `cbor:"1,keyasint"`
	ID      uint32          `cbor:"2,keyasint,omitempty"`
	Payload cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Validate checks frame-level invariants.
func (f *Frame) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("unknown message type: %d", f.Type)
	}
	if f.ID == UnsolicitedID && !f.Type.Unsolicited() {
		return fmt.Errorf("%s frame without message id", f.Type)
	}
	return nil
}

// Unsolicited reports whether the message type may arrive with id 0.
func (t MessageType) Unsolicited() bool {
	return t == MsgState || t == MsgPing || t == MsgPong
}

// DecodePayload decodes the frame payload into v.
func (f *Frame) DecodePayload(v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%s frame has no payload", f.Type)
	}
	if err := Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", f.Type, err)
	}
	return nil
}

// HelloPayload opens the session and identifies the client.
type HelloPayload struct {
	ClientInfo string `cbor:"1,keyasint,omitempty"`
}

// HelloReplyPayload carries the node's protocol version and identity.
type HelloReplyPayload struct {
	VersionMajor uint8  `cbor:"1,keyasint"`
	VersionMinor uint8  `cbor:"2,keyasint"`
	ServerInfo   string `cbor:"3,keyasint,omitempty"`
}

// AuthPayload authenticates the session.
type AuthPayload struct {
	Password string `cbor:"1,keyasint,omitempty"`
}

// AuthReplyPayload reports the authentication outcome.
type AuthReplyPayload struct {
	InvalidPassword bool `cbor:"1,keyasint,omitempty"`
}

// DeviceInfoReplyPayload carries node identity metadata.
type DeviceInfoReplyPayload struct {
	Name            string `cbor:"1,keyasint,omitempty"`
	Model           string `cbor:"2,keyasint,omitempty"`
	MACAddress      string `cbor:"3,keyasint,omitempty"`
	FirmwareVersion string `cbor:"4,keyasint,omitempty"`
	Compiled        string `cbor:"5,keyasint,omitempty"`
	UsesPassword    bool   `cbor:"6,keyasint,omitempty"`
}

// EntityInfo describes one stateful, observable capability.
type EntityInfo struct {
	Key      uint32 `cbor:"1,keyasint"`
	Kind     uint8  `cbor:"2,keyasint"`
	ObjectID string `cbor:"3,keyasint,omitempty"`
	Name     string `cbor:"4,keyasint,omitempty"`
}

// ServiceInfo describes one invokable action.
type ServiceInfo struct {
	Key  uint32   `cbor:"1,keyasint"`
	Name string   `cbor:"2,keyasint,omitempty"`
	Args []string `cbor:"3,keyasint,omitempty"`
}

// ListEntitiesReplyPayload enumerates the node's capabilities.
type ListEntitiesReplyPayload struct {
	Entities []EntityInfo  `cbor:"1,keyasint,omitempty"`
	Services []ServiceInfo `cbor:"2,keyasint,omitempty"`
}

// StatePayload is one pushed state record.
//
// Attrs is a map of kind-specific attribute ids to values; the
// attribute id spaces are defined per kind in the entity package.
type StatePayload struct {
	Key   uint32        `cbor:"1,keyasint"`
	Kind  uint8         `cbor:"2,keyasint"`
	Attrs map[uint8]any `cbor:"3,keyasint,omitempty"`
}

// LightCommandPayload is a structured light command. The Has* flags
// distinguish "leave unchanged" from zero values, matching the node
// firmware's optional-field handling.
type LightCommandPayload struct {
	Key                 uint32  `cbor:"1,keyasint"`
	HasState            bool    `cbor:"2,keyasint,omitempty"`
	State               bool    `cbor:"3,keyasint,omitempty"`
	HasBrightness       bool    `cbor:"4,keyasint,omitempty"`
	Brightness          float32 `cbor:"5,keyasint,omitempty"`
	HasRGB              bool    `cbor:"6,keyasint,omitempty"`
	Red                 float32 `cbor:"7,keyasint,omitempty"`
	Green               float32 `cbor:"8,keyasint,omitempty"`
	Blue                float32 `cbor:"9,keyasint,omitempty"`
	HasWhite            bool    `cbor:"10,keyasint,omitempty"`
	White               float32 `cbor:"11,keyasint,omitempty"`
	HasColorTemperature bool    `cbor:"12,keyasint,omitempty"`
	ColorTemperature    float32 `cbor:"13,keyasint,omitempty"`
	// TransitionLength and FlashLength are in milliseconds.
	TransitionLength uint32 `cbor:"14,keyasint,omitempty"`
	FlashLength      uint32 `cbor:"15,keyasint,omitempty"`
	Effect           string `cbor:"16,keyasint,omitempty"`
}
