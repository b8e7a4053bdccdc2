package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		id      uint32
		payload any
	}{
		{
			name:    "hello with payload",
			msgType: MsgHello,
			id:      1,
			payload: &HelloPayload{ClientInfo: "nodelink-go test"},
		},
		{
			name:    "request without payload",
			msgType: MsgListEntities,
			id:      7,
			payload: nil,
		},
		{
			name:    "unsolicited ping",
			msgType: MsgPing,
			id:      UnsolicitedID,
			payload: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.msgType, tt.id, tt.payload)
			if err != nil {
				t.Fatalf("EncodeFrame failed: %v", err)
			}

			frame, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if frame.Type != tt.msgType {
				t.Errorf("type = %v, want %v", frame.Type, tt.msgType)
			}
			if frame.ID != tt.id {
				t.Errorf("id = %d, want %d", frame.ID, tt.id)
			}
			if tt.payload == nil && len(frame.Payload) != 0 {
				t.Errorf("expected no payload, got %d bytes", len(frame.Payload))
			}
		})
	}
}

func TestEncodeFrameInvalidType(t *testing.T) {
	if _, err := EncodeFrame(MessageType(0), 1, nil); err == nil {
		t.Error("expected error for type 0")
	}
	if _, err := EncodeFrame(MessageType(200), 1, nil); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDecodeFrameInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "garbage",
			data: []byte{0xFF, 0xFF, 0xFF},
		},
		{
			name: "unknown type",
			data: mustMarshal(t, Frame{Type: MessageType(99), ID: 1}),
		},
		{
			name: "request without id",
			data: mustMarshal(t, Frame{Type: MsgDeviceInfo, ID: UnsolicitedID}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return data
}

func TestUnsolicitedTypes(t *testing.T) {
	unsolicited := map[MessageType]bool{
		MsgState: true,
		MsgPing:  true,
		MsgPong:  true,
	}
	for mt := MsgHello; mt <= MsgPong; mt++ {
		if got := mt.Unsolicited(); got != unsolicited[mt] {
			t.Errorf("%s.Unsolicited() = %v, want %v", mt, got, unsolicited[mt])
		}
	}

	// A pushed state with id 0 must decode.
	data := mustMarshal(t, Frame{Type: MsgState, ID: UnsolicitedID})
	if _, err := DecodeFrame(data); err != nil {
		t.Errorf("unsolicited state frame rejected: %v", err)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	payload := &ListEntitiesReplyPayload{
		Entities: []EntityInfo{
			{Key: 1, Kind: 4, ObjectID: "desk_lamp", Name: "Desk Lamp"},
			{Key: 2, Kind: 2, ObjectID: "temp", Name: "Temperature"},
		},
		Services: []ServiceInfo{
			{Key: 10, Name: "reboot"},
		},
	}

	first, err := EncodeFrame(MsgListEntitiesReply, 3, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	second, err := EncodeFrame(MsgListEntitiesReply, 3, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding is not deterministic")
	}
}

func TestDecodePayload(t *testing.T) {
	data, err := EncodeFrame(MsgHelloReply, 1, &HelloReplyPayload{
		VersionMajor: 1,
		VersionMinor: 1,
		ServerInfo:   "node v2026.8",
	})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	var reply HelloReplyPayload
	if err := frame.DecodePayload(&reply); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if reply.VersionMajor != 1 || reply.VersionMinor != 1 {
		t.Errorf("version = %d.%d, want 1.1", reply.VersionMajor, reply.VersionMinor)
	}
	if reply.ServerInfo != "node v2026.8" {
		t.Errorf("server info = %q", reply.ServerInfo)
	}

	// Missing payloads are an error, not a zero value.
	empty := &Frame{Type: MsgHelloReply, ID: 2}
	if err := empty.DecodePayload(&reply); err == nil {
		t.Error("expected error decoding empty payload")
	}
}

func TestStatePayloadRoundTrip(t *testing.T) {
	payload := &StatePayload{
		Key:  42,
		Kind: 4,
		Attrs: map[uint8]any{
			1: true,
			2: 0.75,
		},
	}
	data, err := EncodeFrame(MsgState, UnsolicitedID, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	var got StatePayload
	if err := frame.DecodePayload(&got); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if got.Key != 42 || got.Kind != 4 {
		t.Errorf("key/kind = %d/%d, want 42/4", got.Key, got.Kind)
	}
	if on, ok := ToBool(got.Attrs[1]); !ok || !on {
		t.Errorf("attr 1 = %v, want true", got.Attrs[1])
	}
	if v, ok := ToFloat64(got.Attrs[2]); !ok || v != 0.75 {
		t.Errorf("attr 2 = %v, want 0.75", got.Attrs[2])
	}
}

func TestLenientDecoding(t *testing.T) {
	// A newer node may add fields this client does not know about.
	type futureHelloReply struct {
		VersionMajor uint8  `cbor:"1,keyasint"`
		VersionMinor uint8  `cbor:"2,keyasint"`
		ServerInfo   string `cbor:"3,keyasint,omitempty"`
		NewField     string `cbor:"9,keyasint,omitempty"`
	}
	data, err := EncodeFrame(MsgHelloReply, 1, &futureHelloReply{
		VersionMajor: 1,
		VersionMinor: 2,
		NewField:     "surprise",
	})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	var reply HelloReplyPayload
	if err := frame.DecodePayload(&reply); err != nil {
		t.Fatalf("DecodePayload failed on unknown field: %v", err)
	}
	if reply.VersionMajor != 1 || reply.VersionMinor != 2 {
		t.Errorf("version = %d.%d, want 1.2", reply.VersionMajor, reply.VersionMinor)
	}
}
