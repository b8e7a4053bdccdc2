package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/nodelink-protocol/nodelink-go/pkg/log"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "small message",
			payload: []byte("hello"),
		},
		{
			name:    "medium message",
			payload: bytes.Repeat([]byte("x"), 1000),
		},
		{
			name:    "max size message",
			payload: bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
		},
		{
			name:    "single byte",
			payload: []byte{0x42},
		},
		{
			name:    "binary data",
			payload: []byte{0x00, 0xFF, 0x7F, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			writer := NewFrameWriter(buf)
			if err := writer.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			expectedSize := LengthPrefixSize + len(tt.payload)
			if buf.Len() != expectedSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), expectedSize)
			}

			reader := NewFrameReader(buf)
			got, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}

			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameWriterEmptyMessage(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)

	err := writer.WriteFrame([]byte{})
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}

	err = writer.WriteFrame(nil)
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty for nil, got %v", err)
	}
}

func TestFrameWriterMessageTooLarge(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriterWithMaxSize(buf, 100)

	err := writer.WriteFrame(bytes.Repeat([]byte("z"), 101))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFrameReaderTooLargeAnnounced(t *testing.T) {
	buf := new(bytes.Buffer)
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 200)
	buf.Write(lengthBuf[:])
	buf.Write(bytes.Repeat([]byte("z"), 200))

	reader := NewFrameReaderWithMaxSize(buf, 100)
	_, err := reader.ReadFrame()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFrameReaderZeroLength(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0, 0, 0, 0})

	reader := NewFrameReader(buf)
	_, err := reader.ReadFrame()
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty stream",
			data: nil,
			want: io.EOF,
		},
		{
			name: "partial length prefix",
			data: []byte{0, 0},
			want: ErrFrameTruncated,
		},
		{
			name: "partial payload",
			data: []byte{0, 0, 0, 10, 'a', 'b', 'c'},
			want: ErrFrameTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewFrameReader(bytes.NewReader(tt.data))
			_, err := reader.ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadFrame error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFramerRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	framer := NewFramer(buf)

	messages := [][]byte{
		[]byte("first"),
		[]byte("second"),
		[]byte("third"),
	}
	for _, msg := range messages {
		if err := framer.WriteFrame(msg); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	for _, msg := range messages {
		got, err := framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Errorf("got %q, want %q", got, msg)
		}
	}
}

// captureLogger collects frame events for inspection.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLogger) Log(event log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *captureLogger) all() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.events...)
}

func TestFramerLogging(t *testing.T) {
	buf := new(bytes.Buffer)
	framer := NewFramer(buf)

	logger := &captureLogger{}
	framer.SetLogger(logger, "conn-1")

	payload := []byte("logged")
	if err := framer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	events := logger.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != log.DirectionOut {
		t.Errorf("first event direction = %v, want OUT", events[0].Direction)
	}
	if events[1].Direction != log.DirectionIn {
		t.Errorf("second event direction = %v, want IN", events[1].Direction)
	}
	for _, ev := range events {
		if ev.ConnectionID != "conn-1" {
			t.Errorf("event connection ID = %q, want %q", ev.ConnectionID, "conn-1")
		}
		if ev.Frame == nil {
			t.Fatal("event has no frame data")
		}
		if ev.Frame.Size != LengthPrefixSize+len(payload) {
			t.Errorf("frame size = %d, want %d", ev.Frame.Size, LengthPrefixSize+len(payload))
		}
	}
}

func TestFrameLogTruncation(t *testing.T) {
	buf := new(bytes.Buffer)
	framer := NewFramer(buf)

	logger := &captureLogger{}
	framer.SetLogger(logger, "conn-2")

	payload := bytes.Repeat([]byte("a"), MaxLogFrameDataSize+100)
	if err := framer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	events := logger.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !events[0].Frame.Truncated {
		t.Error("expected frame data to be marked truncated")
	}
	if len(events[0].Frame.Data) != MaxLogFrameDataSize {
		t.Errorf("logged data size = %d, want %d", len(events[0].Frame.Data), MaxLogFrameDataSize)
	}
}
