package entity

import (
	"fmt"

	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

// Attribute ids of the per-kind state payloads. Each kind has its own
// id space.
const (
	AttrBinarySensorState uint8 = 1

	AttrSensorValue uint8 = 1

	AttrSwitchOn uint8 = 1

	AttrLightOn               uint8 = 1
	AttrLightBrightness       uint8 = 2
	AttrLightRed              uint8 = 3
	AttrLightGreen            uint8 = 4
	AttrLightBlue             uint8 = 5
	AttrLightWhite            uint8 = 6
	AttrLightColorTemperature uint8 = 7
	AttrLightEffect           uint8 = 8

	AttrTextSensorText uint8 = 1

	AttrCameraImage uint8 = 1
)

// State is one observed value snapshot for one entity. It is a tagged
// union over the entity kinds; DecodeState matches kinds exhaustively
// and falls back to UnknownState.
type State interface {
	// EntityKey returns the key of the entity this state belongs to.
	EntityKey() uint32

	// EntityKind returns the kind tag of the state variant.
	EntityKind() Kind

	// String renders the state for display. Output is deterministic.
	String() string
}

// BinarySensorState is the state of a binary sensor entity.
type BinarySensorState struct {
	Key uint32
	On  bool
}

func (s BinarySensorState) EntityKey() uint32 { return s.Key }
func (s BinarySensorState) EntityKind() Kind  { return KindBinarySensor }
func (s BinarySensorState) String() string {
	return fmt.Sprintf("binary_sensor[key=%d on=%t]", s.Key, s.On)
}

// SensorState is the state of a numeric sensor entity.
type SensorState struct {
	Key   uint32
	Value float64
}

func (s SensorState) EntityKey() uint32 { return s.Key }
func (s SensorState) EntityKind() Kind  { return KindSensor }
func (s SensorState) String() string {
	return fmt.Sprintf("sensor[key=%d value=%g]", s.Key, s.Value)
}

// SwitchState is the state of a switch entity.
type SwitchState struct {
	Key uint32
	On  bool
}

func (s SwitchState) EntityKey() uint32 { return s.Key }
func (s SwitchState) EntityKind() Kind  { return KindSwitch }
func (s SwitchState) String() string {
	return fmt.Sprintf("switch[key=%d on=%t]", s.Key, s.On)
}

// LightState is the state of a light entity.
type LightState struct {
	Key              uint32
	On               bool
	Brightness       float64
	Red, Green, Blue float64
	White            float64
	ColorTemperature float64
	Effect           string
}

func (s LightState) EntityKey() uint32 { return s.Key }
func (s LightState) EntityKind() Kind  { return KindLight }
func (s LightState) String() string {
	return fmt.Sprintf("light[key=%d on=%t brightness=%.2f rgb=(%.2f,%.2f,%.2f) white=%.2f ct=%g effect=%q]",
		s.Key, s.On, s.Brightness, s.Red, s.Green, s.Blue, s.White, s.ColorTemperature, s.Effect)
}

// TextSensorState is the state of a text sensor entity.
type TextSensorState struct {
	Key  uint32
	Text string
}

func (s TextSensorState) EntityKey() uint32 { return s.Key }
func (s TextSensorState) EntityKind() Kind  { return KindTextSensor }
func (s TextSensorState) String() string {
	return fmt.Sprintf("text_sensor[key=%d text=%q]", s.Key, s.Text)
}

// CameraState is one captured image from a camera entity.
type CameraState struct {
	Key   uint32
	Image []byte
}

func (s CameraState) EntityKey() uint32 { return s.Key }
func (s CameraState) EntityKind() Kind  { return KindCamera }
func (s CameraState) String() string {
	return fmt.Sprintf("camera[key=%d image=%s]", s.Key, imageRepr(s.Image))
}

func imageRepr(img []byte) string {
	if len(img) == 0 {
		return "<none>"
	}
	// Image payloads are large and not deterministic across captures;
	// render the size only.
	return fmt.Sprintf("<%d bytes>", len(img))
}

// UnknownState preserves a state record of a kind this client does not
// know, so that unanticipated node features surface instead of being
// silently dropped.
type UnknownState struct {
	Key     uint32
	RawKind uint8
	Attrs   map[uint8]any
}

func (s UnknownState) EntityKey() uint32 { return s.Key }
func (s UnknownState) EntityKind() Kind  { return KindUnknown }
func (s UnknownState) String() string {
	return fmt.Sprintf("unknown[key=%d kind=%d attrs=%d]", s.Key, s.RawKind, len(s.Attrs))
}

// DecodeState converts a wire state payload into the typed variant for
// its kind. Unknown kinds decode to UnknownState.
func DecodeState(p *wire.StatePayload) State {
	attrs := p.Attrs
	switch Kind(p.Kind) {
	case KindBinarySensor:
		s := BinarySensorState{Key: p.Key}
		if v, ok := wire.ToBool(attrs[AttrBinarySensorState]); ok {
			s.On = v
		}
		return s
	case KindSensor:
		s := SensorState{Key: p.Key}
		if v, ok := wire.ToFloat64(attrs[AttrSensorValue]); ok {
			s.Value = v
		}
		return s
	case KindSwitch:
		s := SwitchState{Key: p.Key}
		if v, ok := wire.ToBool(attrs[AttrSwitchOn]); ok {
			s.On = v
		}
		return s
	case KindLight:
		s := LightState{Key: p.Key}
		if v, ok := wire.ToBool(attrs[AttrLightOn]); ok {
			s.On = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightBrightness]); ok {
			s.Brightness = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightRed]); ok {
			s.Red = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightGreen]); ok {
			s.Green = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightBlue]); ok {
			s.Blue = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightWhite]); ok {
			s.White = v
		}
		if v, ok := wire.ToFloat64(attrs[AttrLightColorTemperature]); ok {
			s.ColorTemperature = v
		}
		if v, ok := wire.ToString(attrs[AttrLightEffect]); ok {
			s.Effect = v
		}
		return s
	case KindTextSensor:
		s := TextSensorState{Key: p.Key}
		if v, ok := wire.ToString(attrs[AttrTextSensorText]); ok {
			s.Text = v
		}
		return s
	case KindCamera:
		s := CameraState{Key: p.Key}
		if v, ok := wire.ToBytes(attrs[AttrCameraImage]); ok {
			s.Image = v
		}
		return s
	case KindUnknown:
		return UnknownState{Key: p.Key, RawKind: p.Kind, Attrs: attrs}
	default:
		return UnknownState{Key: p.Key, RawKind: p.Kind, Attrs: attrs}
	}
}
