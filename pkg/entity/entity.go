// Package entity models the capabilities a NodeLink node reports:
// entities (stateful, observable features) and services (invokable
// actions), plus the per-kind state records pushed over the state
// stream.
package entity

import (
	"fmt"

	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

// Kind identifies the variant of an entity and of its state records.
// The numeric values are the wire encoding.
type Kind uint8

const (
	// KindUnknown is the fallback for kinds this client does not know.
	KindUnknown Kind = 0

	// KindBinarySensor is an on/off observation (motion, contact).
	KindBinarySensor Kind = 1

	// KindSensor is a numeric observation.
	KindSensor Kind = 2

	// KindSwitch is a controllable on/off output.
	KindSwitch Kind = 3

	// KindLight is a dimmable, colorable light.
	KindLight Kind = 4

	// KindTextSensor is a free-form text observation.
	KindTextSensor Kind = 5

	// KindCamera is a still-image capture entity.
	KindCamera Kind = 6
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBinarySensor:
		return "binary_sensor"
	case KindSensor:
		return "sensor"
	case KindSwitch:
		return "switch"
	case KindLight:
		return "light"
	case KindTextSensor:
		return "text_sensor"
	case KindCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// RequiresPriming reports whether entities of this kind only emit
// their first state after an explicit one-shot trigger. A camera never
// pushes an image spontaneously; without the trigger, waiting for its
// state blocks forever.
func (k Kind) RequiresPriming() bool {
	return k == KindCamera
}

// Entity is one stateful capability of a node. Entities are immutable
// after enumeration; Key is assigned by the node and opaque.
type Entity struct {
	Key      uint32
	Kind     Kind
	ObjectID string
	Name     string
}

// String returns a one-line description for listings.
func (e Entity) String() string {
	return fmt.Sprintf("%s %q (key=%d, id=%s)", e.Kind, e.Name, e.Key, e.ObjectID)
}

// Service is one invokable action of a node.
type Service struct {
	Key  uint32
	Name string
	Args []string
}

// String returns a one-line description for listings.
func (s Service) String() string {
	return fmt.Sprintf("service %q (key=%d, args=%v)", s.Name, s.Key, s.Args)
}

// EntityFromInfo converts a wire descriptor into an Entity. Kinds the
// client does not know map to KindUnknown rather than being dropped.
func EntityFromInfo(info wire.EntityInfo) Entity {
	k := Kind(info.Kind)
	if k > KindCamera {
		k = KindUnknown
	}
	return Entity{
		Key:      info.Key,
		Kind:     k,
		ObjectID: info.ObjectID,
		Name:     info.Name,
	}
}

// ServiceFromInfo converts a wire descriptor into a Service.
func ServiceFromInfo(info wire.ServiceInfo) Service {
	return Service{
		Key:  info.Key,
		Name: info.Name,
		Args: info.Args,
	}
}
