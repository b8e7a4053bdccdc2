package wire

// Value coercion helpers for attribute maps. After a CBOR round-trip
// attribute values arrive as uint64/int64/float64/bool/string/[]byte;
// these normalize them for kind-specific decoding.

// ToUint64 converts a raw CBOR value to uint64.
func ToUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// ToFloat64 converts a raw CBOR value to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ToBool converts a raw CBOR value to bool.
func ToBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// ToString converts a raw CBOR value to string.
func ToString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ToBytes converts a raw CBOR value to a byte slice.
func ToBytes(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}
