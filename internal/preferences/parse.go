package preferences

import (
	"math"
	"reflect"
)

// The Parse* functions validate raw backend values. ok=false means the value
// is malformed and the slot falls back to its default.

func ParseEnabled(raw any) (bool, bool) {
	b, ok := raw.(bool)
	return b, ok
}

// ParseDomainExclusions accepts any array or slice and keeps only its string
// elements. Anything that is not an array is malformed.
func ParseDomainExclusions(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s, ok := rv.Index(i).Interface().(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// ParseNotificationType accepts integral numbers naming a known variant.
func ParseNotificationType(raw any) (NotificationType, bool) {
	var n int64
	switch v := raw.(type) {
	case NotificationType:
		n = int64(v)
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint:
		return parseUnsignedType(uint64(v))
	case uint64:
		return parseUnsignedType(v)
	case uintptr:
		return parseUnsignedType(uint64(v))
	case float32:
		return parseFloatType(float64(v))
	case float64:
		return parseFloatType(v)
	default:
		return 0, false
	}
	t := NotificationType(n)
	if int64(t) != n || !t.Valid() {
		return 0, false
	}
	return t, true
}

func parseUnsignedType(u uint64) (NotificationType, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return ParseNotificationType(int64(u))
}

func parseFloatType(f float64) (NotificationType, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	t := NotificationType(int(f))
	if float64(t) != f || !t.Valid() {
		return 0, false
	}
	return t, true
}
