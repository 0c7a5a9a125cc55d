package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// Coerce converts a JSON payload or query string value into the Go value
// stored for a field of type ft. nil passes through.
func Coerce(ft FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch ft {
	case TypeInt:
		if n, ok := ToInt64(v); ok {
			return n, nil
		}
	case TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		default:
			if n, ok := ToInt64(v); ok {
				return float64(n), nil
			}
		}
	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		}
	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		default:
			if n, ok := ToInt64(v); ok && (n == 0 || n == 1) {
				return n == 1, nil
			}
		}
	case TypeDatetime, TypeDate:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			s := strings.TrimSpace(x)
			for _, layout := range datetimeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					if ft == TypeDate {
						return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
					}
					return t.UTC(), nil
				}
			}
		}
	case TypeTime:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			for _, layout := range []string{"15:04:05", "15:04"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t.Format("15:04:05"), nil
				}
			}
		}
	case TypeUUID:
		switch x := v.(type) {
		case string:
			if u, err := uuid.Parse(strings.TrimSpace(x)); err == nil {
				return u, nil
			}
		case uuid.UUID:
			return x, nil
		}
	case TypeBinary:
		switch x := v.(type) {
		case string:
			if b, err := base64.StdEncoding.DecodeString(x); err == nil {
				return b, nil
			}
		case []byte:
			return x, nil
		}
	default:
		return nil, fmt.Errorf("unknown field type %q", ft)
	}
	return nil, fmt.Errorf("value %v is not a valid %s", v, ft)
}
