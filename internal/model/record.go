package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is one stored instance of a resource: its column values and, once
// loaded, its relationship references (id, []int64 or nil per relationship).
type Record struct {
	Fields map[string]any
	Links  map[string]any
}

func NewRecord(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{Fields: fields, Links: map[string]any{}}
}

// ID returns the record's integer id, or 0 when it has none.
func (r *Record) ID() int64 {
	if r == nil {
		return 0
	}
	id, _ := ToInt64(r.Fields[IDField])
	return id
}

// IDs collects the ids of records in order.
func IDs(records []*Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID())
	}
	return out
}

// ToInt64 converts the integer representations produced by the drivers and
// the JSON decoder.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
