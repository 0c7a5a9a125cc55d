package builder

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"ResteasyAPI/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type converter func(v any) any

var converters = map[model.FieldType]converter{
	model.TypeInt:      convertInt,
	model.TypeFloat:    convertFloat,
	model.TypeString:   convertString,
	model.TypeBool:     convertBool,
	model.TypeDatetime: convertTime(time.RFC3339),
	model.TypeDate:     convertTime("2006-01-02"),
	model.TypeTime:     convertClock,
	model.TypeUUID:     convertUUID,
	model.TypeBinary:   convertBinary,
}

// Convert renders a stored value of type ft as a JSON value.
func Convert(ft model.FieldType, v any) any {
	if v == nil {
		return nil
	}
	if c, ok := converters[ft]; ok {
		return c(v)
	}
	return v
}

func convertInt(v any) any {
	if n, ok := model.ToInt64(v); ok {
		return n
	}
	return v
}

func convertFloat(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	case []byte:
		if f, err := strconv.ParseFloat(string(x), 64); err == nil {
			return f
		}
	}
	if n, ok := model.ToInt64(v); ok {
		return float64(n)
	}
	return v
}

func convertString(v any) any {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func convertBool(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
		return v
	}
	if n, ok := model.ToInt64(v); ok {
		return n != 0
	}
	return v
}

func convertTime(layout string) converter {
	return func(v any) any {
		switch x := v.(type) {
		case time.Time:
			return x.UTC().Format(layout)
		case []byte:
			return string(x)
		}
		return v
	}
}

func convertClock(v any) any {
	switch x := v.(type) {
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		d := time.Duration(x.Microseconds) * time.Microsecond
		return time.Time{}.Add(d).Format("15:04:05")
	case time.Time:
		return x.Format("15:04:05")
	case []byte:
		return string(x)
	}
	return v
}

func convertUUID(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case uuid.UUID:
		return x.String()
	case []byte:
		if u, err := uuid.FromBytes(x); err == nil {
			return u.String()
		}
		return string(x)
	}
	return v
}

func convertBinary(v any) any {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case string:
		return base64.StdEncoding.EncodeToString([]byte(x))
	}
	return v
}
