package model

import (
	"context"
	"fmt"
	"strings"
)

// ColumnIntrospector reports a table's columns and their database types.
type ColumnIntrospector interface {
	Columns(ctx context.Context, table string) (map[string]string, error)
}

// IntrospectorFunc adapts a function to ColumnIntrospector.
type IntrospectorFunc func(ctx context.Context, table string) (map[string]string, error)

func (f IntrospectorFunc) Columns(ctx context.Context, table string) (map[string]string, error) {
	return f(ctx, table)
}

// introspectFields fills the fields of definitions that declare none.
func introspectFields(ctx context.Context, in ColumnIntrospector, defs []*Definition) error {
	for _, def := range defs {
		if len(def.Fields) > 0 {
			continue
		}
		cols, err := in.Columns(ctx, def.Table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("resource %q: table %q has no columns", def.Name, def.Table)
		}
		def.Fields = make(map[string]string, len(cols))
		for name, dbType := range cols {
			def.Fields[name] = string(FieldTypeFromDB(dbType))
		}
	}
	return nil
}

// FieldTypeFromDB maps a PostgreSQL or SQLite column type onto a field type.
func FieldTypeFromDB(dbType string) FieldType {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case strings.HasPrefix(t, "interval") || strings.HasPrefix(t, "point"):
		return TypeString
	case strings.Contains(t, "int") || strings.Contains(t, "serial"):
		return TypeInt
	case strings.HasPrefix(t, "bool"):
		return TypeBool
	case strings.Contains(t, "real") || strings.Contains(t, "double") ||
		strings.Contains(t, "numeric") || strings.Contains(t, "decimal") || strings.Contains(t, "float"):
		return TypeFloat
	case strings.HasPrefix(t, "timestamp") || strings.HasPrefix(t, "datetime"):
		return TypeDatetime
	case t == "date":
		return TypeDate
	case strings.HasPrefix(t, "time"):
		return TypeTime
	case t == "uuid":
		return TypeUUID
	case t == "bytea" || t == "blob":
		return TypeBinary
	default:
		return TypeString
	}
}
