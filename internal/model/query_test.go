package model

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/google/go-cmp/cmp"
)

func clientConfig(t *testing.T) *Config {
	return mustConfig(t, &Definition{
		Name:   "client",
		Table:  "client",
		Fields: map[string]string{"id": "int", "full_name": "string"},
	}, ConfigOptions{})
}

var questionBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

func TestBuildIndexQuery(t *testing.T) {
	cfg := clientConfig(t)
	sb := cfg.BuildIndexQuery(questionBuilder, Query{
		Filters: []Filter{{Field: "full_name", Value: "Ann"}},
		Sorts:   []Sort{{Field: "full_name", Desc: true}},
		Scope:   []squirrel.Sqlizer{IDIn([]int64{1, 2})},
	})
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	want := `SELECT "full_name", "id" FROM "client" WHERE ("id" IN (?,?) AND "full_name" = ?) ORDER BY "full_name" DESC, "id" ASC`
	if sqlStr != want {
		t.Fatalf("sql =\n%s\nwant\n%s", sqlStr, want)
	}
	if diff := cmp.Diff([]any{int64(1), int64(2), "Ann"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIndexQueryDefaultOrder(t *testing.T) {
	sqlStr, _, err := clientConfig(t).BuildIndexQuery(questionBuilder, Query{}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if want := `SELECT "full_name", "id" FROM "client" ORDER BY "id" ASC`; sqlStr != want {
		t.Fatalf("sql = %s", sqlStr)
	}
}

func TestBuildCountQuery(t *testing.T) {
	sqlStr, args, err := clientConfig(t).BuildCountQuery(questionBuilder, Query{
		Filters: []Filter{{Field: "full_name", Value: nil}},
	}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if want := `SELECT COUNT(*) AS count FROM "client" WHERE ("full_name" IS NULL)`; sqlStr != want {
		t.Fatalf("sql = %s", sqlStr)
	}
	if len(args) != 0 {
		t.Fatalf("args = %v", args)
	}
}
