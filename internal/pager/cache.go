package pager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// CountCache memoizes count queries. Entries are keyed by the SQL, its
// arguments and the current version of every table read; Invalidate bumps
// the version of written tables.
type CountCache interface {
	Count(ctx context.Context, tables []string, sql string, args []any, load func() (int64, error)) (int64, error)
	Invalidate(ctx context.Context, tables ...string)
}

// NopCache always loads.
type NopCache struct{}

func (NopCache) Count(_ context.Context, _ []string, _ string, _ []any, load func() (int64, error)) (int64, error) {
	return load()
}

func (NopCache) Invalidate(context.Context, ...string) {}

const keyPrefix = "count:"

func countCacheKey(tables []string, versions map[string]int64, sqlStr string, args []any) (string, error) {
	vers := make(map[string]any, len(versions))
	for t, v := range versions {
		vers[t] = v
	}
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)
	tablesAny := make([]any, len(sorted))
	for i, t := range sorted {
		tablesAny[i] = t
	}

	payload := map[string]any{
		"tables":   tablesAny,
		"versions": vers,
		"sql":      sqlStr,
		"args":     args,
	}
	data, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case []int64:
		items := make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
		return encodeCanonical(b, items)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := sonic.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		enc, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
