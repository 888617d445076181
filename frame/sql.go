// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aclements/go-gg/table"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// SQLSource reads the rows of a database table or query. Integer
// columns load as int64, real columns as float64, text as string
// and booleans as bool. NULLs load as the zero value.
type SQLSource struct {
	Driver string // "sqlite" or "pgx"
	DSN    string
	Table  string // table name, or a SELECT statement
}

func (s *SQLSource) String() string {
	return s.Driver + ":" + s.DSN + "#" + s.Table
}

func (s *SQLSource) query() string {
	q := strings.TrimSpace(s.Table)
	if strings.HasPrefix(strings.ToUpper(q), "SELECT ") {
		return q
	}
	return `SELECT * FROM "` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

func (s *SQLSource) Load(ctx context.Context) (*table.Table, error) {
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Driver, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	bs := make([]*columnBuilder, len(names))
	for i, name := range names {
		bs[i] = &columnBuilder{name: name}
	}
	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	nrows := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range raw {
			cv, err := sqlValue(v, bs[i])
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", names[i], nrows, err)
			}
			bs[i].append(cv)
		}
		nrows++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return build(bs), nil
}

// sqlValue converts a scanned value to the element type of b's
// column, choosing the type from the first non-NULL value seen.
func sqlValue(v any, b *columnBuilder) (reflect.Value, error) {
	var rv reflect.Value
	switch v := v.(type) {
	case nil:
		if b.col.IsValid() {
			return reflect.Zero(b.col.Type().Elem()), nil
		}
		rv = reflect.ValueOf(0.0)
	case []byte:
		rv = reflect.ValueOf(string(v))
	case int32:
		rv = reflect.ValueOf(int64(v))
	case float32:
		rv = reflect.ValueOf(float64(v))
	case time.Time:
		rv = reflect.ValueOf(float64(v.UnixNano()) / 1e9)
	default:
		rv = reflect.ValueOf(v)
	}
	if !b.col.IsValid() {
		return rv, nil
	}
	want := b.col.Type().Elem()
	if rv.Type() == want {
		return rv, nil
	}
	if rv.CanConvert(want) && rv.Kind() != reflect.String && want.Kind() != reflect.String {
		return rv.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%v value in %v column", rv.Type(), want)
}
