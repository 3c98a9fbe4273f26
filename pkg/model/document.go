package model

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Document is a settings value: a JSON object keyed by field name.
//
// A key that is present with a nil value is an explicit null and is distinct
// from an absent key, which means "inherit".
type Document map[string]any

// Has reports whether field is present, including explicit nulls.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// Clone returns a deep copy of the document. Nested maps and slices are
// copied so callers can never mutate a stored value through a result.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Document:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Lookup walks a dotted path ("smtp.port") through nested objects.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		var m map[string]any
		switch t := cur.(type) {
		case map[string]any:
			m = t
		case Document:
			m = t
		default:
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func (d Document) String(path string) string {
	v, _ := d.Lookup(path)
	return cast.ToString(v)
}

func (d Document) Bool(path string) bool {
	v, _ := d.Lookup(path)
	return cast.ToBool(v)
}

func (d Document) Int(path string) int {
	v, _ := d.Lookup(path)
	return cast.ToInt(v)
}

func (d Document) Float64(path string) float64 {
	v, _ := d.Lookup(path)
	return cast.ToFloat64(v)
}

func (d Document) StringSlice(path string) []string {
	v, _ := d.Lookup(path)
	return cast.ToStringSlice(v)
}

// Value implements driver.Valuer. A nil document is stored as "{}".
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	out := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("invalid document: %w", err)
		}
	}
	*d = out
	return nil
}

func (Document) GormDataType() string {
	return "json"
}

func (Document) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// GormValue casts the bound parameter on postgres so simple-protocol
// connections don't send the JSON as text into a jsonb column.
func (d Document) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	v, err := d.Value()
	if err != nil {
		_ = db.AddError(err)
	}
	if db.Dialector.Name() == "postgres" {
		return clause.Expr{SQL: "?::jsonb", Vars: []any{v}}
	}
	return clause.Expr{SQL: "?", Vars: []any{v}}
}
