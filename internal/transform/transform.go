// Package transform builds row transforms from job column definitions.
package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yalp/jsonpath"

	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/models"
)

// Identity writes every source column unchanged.
func Identity(row *models.Row) (*models.Row, error) {
	return models.CloneRow(row), nil
}

// column is a compiled config.Column.
type column struct {
	def    config.Column
	source string
	filter jsonpath.FilterFunc
}

// FromColumns compiles cols into a transform. With no columns it returns Identity.
func FromColumns(cols []config.Column) (func(*models.Row) (*models.Row, error), error) {
	if len(cols) == 0 {
		return Identity, nil
	}
	compiled := make([]column, 0, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("transform.FromColumns: column name is required")
		}
		cc := column{def: c, source: c.Source()}
		if c.JSONPath != "" {
			f, err := jsonpath.Prepare(c.JSONPath)
			if err != nil {
				return nil, fmt.Errorf("transform.FromColumns: column %s: jsonpath %q: %w", c.Name, c.JSONPath, err)
			}
			cc.filter = f
		}
		compiled = append(compiled, cc)
	}

	return func(row *models.Row) (*models.Row, error) {
		out := models.NewRow()
		for _, c := range compiled {
			v, err := c.value(row)
			if err != nil {
				return nil, err
			}
			out.Set(c.def.Name, v)
		}
		return out, nil
	}, nil
}

func (c column) value(row *models.Row) (any, error) {
	v, err := c.lookup(row)
	if err != nil || v == nil || !c.def.MVA {
		return v, err
	}
	s, err := joinMVA(v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", c.def.Name, err)
	}
	return s, nil
}

// lookup returns the raw column value, falling back to the default.
func (c column) lookup(row *models.Row) (any, error) {
	v, ok := row.Get(c.source)
	if !ok {
		if c.def.Default != nil {
			return c.def.Default, nil
		}
		return nil, fmt.Errorf("column %s: source column %s not found", c.def.Name, c.source)
	}
	if v == nil {
		return c.def.Default, nil
	}

	if c.filter != nil {
		doc, err := decodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.def.Name, err)
		}
		v, err = c.filter(doc)
		if err != nil {
			// No match is a missing value, not a broken row.
			if c.def.Default != nil {
				return c.def.Default, nil
			}
			return nil, fmt.Errorf("column %s: jsonpath %s: %w", c.def.Name, c.def.JSONPath, err)
		}
	}
	return v, nil
}

func decodeJSON(v any) (any, error) {
	var data []byte
	switch t := v.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	default:
		return v, nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return doc, nil
}

// joinMVA renders v as the comma-separated body of an MVA literal.
func joinMVA(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, err := mvaItem(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return mvaItem(v)
	}
}

func mvaItem(v any) (string, error) {
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return "", fmt.Errorf("MVA value %v is not an integer", t)
		}
		return fmt.Sprintf("%d", int64(t)), nil
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(t), nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("MVA value %v has unsupported type %T", v, v)
	}
}

// MVAColumns lists the names of the columns flagged as MVA.
func MVAColumns(cols []config.Column) []string {
	var out []string
	for _, c := range cols {
		if c.MVA {
			out = append(out, c.Name)
		}
	}
	return out
}
