package main

import (
	"fmt"
	"strings"
)

// FilterSpec is a declarative row filter for one table. Exactly one of the
// two variants is populated: Raw holds a verbatim WHERE body supplied by the
// config author (a deliberate trust boundary, never escaped), Fields holds a
// structured filter compiled into escaped predicates.
type FilterSpec struct {
	Raw    string
	IsRaw  bool
	Fields []FilterField
}

// FilterField is one structured predicate: a column compared against a
// scalar (=), a sequence (IN), a boolean, or a range mapping.
type FilterField struct {
	Column string
	Value  any
}

// rangeOps maps range keys to SQL comparison operators. Emission order is
// fixed so the same config always compiles to the same SQL.
var rangeOps = []struct {
	key string
	op  string
}{
	{"gte", ">="},
	{"gt", ">"},
	{"lte", "<="},
	{"lt", "<"},
}

// compileFilter turns a filter spec into a WHERE clause body. A nil spec
// compiles to the empty string (no filtering). columns is the set of valid
// source column names; structured filters referencing unknown columns fail,
// raw filters bypass the check entirely.
func compileFilter(f *FilterSpec, columns map[string]bool) (string, error) {
	if f == nil {
		return "", nil
	}
	if f.IsRaw {
		return f.Raw, nil
	}

	var preds []string
	for _, field := range f.Fields {
		if !columns[field.Column] {
			return "", configErrorf("filter references unknown column %q", field.Column)
		}
		p, err := compilePredicate(field.Column, field.Value)
		if err != nil {
			return "", err
		}
		preds = append(preds, p)
	}
	return strings.Join(preds, " AND "), nil
}

func compilePredicate(column string, value any) (string, error) {
	ident := pgIdent(column)

	switch v := value.(type) {
	case bool:
		if v {
			return ident + " = TRUE", nil
		}
		return ident + " = FALSE", nil

	case []any:
		// Empty IN list matches no rows rather than producing broken SQL.
		if len(v) == 0 {
			return "FALSE", nil
		}
		lits := make([]string, len(v))
		for i, item := range v {
			lit, err := pgLiteral(item)
			if err != nil {
				return "", configErrorf("filter %s: IN element %d: %v", column, i, err)
			}
			lits[i] = lit
		}
		return fmt.Sprintf("%s IN (%s)", ident, strings.Join(lits, ", ")), nil

	case map[string]any:
		return compileRange(column, ident, v)

	default:
		lit, err := pgLiteral(value)
		if err != nil {
			return "", configErrorf("filter %s: %v", column, err)
		}
		return fmt.Sprintf("%s = %s", ident, lit), nil
	}
}

func compileRange(column, ident string, bounds map[string]any) (string, error) {
	for key := range bounds {
		if !isRangeKey(key) {
			return "", configErrorf("filter %s: unknown range key %q (want gte, lte, gt, lt)", column, key)
		}
	}
	if len(bounds) == 0 {
		return "", configErrorf("filter %s: empty range", column)
	}

	var preds []string
	for _, r := range rangeOps {
		v, ok := bounds[r.key]
		if !ok {
			continue
		}
		lit, err := pgLiteral(v)
		if err != nil {
			return "", configErrorf("filter %s: range %s: %v", column, r.key, err)
		}
		preds = append(preds, fmt.Sprintf("%s %s %s", ident, r.op, lit))
	}
	return strings.Join(preds, " AND "), nil
}

func isRangeKey(key string) bool {
	for _, r := range rangeOps {
		if r.key == key {
			return true
		}
	}
	return false
}
