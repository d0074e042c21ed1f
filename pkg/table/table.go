// Package table converts the tabular result sets returned by the Amazon
// Photos metadata API into plain JSON-serializable records. The upstream
// source has two known defects this package compensates for: every logical
// row can appear twice per query, and missing numeric/temporal fields are
// filled with NaN/NaT sentinels that break JSON encoding.
package table

import (
	"math"
	"time"
)

// Row is a single record of named fields.
type Row map[string]any

// Sanitize returns rows with not-a-value sentinels replaced by nil and
// duplicate rows removed. Input order is preserved; when idField is
// non-empty, later rows whose idField value was already seen are dropped
// (first occurrence wins). Rows missing the idField are never deduplicated.
// A max of 0 means unlimited.
func Sanitize(rows []Row, idField string, max int) []Row {
	out := make([]Row, 0, len(rows))
	seen := make(map[any]bool)

	for _, row := range rows {
		if idField != "" {
			if id, ok := row[idField]; ok && hashable(id) {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
		}
		out = append(out, sanitizeRow(row))
		if max > 0 && len(out) >= max {
			break
		}
	}

	return out
}

// SanitizeAny accepts whatever shape the upstream handed back. Row-shaped
// input goes through Sanitize; anything else (get_folders is known to return
// a plain list of scalar structures) is converted to rows without
// deduplication. It never fails.
func SanitizeAny(v any, idField string, max int) []Row {
	switch t := v.(type) {
	case nil:
		return []Row{}
	case []Row:
		return Sanitize(t, idField, max)
	case []map[string]any:
		rows := make([]Row, len(t))
		for i, m := range t {
			rows[i] = Row(m)
		}
		return Sanitize(rows, idField, max)
	case []any:
		// A list of records is still tabular, just decoded loosely; only a
		// list containing scalars falls through to the value wrapper.
		rows := make([]Row, 0, len(t))
		tabular := true
		for _, item := range t {
			switch m := item.(type) {
			case Row:
				rows = append(rows, m)
			case map[string]any:
				rows = append(rows, Row(m))
			default:
				tabular = false
			}
		}
		if tabular {
			return Sanitize(rows, idField, max)
		}

		out := make([]Row, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case Row:
				out = append(out, sanitizeRow(m))
			case map[string]any:
				out = append(out, sanitizeRow(m))
			default:
				out = append(out, Row{"value": sanitizeValue(item)})
			}
			if max > 0 && len(out) >= max {
				break
			}
		}
		return out
	case Row:
		return []Row{sanitizeRow(t)}
	case map[string]any:
		return []Row{sanitizeRow(t)}
	default:
		return []Row{{"value": sanitizeValue(v)}}
	}
}

func sanitizeRow(row Row) Row {
	clean := make(Row, len(row))
	for k, v := range row {
		clean[k] = sanitizeValue(v)
	}
	return clean
}

// sanitizeValue replaces NaN and NaT sentinels with nil and recurses into
// nested substructures.
func sanitizeValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case float32:
		if math.IsNaN(float64(t)) {
			return nil
		}
		return t
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		return *t
	case Row:
		return sanitizeRow(t)
	case map[string]any:
		return sanitizeRow(Row(t))
	case []Row:
		out := make([]Row, len(t))
		for i, r := range t {
			out[i] = sanitizeRow(r)
		}
		return out
	case []map[string]any:
		out := make([]Row, len(t))
		for i, r := range t {
			out[i] = sanitizeRow(Row(r))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// hashable reports whether the value can be used as a map key for
// dedup tracking. Slices and maps from decoded JSON cannot.
func hashable(v any) bool {
	switch v.(type) {
	case []any, []Row, map[string]any, Row:
		return false
	default:
		return true
	}
}
