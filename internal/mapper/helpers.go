package mapper

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"retail-sync/inventory-sync/internal/model"
)

// Source rows come from payloads and views that disagree on field naming
// (Cantidad_fisica vs cantidadFisica vs CANTIDAD_FISICA). Lookups try the
// listed names exactly, then fall back to a case/underscore-insensitive scan
// over the row.

func normKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, " ", "")
	return k
}

func lookup(row model.SourceRow, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := row[n]; ok && v != nil {
			return v, true
		}
	}
	for _, n := range names {
		want := normKey(n)
		for k, v := range row {
			if v != nil && normKey(k) == want {
				return v, true
			}
		}
	}
	return nil, false
}

// pickStr returns the first non-blank string value under any of the names.
func pickStr(row model.SourceRow, names ...string) string {
	v, ok := lookup(row, names...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// pickStrPtr is pickStr but nil when the field is absent or blank, so the
// destination column stays null instead of becoming "".
func pickStrPtr(row model.SourceRow, names ...string) *string {
	s := pickStr(row, names...)
	if s == "" {
		return nil
	}
	return &s
}

// pickFloat coerces numeric source values (JSON numbers, ints, numeric
// strings) to a float64; nil when absent or unparseable.
func pickFloat(row model.SourceRow, names ...string) *float64 {
	v, ok := lookup(row, names...)
	if !ok {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	return &f
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
