package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a server-defined entity as decoded from a JSON response.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding r's fields overlaid by patch.
// Fields missing from patch survive.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// IDValue returns the raw identifying value. The generic "id" key is consulted
// only when the record has no field key at all.
func (r Record) IDValue(field string) (any, bool) {
	if v, ok := r[field]; ok || field == "id" {
		return v, v != nil
	}
	if v, ok := r["id"]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// HasID reports whether the record carries a usable identifier.
func (r Record) HasID(field string) bool {
	v, ok := r.IDValue(field)
	return ok && IDKey(v) != ""
}

// MatchesID reports whether the record is identified by key. Records carrying
// field are matched on it alone; "id" is only a fallback.
func (r Record) MatchesID(field, key string) bool {
	if key == "" {
		return false
	}
	v, ok := r.IDValue(field)
	return ok && IDKey(v) == key
}

// IDKey canonicalises identifier values so 7, 7.0, "7" and json.Number("7")
// compare equal.
func IDKey(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return canonicalNumber(typed.String())
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func canonicalNumber(s string) string {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}
