// Package payload turns the variant response shapes returned by the admin
// backend into canonical records, lists and ids.
package payload

import (
	"errors"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

// ErrUnrecognizedShape is returned when no extraction strategy matches.
var ErrUnrecognizedShape = errors.New("unrecognized response shape")

type entityStrategy func(m map[string]any, res domain.Resource, depth int) (map[string]any, bool)

type listStrategy func(m map[string]any, res domain.Resource, depth int) ([]any, bool)

// Strategies are tried in order; the first match wins. They are assigned in
// init because the data strategies recurse through the lists.
var (
	entityStrategies []entityStrategy
	listStrategies   []listStrategy
)

func init() {
	entityStrategies = []entityStrategy{bareEntity, namedEntity, dataEntity}
	listStrategies = []listStrategy{namedList, dataList, keyedList("items"), keyedList("rows"), keyedList("results")}
}

// maxDepth bounds recursion through nested "data" envelopes.
const maxDepth = 1

// ExtractEntity returns the single entity carried by a mutation response shaped
// as entity, {<entity>: entity} or {data: entity}. Maps without an identifier
// are never treated as entities.
func ExtractEntity(raw any, res domain.Resource) (domain.Record, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	entity, ok := extractEntity(m, res, 0)
	if !ok {
		return nil, false
	}
	return domain.Record(entity).Clone(), true
}

func extractEntity(m map[string]any, res domain.Resource, depth int) (map[string]any, bool) {
	for _, strategy := range entityStrategies {
		if entity, ok := strategy(m, res, depth); ok {
			return entity, true
		}
	}
	return nil, false
}

func bareEntity(m map[string]any, res domain.Resource, _ int) (map[string]any, bool) {
	if domain.Record(m).HasID(res.IDField) {
		return m, true
	}
	return nil, false
}

func namedEntity(m map[string]any, res domain.Resource, _ int) (map[string]any, bool) {
	for _, key := range wrapperKeys(res.Entity) {
		if entity, ok := m[key].(map[string]any); ok && domain.Record(entity).HasID(res.IDField) {
			return entity, true
		}
	}
	return nil, false
}

func dataEntity(m map[string]any, res domain.Resource, depth int) (map[string]any, bool) {
	data, ok := m["data"].(map[string]any)
	if !ok {
		return nil, false
	}
	if depth >= maxDepth {
		return bareEntity(data, res, depth)
	}
	return extractEntity(data, res, depth+1)
}

// ExtractWrapped returns the entity only when it sits under the resource's own
// wrapper key, either at the top level or inside "data". Bare maps are ignored,
// which suits endpoints whose bodies describe a related record.
func ExtractWrapped(raw any, res domain.Resource) (domain.Record, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	if entity, ok := namedEntity(m, res, 0); ok {
		return domain.Record(entity).Clone(), true
	}
	if data, ok := m["data"].(map[string]any); ok {
		if entity, ok := namedEntity(data, res, 1); ok {
			return domain.Record(entity).Clone(), true
		}
	}
	return nil, false
}

// ExtractList returns the collection carried by a list response shaped as a bare
// array, {<collection>: [...]}, {data: [...]}, {data: {<collection>: [...]}} or
// a paged envelope using items/rows/results.
func ExtractList(raw any, res domain.Resource) ([]domain.Record, error) {
	switch typed := raw.(type) {
	case nil:
		return []domain.Record{}, nil
	case []any:
		return toRecords(typed), nil
	case map[string]any:
		items, ok := extractList(typed, res, 0)
		if !ok {
			return nil, ErrUnrecognizedShape
		}
		return toRecords(items), nil
	default:
		return nil, ErrUnrecognizedShape
	}
}

func extractList(m map[string]any, res domain.Resource, depth int) ([]any, bool) {
	for _, strategy := range listStrategies {
		if items, ok := strategy(m, res, depth); ok {
			return items, true
		}
	}
	return nil, false
}

func namedList(m map[string]any, res domain.Resource, _ int) ([]any, bool) {
	for _, key := range wrapperKeys(res.Collection) {
		if v, present := m[key]; present {
			return asSlice(v)
		}
	}
	return nil, false
}

func dataList(m map[string]any, res domain.Resource, depth int) ([]any, bool) {
	v, present := m["data"]
	if !present {
		return nil, false
	}
	if nested, ok := v.(map[string]any); ok {
		if depth >= maxDepth {
			return nil, false
		}
		return extractList(nested, res, depth+1)
	}
	return asSlice(v)
}

func keyedList(key string) listStrategy {
	return func(m map[string]any, _ domain.Resource, _ int) ([]any, bool) {
		v, present := m[key]
		if !present {
			return nil, false
		}
		return asSlice(v)
	}
}

func asSlice(v any) ([]any, bool) {
	switch typed := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return typed, true
	default:
		return nil, false
	}
}

func toRecords(items []any) []domain.Record {
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, domain.Record(m))
		}
	}
	return out
}

// ExtractID returns the identifier echoed by a delete response, or fallback when
// the response does not carry one. The echo is informational; reconciliation
// keys on the requested id.
func ExtractID(raw any, res domain.Resource, fallback string) string {
	if entity, ok := ExtractEntity(raw, res); ok {
		if v, ok := entity.IDValue(res.IDField); ok {
			if key := domain.IDKey(v); key != "" {
				return key
			}
		}
	}
	if m, ok := raw.(map[string]any); ok {
		for _, key := range []string{"deleted_id", "deletedId"} {
			if v, ok := m[key]; ok && domain.IDKey(v) != "" {
				return domain.IDKey(v)
			}
		}
	}
	return fallback
}

func wrapperKeys(key string) []string {
	if key == "" {
		return nil
	}
	if camel := domain.CamelCase(key); camel != key {
		return []string{key, camel}
	}
	return []string{key}
}
