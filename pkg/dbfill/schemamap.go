package dbfill

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order
// and marshals to a JSON object with keys in that order.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// MarshalJSON writes the entries as a JSON object in insertion order.
// HTML characters are not escaped.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeJSON(k)
		if err != nil {
			return nil, err
		}
		val, err := encodeJSON(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the document's key order.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]V)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ManyToManyRecord describes one exported many-to-many relation.
type ManyToManyRecord struct {
	ContentTypeID StableID `json:"contenttype_id"`
	RelatedName   string   `json:"related_name"`
}

// EntityRecord is the exported description of one entity type.
type EntityRecord struct {
	ContentTypeID      StableID                      `json:"contenttype_id"`
	ModelName          string                        `json:"model_name"`
	DefaultRelatedName *string                       `json:"default_related_name"`
	Simple             *OrderedMap[string]           `json:"simple"`
	FK                 *OrderedMap[StableID]         `json:"fk"`
	MTM                *OrderedMap[ManyToManyRecord] `json:"mtm"`
}

// NewEntityRecord creates a record with empty field mappings.
func NewEntityRecord(id StableID, modelName string, defaultRelatedName *string) *EntityRecord {
	return &EntityRecord{
		ContentTypeID:      id,
		ModelName:          modelName,
		DefaultRelatedName: defaultRelatedName,
		Simple:             NewOrderedMap[string](),
		FK:                 NewOrderedMap[StableID](),
		MTM:                NewOrderedMap[ManyToManyRecord](),
	}
}

// GroupRecords maps type ids to records within one group.
type GroupRecords = OrderedMap[*EntityRecord]

// SchemaMap is the parsed cache: group -> type -> record, in registry order.
// A group present with no types was selected but had every type filtered out;
// an absent group was excluded.
type SchemaMap = OrderedMap[*GroupRecords]

// NewSchemaMap creates an empty SchemaMap.
func NewSchemaMap() *SchemaMap {
	return NewOrderedMap[*GroupRecords]()
}

// LookupRecord finds the record of an entity type in a schema map.
func LookupRecord(m *SchemaMap, ref TypeRef) (*EntityRecord, bool) {
	group, ok := m.Get(ref.Group)
	if !ok || group == nil {
		return nil, false
	}
	return group.Get(ref.Type)
}
