package etl

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ── Record ─────────────────────────────────────────────────
// Two record shapes flow through the pipeline: the School, an
// ordered JSON object from the collection, and the Row, a
// header-keyed line of a tabular export.

// School is one object of the school collection.
// Field order and untouched values are kept exactly as loaded.
type School struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewSchool returns an empty school record.
func NewSchool() *School {
	return &School{fields: orderedmap.New[string, json.RawMessage]()}
}

// Has reports whether the record carries the field.
func (s *School) Has(field string) bool {
	_, ok := s.fields.Get(field)
	return ok
}

// Raw returns the JSON value of a field.
func (s *School) Raw(field string) (json.RawMessage, bool) {
	return s.fields.Get(field)
}

// Number returns a numeric field. Non-numeric values report false.
func (s *School) Number(field string) (float64, bool) {
	raw, ok := s.fields.Get(field)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetNumber sets or overwrites a numeric field.
func (s *School) SetNumber(field string, v float64) {
	s.fields.Set(field, json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64)))
}

// SetString sets or overwrites a string field.
func (s *School) SetString(field, v string) {
	b, _ := json.Marshal(v)
	s.fields.Set(field, b)
}

// Fields returns the field names in order.
func (s *School) Fields() []string {
	names := make([]string, 0, s.fields.Len())
	for p := s.fields.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// MarshalJSON writes the fields in their stored order.
func (s *School) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for p := s.fields.Oldest(); p != nil; p = p.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, p.Value); err != nil {
			return nil, errors.Wrapf(err, "field %q", p.Key)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON loads a JSON object, keeping field order.
func (s *School) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	s.fields = fields
	return nil
}

// Row is a single line of a tabular export, keyed by header.
type Row struct {
	Line int
	Data map[string]string
}

// Get returns a cell. Columns absent from the header or past the end of a
// short line report false.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Data[column]
	return v, ok
}
