package etl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/buger/jsonparser"
	"github.com/cockroachdb/errors"
)

// ── School Store ───────────────────────────────────────────
// The in-memory school collection plus its identifier lookup.
// Merges mutate the records in place; Encode writes them all back.

// SchoolStore holds the loaded collection.
type SchoolStore struct {
	idField string
	schools []*School
	byID    map[string]*School
}

// NewSchoolStore indexes schools by idField. Later duplicates take the
// lookup slot; every record is still kept for encoding.
func NewSchoolStore(idField string, schools []*School) (*SchoolStore, error) {
	s := &SchoolStore{
		idField: idField,
		schools: schools,
		byID:    make(map[string]*School, len(schools)),
	}
	for i, school := range schools {
		raw, ok := school.Raw(idField)
		if !ok {
			return nil, errors.Newf("school %d: missing %q", i, idField)
		}
		id, err := identifierString(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "school %d", i)
		}
		s.byID[id] = school
	}
	return s, nil
}

// DecodeSchools parses a JSON array of school objects.
func DecodeSchools(data []byte, idField string) (*SchoolStore, error) {
	if off := invalidUTF8Offset(data); off >= 0 {
		return nil, errors.Newf("invalid utf-8 at byte %d", off)
	}
	if !json.Valid(data) {
		return nil, errors.New("malformed json")
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("top level value is not an array")
	}

	var (
		schools []*School
		elemErr error
	)
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if elemErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			elemErr = errors.Newf("school %d: expected object, got %s", len(schools), dataType)
			return
		}
		school := NewSchool()
		if err := school.UnmarshalJSON(value); err != nil {
			elemErr = errors.Wrapf(err, "school %d", len(schools))
			return
		}
		schools = append(schools, school)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan array")
	}
	if elemErr != nil {
		return nil, elemErr
	}
	return NewSchoolStore(idField, schools)
}

// invalidUTF8Offset returns the offset of the first invalid UTF-8 sequence,
// or -1 if data is valid.
func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return off
		}
		off += size
	}
	return -1
}

// identifierString turns a JSON string or number into a lookup key.
func identifierString(raw json.RawMessage) (string, error) {
	value, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return "", errors.Wrap(err, "identifier")
	}
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return "", errors.Wrap(err, "identifier")
		}
		return strings.TrimSpace(s), nil
	case jsonparser.Number:
		return string(value), nil
	default:
		return "", errors.Newf("identifier must be a string or number, got %s", dataType)
	}
}

// Lookup returns the school with the given identifier.
func (s *SchoolStore) Lookup(id string) (*School, bool) {
	school, ok := s.byID[strings.TrimSpace(id)]
	return school, ok
}

// Len returns the number of records in the collection.
func (s *SchoolStore) Len() int { return len(s.schools) }

// All returns the records in collection order.
func (s *SchoolStore) All() []*School { return s.schools }

// IDField returns the identifier field name.
func (s *SchoolStore) IDField() string { return s.idField }

// Encode writes the collection as a JSON array.
func (s *SchoolStore) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	for i, school := range s.schools {
		if i > 0 {
			bw.WriteByte(',')
		}
		b, err := school.MarshalJSON()
		if err != nil {
			return errors.Wrapf(err, "encode school %d", i)
		}
		bw.Write(b)
	}
	bw.WriteByte(']')
	return bw.Flush()
}
