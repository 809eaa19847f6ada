package sources

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads rows from a local delimited export, optionally compressed.

const CSVFileType = "csv_file"

type csvFileSource struct{}

func init() { etl.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  CSVFileType,
		Label: "CSV File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the export; .gz and .bz2 are decompressed"},
			{Key: "delimiter", Label: "Delimiter", Required: false, Default: ",", Help: "Column delimiter (default: comma)"},
			{Key: "compression", Label: "Compression", Required: false, Help: "gzip or bzip2; detected from the extension when empty"},
		},
	}
}

func (s *csvFileSource) Open(ctx context.Context, cfg etl.SourceConfig) (etl.RowReader, error) {
	filePath, _ := cfg["filePath"].(string)
	if filePath == "" {
		return nil, errors.New("filePath is required")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	compression, _ := cfg["compression"].(string)
	if compression == "" {
		compression = DetectCompression(filePath)
	}
	delim, _ := cfg["delimiter"].(string)

	rows, err := newCSVRowReader(f, f, compression, delim)
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, errors.Newf("empty csv file: %s", filePath)
		}
		return nil, err
	}
	return rows, nil
}

// newCSVRowReader decodes r and reads its header row. closer is released by
// Close on the returned reader. An input without a header returns io.EOF.
func newCSVRowReader(closer io.Closer, r io.Reader, compression, delim string) (*csvRowReader, error) {
	decompressed, err := decompress(compression, r)
	if err != nil {
		return nil, err
	}

	// Exports are written as utf-8-sig; the BOM would otherwise stick to the
	// first header name. Validation runs first so invalid bytes fail the read
	// instead of decoding to U+FFFD.
	valid := transform.NewReader(decompressed, encoding.UTF8Validator)
	text := transform.NewReader(valid, unicode.BOMOverride(transform.Nop))

	reader := csv.NewReader(text)
	if len(delim) > 0 {
		reader.Comma = []rune(delim)[0]
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		return nil, errors.Wrap(err, "header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse csv header")
	}

	return &csvRowReader{
		closer:  closer,
		reader:  reader,
		headers: append([]string(nil), headers...),
	}, nil
}

type csvRowReader struct {
	closer  io.Closer
	reader  *csv.Reader
	headers []string
	line    int // line of the last row returned
}

func (r *csvRowReader) Headers() []string { return r.headers }

func (r *csvRowReader) Next() (etl.Row, error) {
	record, err := r.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return etl.Row{}, io.EOF
		}
		if errors.Is(err, encoding.ErrInvalidUTF8) {
			return etl.Row{}, errors.Wrapf(err, "after line %d", r.line)
		}
		return etl.Row{}, errors.Wrap(err, "parse csv")
	}
	line, _ := r.reader.FieldPos(0)
	r.line = line

	data := make(map[string]string, len(r.headers))
	for j, h := range r.headers {
		if j < len(record) {
			data[h] = record[j]
		}
	}
	return etl.Row{Line: line, Data: data}, nil
}

func (r *csvRowReader) Close() error {
	return r.closer.Close()
}

// DetectCompression infers the compression type from the path extensions.
func DetectCompression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gzip", ".gz":
		return "gzip"
	case ".bzip2", ".bz2":
		return "bzip2"
	}
	return ""
}

// decompress wraps r in a reader for the given compression type.
func decompress(t string, r io.Reader) (io.Reader, error) {
	switch t {
	case "":
		return r, nil
	case "gzip", "gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		return gr, nil
	case "bzip2", "bz2":
		return bzip2.NewReader(r), nil
	}
	return nil, errors.Newf("compression type not supported: %s", t)
}
