package sources

import (
	"bytes"
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
)

// ── JSON File Collection ────────────────────────────────────
// Reads the school collection from a local JSON array and writes it back.

// JSONFile is a school collection stored as a JSON array on disk.
// OutputPath defaults to Path.
type JSONFile struct {
	Path       string
	OutputPath string
	IDField    string
}

var _ etl.Collection = (*JSONFile)(nil)

func (j *JSONFile) Load(ctx context.Context) (*etl.SchoolStore, error) {
	if j.Path == "" {
		return nil, errors.New("schools path is required")
	}
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	store, err := etl.DecodeSchools(data, j.IDField)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", j.Path)
	}
	return store, nil
}

// Save overwrites the output file in place. There is no backup and no
// temp-file rename; a crash mid-write leaves a truncated file.
func (j *JSONFile) Save(ctx context.Context, store *etl.SchoolStore) (int64, error) {
	path := j.target()
	var buf bytes.Buffer
	if err := store.Encode(&buf); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, errors.Wrap(err, "write file")
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "stat output")
	}
	return info.Size(), nil
}

func (j *JSONFile) target() string {
	if j.OutputPath != "" {
		return j.OutputPath
	}
	return j.Path
}
