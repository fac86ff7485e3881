package chain

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/jsonx"
)

// Persister reads and writes the whole chain as a sequence of records.
type Persister interface {
	// LoadRecords returns found=false when nothing has been saved yet.
	LoadRecords() (records []block.Record, found bool, err error)
	// SaveRecords replaces any previously saved chain.
	SaveRecords(records []block.Record) error
	Close() error
}

// FilePersister stores the chain as a pretty-printed JSON array.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) LoadRecords() ([]block.Record, bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "read chain file %s", p.path)
	}
	var records []block.Record
	if err := jsonx.Unmarshal(data, &records); err != nil {
		return nil, false, errors.Wrapf(err, "decode chain file %s", p.path)
	}
	return records, true, nil
}

// SaveRecords writes to a temporary file in the same directory and renames
// it over the target, so readers never observe a partial chain.
func (p *FilePersister) SaveRecords(records []block.Record) error {
	if records == nil {
		records = []block.Record{}
	}
	data, err := jsonx.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode chain")
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create chain directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temporary chain file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "write temporary chain file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "sync temporary chain file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, "close temporary chain file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return errors.Wrap(err, "chmod temporary chain file")
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		cleanup()
		return errors.Wrapf(err, "replace chain file %s", p.path)
	}
	return nil
}

func (p *FilePersister) Close() error {
	return nil
}
