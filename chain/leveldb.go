package chain

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mezonai/powchain/block"
	"github.com/mezonai/powchain/db"
	"github.com/mezonai/powchain/jsonx"
)

const (
	PrefixBlock     = "block:"
	KeyChainLength  = "meta:length"
	uint64KeyLength = 8
)

// LevelDBPersister stores one key per block plus the chain length.
type LevelDBPersister struct {
	provider db.DatabaseProvider
}

func NewLevelDBPersister(provider db.DatabaseProvider) (*LevelDBPersister, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	return &LevelDBPersister{provider: provider}, nil
}

// indexToBlockKey keeps keys in chain order under lexical iteration.
func indexToBlockKey(index uint64) []byte {
	key := make([]byte, len(PrefixBlock)+uint64KeyLength)
	copy(key, PrefixBlock)
	binary.BigEndian.PutUint64(key[len(PrefixBlock):], index)
	return key
}

func (p *LevelDBPersister) length() (uint64, bool, error) {
	value, err := p.provider.Get([]byte(KeyChainLength))
	if err != nil {
		return 0, false, errors.Wrap(err, "read chain length")
	}
	if value == nil {
		return 0, false, nil
	}
	if len(value) != uint64KeyLength {
		return 0, false, errors.Errorf("invalid chain length value size: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}

// LoadRecords walks the block keys in index order. Keys past the stored
// length are ignored and a gap in the sequence is reported as corruption.
func (p *LevelDBPersister) LoadRecords() ([]block.Record, bool, error) {
	n, found, err := p.length()
	if err != nil || !found {
		return nil, false, err
	}
	records := make([]block.Record, 0, n)
	var decodeErr error
	err = p.provider.IteratePrefix([]byte(PrefixBlock), func(key, value []byte) bool {
		next := uint64(len(records))
		if next >= n {
			return false
		}
		if len(key) != len(PrefixBlock)+uint64KeyLength {
			decodeErr = errors.Errorf("unexpected block key %q", key)
			return false
		}
		if index := binary.BigEndian.Uint64(key[len(PrefixBlock):]); index != next {
			decodeErr = errors.Errorf("block %d missing from store (length %d)", next, n)
			return false
		}
		var rec block.Record
		if err := jsonx.Unmarshal(value, &rec); err != nil {
			decodeErr = errors.Wrapf(err, "decode block %d", next)
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "iterate blocks")
	}
	if decodeErr != nil {
		return nil, false, decodeErr
	}
	if uint64(len(records)) != n {
		return nil, false, errors.Errorf("block %d missing from store (length %d)", len(records), n)
	}
	return records, true, nil
}

// SaveRecords rewrites every block and drops keys past the new length in a
// single batch.
func (p *LevelDBPersister) SaveRecords(records []block.Record) error {
	old, _, err := p.length()
	if err != nil {
		return err
	}
	batch := p.provider.Batch()
	for i, rec := range records {
		value, err := jsonx.Marshal(rec)
		if err != nil {
			return errors.Wrapf(err, "encode block %d", i)
		}
		batch.Put(indexToBlockKey(uint64(i)), value)
	}
	for i := uint64(len(records)); i < old; i++ {
		batch.Delete(indexToBlockKey(i))
	}
	lenBuf := make([]byte, uint64KeyLength)
	binary.BigEndian.PutUint64(lenBuf, uint64(len(records)))
	batch.Put([]byte(KeyChainLength), lenBuf)

	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write chain batch")
	}
	return nil
}

func (p *LevelDBPersister) Close() error {
	return p.provider.Close()
}
