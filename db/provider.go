package db

// DatabaseProvider is the key-value backend used by the chain persister.
type DatabaseProvider interface {
	// Get returns nil, nil when key is absent.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Close() error

	// Batch returns a new batch for atomic multi-key writes.
	Batch() DatabaseBatch

	// IteratePrefix walks keys sharing prefix in key order until callback
	// returns false.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch provides atomic batch operations
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Write commits every queued operation at once.
	Write() error
	Reset()
}
