package badger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/policyrag/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db       *badger.DB
	readOnly bool
	logger   *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path for building.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}
	return open(opts, false)
}

// OpenReadOnly opens an existing database for serving. Writes through the
// returned backend fail with storage.ErrReadOnly.
func OpenReadOnly(filePath string) (*Backend, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", filePath)
	}
	return open(badger.DefaultOptions(filePath).WithReadOnly(true), true)
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
		if err != nil {
			return err
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

func open(opts badger.Options, readOnly bool) (*Backend, error) {
	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:       db,
		readOnly: readOnly,
		logger:   logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// ReadOnly reports whether the backend was opened for serving.
func (b *Backend) ReadOnly() bool {
	return b.readOnly
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction; fn must commit it.
// The transaction is automatically discarded when fn returns.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if isWrite && b.readOnly {
		return storage.ErrReadOnly
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithBatch runs fn against a write batch and flushes it.
// Batches split themselves across transactions, so they suit bulk loads.
func (b *Backend) WithBatch(fn func(wb *badger.WriteBatch) error) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if b.readOnly {
		return storage.ErrReadOnly
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb); err != nil {
		return err
	}
	return wb.Flush()
}

// Reset deletes every key. The builder calls it before writing a new build.
func (b *Backend) Reset() error {
	if b.readOnly {
		return storage.ErrReadOnly
	}
	b.logger.Debug("dropping all keys")
	return b.db.DropAll()
}

// scan calls fn for every key with the given prefix, in key order.
func (b *Backend) scan(prefix []byte, fn func(key, val []byte) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// get reads a single key. Returns storage.ErrNotFound if it is absent.
func (b *Backend) get(key []byte, fn func(val []byte) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(fn)
	}, false)
}
