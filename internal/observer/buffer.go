package observer

import (
	"bytes"
	"encoding/gob"
	"errors"
	"log/slog"
	"time"

	"ariusmonitor.flagee.cloud/internal/logger"
	badger "github.com/dgraph-io/badger/v4"
)

// Buffer keeps reports a target failed to deliver until they expire.
type Buffer struct {
	ttl time.Duration
	db  *badger.DB
}

func OpenBuffer(path string, ttl time.Duration) (*Buffer, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(logger.Default()))
	if err != nil {
		return nil, err
	}
	logger.Debug("Initialized BadgerDB for offline buffering", slog.String("path", path))
	return &Buffer{ttl: ttl, db: db}, nil
}

func (b *Buffer) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Buffer) Save(reports []Report) error {
	if b == nil || b.db == nil {
		return errors.New("cannot write to nil buffer")
	}
	txn := b.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	for _, r := range reports {
		var value bytes.Buffer
		if err := gob.NewEncoder(&value).Encode(r); err != nil {
			return err
		}
		e := badger.NewEntry(r.key(), value.Bytes()).WithTTL(b.ttl)
		err := txn.SetEntry(e)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err = txn.Commit(); err != nil {
				return err
			}
			txn = b.db.NewTransaction(true)
			err = txn.SetEntry(e)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

// Fetch returns up to n buffered reports, oldest key first.
func (b *Buffer) Fetch(n int) (reports []Report, err error) {
	if b == nil || b.db == nil {
		return nil, errors.New("cannot read from nil buffer")
	}
	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = n
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(reports) < n; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				logger.Error("Failed to copy value from buffer", slog.String("buffer", b.db.Opts().Dir), slog.Any("error", err))
				continue
			}
			var r Report
			if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&r); err != nil {
				logger.Error("Failed to decode from buffer", slog.String("buffer", b.db.Opts().Dir), slog.Any("error", err))
				continue
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}

func (b *Buffer) Delete(reports []Report) error {
	if b == nil || b.db == nil {
		return errors.New("cannot delete from nil buffer")
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, r := range reports {
			if err := txn.Delete(r.key()); err != nil {
				return err
			}
		}
		return nil
	})
}
