package forwarder

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"

	"ariusmonitor.flagee.cloud/internal/logger"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/nxadm/tail"
)

// Offsets remembers how far each tailed log was read.
type Offsets struct {
	db *badger.DB
}

func OpenOffsets(path string) (*Offsets, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(logger.Default()))
	if err != nil {
		return nil, err
	}
	logger.Debug("Initialized BadgerDB for log offsets", slog.String("path", path))
	return &Offsets{db: db}, nil
}

func (o *Offsets) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	return o.db.Close()
}

// Location is where tailing of filename starts. Without a stored offset, or
// when the file shrank below it, reading starts at the end of the file.
func (o *Offsets) Location(filename string) *tail.SeekInfo {
	end := &tail.SeekInfo{Whence: io.SeekEnd}
	if o == nil || o.db == nil {
		return end
	}

	var offset int64
	err := o.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filename))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return errors.New("corrupted offset")
			}
			offset = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logger.Warn("Cannot read stored offset", slog.String("file", filename), slog.Any("error", err))
		}
		return end
	}

	f, err := os.Stat(filename)
	// offset greater than size means the file was truncated or replaced
	if err != nil || offset > f.Size() {
		return end
	}
	return &tail.SeekInfo{Offset: offset, Whence: io.SeekStart}
}

func (o *Offsets) Save(filename string, offset int64) error {
	if o == nil || o.db == nil {
		return nil
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(offset))
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(filename), val)
	})
}
