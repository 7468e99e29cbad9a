// Package indexeddb reads Chromium IndexedDB folders: a LevelDB database
// whose keys carry a (database, object store, index) prefix and whose values
// are V8 serialized JavaScript values.
package indexeddb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("indexeddb: not found")

// Database is one IndexedDB database of an origin.
type Database struct {
	ID     int64
	Origin string
	Name   string
}

// ObjectStore is one object store of a database.
type ObjectStore struct {
	ID   int64
	Name string
}

// Record is a decoded object store entry.
type Record struct {
	Key   []byte
	Value any
}

// DB is an open IndexedDB LevelDB folder.
type DB struct {
	ldb     *leveldb.DB
	blobDir string
}

// Open opens dir read-only. blobDir is the sibling ".blob" folder, which may
// be empty.
func Open(dir, blobDir string) (*DB, error) {
	ldb, err := leveldb.OpenFile(dir, &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
		Comparer:       idbComparer{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open indexeddb %s: %w", dir, err)
	}
	return &DB{ldb: ldb, blobDir: blobDir}, nil
}

func (db *DB) Close() error {
	return db.ldb.Close()
}

// BlobDir returns the blob folder passed to Open.
func (db *DB) BlobDir() string {
	return db.blobDir
}

func (db *DB) scan(start, limit []byte, fn func(key, value []byte) error) error {
	iter := db.ldb.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Databases lists the databases recorded in the global metadata.
func (db *DB) Databases() ([]Database, error) {
	global := EncodeKeyPrefix(KeyPrefix{})
	start := append(append([]byte{}, global...), databaseNameTypeByte)
	limit := append(append([]byte{}, global...), databaseNameTypeByte+1)

	var out []Database
	err := db.scan(start, limit, func(key, value []byte) error {
		rest := key[len(start):]
		origin, rest, err := decodeStringWithLength(rest)
		if err != nil {
			return nil
		}
		name, _, err := decodeStringWithLength(rest)
		if err != nil {
			return nil
		}
		id, n := binary.Uvarint(value)
		if n <= 0 {
			return nil
		}
		out = append(out, Database{ID: int64(id), Origin: origin, Name: name})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return out, nil
}

// ObjectStores lists the object stores of a database ordered by id.
func (db *DB) ObjectStores(dbID int64) ([]ObjectStore, error) {
	prefix := EncodeKeyPrefix(KeyPrefix{DatabaseID: dbID})
	start := append(append([]byte{}, prefix...), objectStoreMetaDataTypeByte)
	limit := append(append([]byte{}, prefix...), objectStoreMetaDataTypeByte+1)

	var out []ObjectStore
	err := db.scan(start, limit, func(key, value []byte) error {
		rest := key[len(start):]
		id, n := binary.Uvarint(rest)
		if n <= 0 || len(rest) <= n || rest[n] != objectStoreNameMetaData {
			return nil
		}
		out = append(out, ObjectStore{ID: int64(id), Name: decodeUTF16BE(value)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list object stores of database %d: %w", dbID, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Records decodes every record of an object store. Records whose value
// cannot be decoded are skipped; their number is returned alongside.
func (db *DB) Records(dbID, storeID int64) ([]Record, int, error) {
	start := EncodeKeyPrefix(KeyPrefix{DatabaseID: dbID, ObjectStoreID: storeID, IndexID: objectStoreDataIndexID})
	limit := EncodeKeyPrefix(KeyPrefix{DatabaseID: dbID, ObjectStoreID: storeID, IndexID: objectStoreDataIndexID + 1})

	var (
		out     []Record
		skipped int
	)
	err := db.scan(start, limit, func(key, value []byte) error {
		v, err := DecodeRecord(value)
		if err != nil {
			skipped++
			return nil
		}
		out = append(out, Record{Key: append([]byte{}, key[len(start):]...), Value: v})
		return nil
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("failed to read object store %d: %w", storeID, err)
	}
	return out, skipped, nil
}

// FindStore looks up a database by name and one of its object stores.
func (db *DB) FindStore(dbName, storeName string) (Database, ObjectStore, error) {
	dbs, err := db.Databases()
	if err != nil {
		return Database{}, ObjectStore{}, err
	}
	for _, d := range dbs {
		if d.Name != dbName {
			continue
		}
		stores, err := db.ObjectStores(d.ID)
		if err != nil {
			return Database{}, ObjectStore{}, err
		}
		for _, s := range stores {
			if s.Name == storeName {
				return d, s, nil
			}
		}
	}
	return Database{}, ObjectStore{}, fmt.Errorf("%w: %s/%s", ErrNotFound, dbName, storeName)
}
