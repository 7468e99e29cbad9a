package indexeddb

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	v8Version          = 15
	blinkVersion       = 17
	numberKeyTypeByte  = 0x03
	writtenDatabaseID  = 1
	writtenStoreID     = 1
	writtenValueHeader = 1
)

// WriteStore creates an IndexedDB folder at dir holding a single database
// with one object store. Records are stored in order under numeric keys.
// The folder is readable by Open; it is meant for fixtures, not for
// browsers.
func WriteStore(dir, origin, dbName, storeName string, records []any) error {
	ldb, err := leveldb.OpenFile(dir, &opt.Options{Comparer: idbComparer{}})
	if err != nil {
		return fmt.Errorf("failed to create indexeddb %s: %w", dir, err)
	}

	batch := new(leveldb.Batch)
	global := append(EncodeKeyPrefix(KeyPrefix{}), databaseNameTypeByte)
	dbKey := append(append(global, encodeStringWithLength(origin)...), encodeStringWithLength(dbName)...)
	batch.Put(dbKey, binary.AppendUvarint(nil, writtenDatabaseID))

	meta := append(EncodeKeyPrefix(KeyPrefix{DatabaseID: writtenDatabaseID}), objectStoreMetaDataTypeByte)
	storeKey := append(binary.AppendUvarint(meta, writtenStoreID), objectStoreNameMetaData)
	batch.Put(storeKey, encodeUTF16BE(storeName))

	prefix := EncodeKeyPrefix(KeyPrefix{DatabaseID: writtenDatabaseID, ObjectStoreID: writtenStoreID, IndexID: objectStoreDataIndexID})
	for i, rec := range records {
		value, err := EncodeRecord(rec)
		if err != nil {
			ldb.Close()
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		key := append(append([]byte{}, prefix...), numberKeyTypeByte)
		key = binary.LittleEndian.AppendUint64(key, math.Float64bits(float64(i+1)))
		batch.Put(key, value)
	}

	if err := ldb.Write(batch, nil); err != nil {
		ldb.Close()
		return fmt.Errorf("failed to write indexeddb %s: %w", dir, err)
	}
	return ldb.Close()
}

// EncodeRecord wraps the V8 serialization of v in the envelope DecodeRecord
// reads.
func EncodeRecord(v any) ([]byte, error) {
	body, err := EncodeV8(v)
	if err != nil {
		return nil, err
	}
	out := binary.AppendUvarint(nil, writtenValueHeader)
	out = append(out, tagVersion, blinkVersion)
	return append(out, body...), nil
}

// EncodeV8 serializes the Go values DecodeV8 produces: nil, bool, string,
// integers, float64, []any, []string and map[string]any. Object keys are
// written in sorted order.
func EncodeV8(v any) ([]byte, error) {
	e := v8Encoder{b: []byte{tagVersion, v8Version}}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.b, nil
}

type v8Encoder struct {
	b []byte
}

func (e *v8Encoder) varint(n uint64) {
	e.b = binary.AppendUvarint(e.b, n)
}

func (e *v8Encoder) str(s string) {
	e.b = append(e.b, tagUTF8Str)
	e.varint(uint64(len(s)))
	e.b = append(e.b, s...)
}

func (e *v8Encoder) int(n int64) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		e.double(float64(n))
		return
	}
	e.b = append(e.b, tagInt32)
	n32 := int32(n)
	e.varint(uint64(uint32((n32 << 1) ^ (n32 >> 31))))
}

func (e *v8Encoder) double(f float64) {
	e.b = append(e.b, tagDouble)
	e.b = binary.LittleEndian.AppendUint64(e.b, math.Float64bits(f))
}

func (e *v8Encoder) array(items []any) error {
	e.b = append(e.b, tagBeginDense)
	e.varint(uint64(len(items)))
	for _, item := range items {
		if err := e.value(item); err != nil {
			return err
		}
	}
	e.b = append(e.b, tagEndDense)
	e.varint(0)
	e.varint(uint64(len(items)))
	return nil
}

func (e *v8Encoder) value(v any) error {
	switch t := v.(type) {
	case nil:
		e.b = append(e.b, tagNull)
	case bool:
		if t {
			e.b = append(e.b, tagTrue)
		} else {
			e.b = append(e.b, tagFalse)
		}
	case string:
		e.str(t)
	case int:
		e.int(int64(t))
	case int64:
		e.int(t)
	case float64:
		e.double(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return e.array(items)
	case []any:
		return e.array(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.b = append(e.b, tagBeginObject)
		for _, k := range keys {
			e.str(k)
			if err := e.value(t[k]); err != nil {
				return err
			}
		}
		e.b = append(e.b, tagEndObject)
		e.varint(uint64(len(keys)))
	default:
		return fmt.Errorf("indexeddb: cannot encode %T", v)
	}
	return nil
}

func encodeUTF16BE(s string) []byte {
	// drop the length prefix of the key encoding
	b := encodeStringWithLength(s)
	_, n := binary.Uvarint(b)
	return b[n:]
}
