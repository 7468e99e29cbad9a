package indexeddb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

const (
	databaseNameTypeByte        = 201
	objectStoreMetaDataTypeByte = 50
	objectStoreNameMetaData     = 0
	objectStoreDataIndexID      = 1
)

var errShortKey = errors.New("indexeddb: truncated key")

// KeyPrefix is the (database, object store, index) triple every key starts
// with.
type KeyPrefix struct {
	DatabaseID    int64
	ObjectStoreID int64
	IndexID       int64
}

// DecodeKeyPrefix splits a key into its prefix and the remaining bytes.
func DecodeKeyPrefix(key []byte) (KeyPrefix, []byte, error) {
	if len(key) == 0 {
		return KeyPrefix{}, nil, errShortKey
	}
	lengths := key[0]
	dbLen := int(lengths>>5) + 1
	osLen := int((lengths>>2)&0x07) + 1
	idxLen := int(lengths&0x03) + 1
	rest := key[1:]
	if len(rest) < dbLen+osLen+idxLen {
		return KeyPrefix{}, nil, errShortKey
	}
	p := KeyPrefix{
		DatabaseID:    decodeInt(rest[:dbLen]),
		ObjectStoreID: decodeInt(rest[dbLen : dbLen+osLen]),
		IndexID:       decodeInt(rest[dbLen+osLen : dbLen+osLen+idxLen]),
	}
	return p, rest[dbLen+osLen+idxLen:], nil
}

// EncodeKeyPrefix is the inverse of DecodeKeyPrefix.
func EncodeKeyPrefix(p KeyPrefix) []byte {
	db := encodeInt(p.DatabaseID)
	os := encodeInt(p.ObjectStoreID)
	idx := encodeInt(p.IndexID)
	out := []byte{byte((len(db)-1)<<5 | (len(os)-1)<<2 | (len(idx) - 1))}
	out = append(out, db...)
	out = append(out, os...)
	return append(out, idx...)
}

func (p KeyPrefix) compare(o KeyPrefix) int {
	switch {
	case p.DatabaseID != o.DatabaseID:
		return cmpInt(p.DatabaseID, o.DatabaseID)
	case p.ObjectStoreID != o.ObjectStoreID:
		return cmpInt(p.ObjectStoreID, o.ObjectStoreID)
	default:
		return cmpInt(p.IndexID, o.IndexID)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// decodeInt reads a little-endian integer of up to eight bytes.
func decodeInt(b []byte) int64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return int64(v)
}

func encodeInt(v int64) []byte {
	n := uint64(v)
	var out []byte
	for {
		out = append(out, byte(n))
		n >>= 8
		if n == 0 {
			return out
		}
	}
}

// decodeStringWithLength reads a varint count of UTF-16 code units followed
// by the big-endian code units.
func decodeStringWithLength(b []byte) (string, []byte, error) {
	n, read := binary.Uvarint(b)
	if read <= 0 || uint64(len(b)-read) < n*2 {
		return "", nil, errShortKey
	}
	b = b[read:]
	s := decodeUTF16BE(b[:n*2])
	return s, b[n*2:], nil
}

func encodeStringWithLength(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := binary.AppendUvarint(nil, uint64(len(units)))
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

// idbComparer orders keys the way the browser does closely enough for
// reading: by key prefix first and then bytewise.
type idbComparer struct{}

func (idbComparer) Name() string { return "idb_cmp1" }

func (idbComparer) Compare(a, b []byte) int {
	pa, ra, errA := DecodeKeyPrefix(a)
	pb, rb, errB := DecodeKeyPrefix(b)
	if errA != nil || errB != nil {
		return bytes.Compare(a, b)
	}
	if c := pa.compare(pb); c != 0 {
		return c
	}
	return bytes.Compare(ra, rb)
}

func (idbComparer) Separator(dst, a, b []byte) []byte { return nil }

func (idbComparer) Successor(dst, b []byte) []byte { return nil }
