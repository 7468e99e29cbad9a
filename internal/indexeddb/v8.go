package indexeddb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf16"
)

var (
	ErrUnsupportedTag = errors.New("indexeddb: unsupported value tag")
	errTruncated      = errors.New("indexeddb: truncated value")
)

const (
	tagVersion      = 0xFF
	tagPadding      = 0x00
	tagTrailer      = 0xFE
	tagVerifyCount  = '?'
	tagUndefined    = '_'
	tagNull         = '0'
	tagTrue         = 'T'
	tagFalse        = 'F'
	tagInt32        = 'I'
	tagUint32       = 'U'
	tagDouble       = 'N'
	tagOneByteStr   = '"'
	tagTwoByteStr   = 'c'
	tagUTF8Str      = 'S'
	tagBeginObject  = 'o'
	tagEndObject    = '{'
	tagBeginDense   = 'A'
	tagEndDense     = '$'
	tagBeginSparse  = 'a'
	tagEndSparse    = '@'
	tagHole         = '-'
	tagDate         = 'D'
	tagObjectRef    = '^'
	tagBeginMap     = ';'
	tagEndMap       = ':'
	tagBeginSet     = '\''
	tagEndSet       = ','
	tagTrueObject   = 'y'
	tagFalseObject  = 'x'
	tagNumberObject = 'n'
	tagStringObject = 's'
	tagRegExp       = 'R'
	tagArrayBuffer  = 'B'

	// blinkTrailerMinVersion is the first envelope version that may carry a
	// trailer offset after its header.
	blinkTrailerMinVersion = 21
	blinkTrailerSize       = 13
)

// DecodeRecord decodes an object store record value: the IndexedDB value
// version, the Blink envelope and the V8 serialized value.
func DecodeRecord(b []byte) (any, error) {
	_, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, errTruncated
	}
	b = b[n:]
	if len(b) > 0 && b[0] == tagVersion {
		version, n := binary.Uvarint(b[1:])
		if n <= 0 {
			return nil, errTruncated
		}
		b = b[1+n:]
		if version >= blinkTrailerMinVersion && len(b) > 0 && b[0] == tagTrailer {
			if len(b) < blinkTrailerSize {
				return nil, errTruncated
			}
			b = b[blinkTrailerSize:]
		}
	}
	return DecodeV8(b)
}

// DecodeV8 decodes one value written by V8's ValueSerializer into plain Go
// values: map[string]any for objects and maps, []any for arrays and sets,
// string, float64, int64, bool, time.Time, []byte and nil.
func DecodeV8(b []byte) (any, error) {
	d := &v8Decoder{b: b}
	if err := d.header(); err != nil {
		return nil, err
	}
	return d.value()
}

type v8Decoder struct {
	b       []byte
	pos     int
	objects []any
}

func (d *v8Decoder) header() error {
	d.skipPadding()
	if d.pos < len(d.b) && d.b[d.pos] == tagVersion {
		d.pos++
		if _, err := d.varint(); err != nil {
			return err
		}
	}
	return nil
}

func (d *v8Decoder) skipPadding() {
	for d.pos < len(d.b) && d.b[d.pos] == tagPadding {
		d.pos++
	}
}

func (d *v8Decoder) peek() (byte, error) {
	d.skipPadding()
	if d.pos >= len(d.b) {
		return 0, errTruncated
	}
	return d.b[d.pos], nil
}

func (d *v8Decoder) tag() (byte, error) {
	t, err := d.peek()
	if err != nil {
		return 0, err
	}
	d.pos++
	return t, nil
}

func (d *v8Decoder) varint() (uint64, error) {
	v, n := binary.Uvarint(d.b[d.pos:])
	if n <= 0 {
		return 0, errTruncated
	}
	d.pos += n
	return v, nil
}

func (d *v8Decoder) bytes(n uint64) ([]byte, error) {
	if uint64(len(d.b)-d.pos) < n {
		return nil, errTruncated
	}
	out := d.b[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return out, nil
}

func (d *v8Decoder) double() (float64, error) {
	raw, err := d.bytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
}

// register reserves the next object id; back references resolve against it.
func (d *v8Decoder) register(v any) int {
	d.objects = append(d.objects, v)
	return len(d.objects) - 1
}

func (d *v8Decoder) value() (any, error) {
	t, err := d.tag()
	if err != nil {
		return nil, err
	}
	switch t {
	case tagVerifyCount:
		if _, err := d.varint(); err != nil {
			return nil, err
		}
		return d.value()
	case tagUndefined, tagNull:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	case tagInt32:
		v, err := d.varint()
		if err != nil {
			return nil, err
		}
		return int64(v>>1) ^ -int64(v&1), nil
	case tagUint32:
		v, err := d.varint()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case tagDouble:
		return d.double()
	case tagOneByteStr, tagTwoByteStr, tagUTF8Str:
		return d.stringBody(t)
	case tagBeginObject:
		return d.object()
	case tagBeginDense:
		return d.denseArray()
	case tagBeginSparse:
		return d.sparseArray()
	case tagDate:
		id := d.register(nil)
		ms, err := d.double()
		if err != nil {
			return nil, err
		}
		v := time.UnixMilli(int64(ms)).UTC()
		d.objects[id] = v
		return v, nil
	case tagObjectRef:
		id, err := d.varint()
		if err != nil {
			return nil, err
		}
		if id >= uint64(len(d.objects)) {
			return nil, fmt.Errorf("indexeddb: invalid object reference %d", id)
		}
		return d.objects[id], nil
	case tagBeginMap:
		return d.jsMap()
	case tagBeginSet:
		return d.jsSet()
	case tagTrueObject, tagFalseObject:
		v := t == tagTrueObject
		d.register(v)
		return v, nil
	case tagNumberObject:
		id := d.register(nil)
		v, err := d.double()
		if err != nil {
			return nil, err
		}
		d.objects[id] = v
		return v, nil
	case tagStringObject:
		id := d.register(nil)
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		d.objects[id] = v
		return v, nil
	case tagRegExp:
		id := d.register(nil)
		pattern, err := d.value()
		if err != nil {
			return nil, err
		}
		if _, err := d.varint(); err != nil {
			return nil, err
		}
		d.objects[id] = pattern
		return pattern, nil
	case tagArrayBuffer:
		id := d.register(nil)
		n, err := d.varint()
		if err != nil {
			return nil, err
		}
		raw, err := d.bytes(n)
		if err != nil {
			return nil, err
		}
		v := append([]byte(nil), raw...)
		d.objects[id] = v
		return v, nil
	default:
		return nil, fmt.Errorf("%w 0x%02x at offset %d", ErrUnsupportedTag, t, d.pos-1)
	}
}

func (d *v8Decoder) stringBody(t byte) (string, error) {
	n, err := d.varint()
	if err != nil {
		return "", err
	}
	raw, err := d.bytes(n)
	if err != nil {
		return "", err
	}
	switch t {
	case tagOneByteStr:
		runes := make([]rune, len(raw))
		for i, c := range raw {
			runes[i] = rune(c)
		}
		return string(runes), nil
	case tagTwoByteStr:
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(raw[2*i:])
		}
		return string(utf16.Decode(units)), nil
	default:
		return string(raw), nil
	}
}

// properties reads key/value pairs until the end tag and returns them in
// order. The count that follows the end tag is consumed by the caller.
func (d *v8Decoder) properties(end byte, set func(key, val any)) error {
	for {
		t, err := d.peek()
		if err != nil {
			return err
		}
		if t == end {
			d.pos++
			return nil
		}
		key, err := d.value()
		if err != nil {
			return err
		}
		val, err := d.value()
		if err != nil {
			return err
		}
		set(key, val)
	}
}

func (d *v8Decoder) object() (any, error) {
	obj := make(map[string]any)
	d.register(obj)
	err := d.properties(tagEndObject, func(key, val any) {
		obj[propertyKey(key)] = val
	})
	if err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *v8Decoder) denseArray() (any, error) {
	id := d.register(nil)
	n, err := d.varint()
	if err != nil {
		return nil, err
	}
	arr := make([]any, 0, min(n, uint64(len(d.b))))
	for i := uint64(0); i < n; i++ {
		t, err := d.peek()
		if err != nil {
			return nil, err
		}
		if t == tagHole {
			d.pos++
			arr = append(arr, nil)
			continue
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	d.objects[id] = arr
	if err := d.properties(tagEndDense, func(any, any) {}); err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	return arr, nil
}

func (d *v8Decoder) sparseArray() (any, error) {
	id := d.register(nil)
	n, err := d.varint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.b)) {
		return nil, fmt.Errorf("indexeddb: sparse array length %d out of range", n)
	}
	arr := make([]any, n)
	d.objects[id] = arr
	err = d.properties(tagEndSparse, func(key, val any) {
		if idx, ok := key.(int64); ok && idx >= 0 && uint64(idx) < n {
			arr[idx] = val
		}
	})
	if err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	return arr, nil
}

func (d *v8Decoder) jsMap() (any, error) {
	m := make(map[string]any)
	d.register(m)
	err := d.properties(tagEndMap, func(key, val any) {
		m[propertyKey(key)] = val
	})
	if err != nil {
		return nil, err
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *v8Decoder) jsSet() (any, error) {
	id := d.register(nil)
	var items []any
	for {
		t, err := d.peek()
		if err != nil {
			return nil, err
		}
		if t == tagEndSet {
			d.pos++
			break
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := d.varint(); err != nil {
		return nil, err
	}
	d.objects[id] = items
	return items, nil
}

func propertyKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case float64:
		if k == math.Trunc(k) {
			return fmt.Sprintf("%d", int64(k))
		}
	}
	return fmt.Sprint(key)
}
