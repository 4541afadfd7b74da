package c8r

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// HashKey derives a comparable memo key from an argument tuple, for
// functions whose arguments are not comparable (slices, maps, structs holding
// them). The arguments are msgpack-encoded in order and the encoding is
// hashed with xxhash. Map entries are written in the order of their encoded
// keys, so equal tuples yield equal keys whatever the map iteration order;
// distinct tuples collide with negligible probability.
func HashKey(args ...any) (uint64, error) {
	d := xxhash.New()
	enc := msgpack.NewEncoder(d)

	if err := enc.EncodeArrayLen(len(args)); err != nil {
		return 0, fmt.Errorf("c8r: hash key: %w", err)
	}

	for i, a := range args {
		if err := encodeCanonical(enc, reflect.ValueOf(a)); err != nil {
			return 0, fmt.Errorf("c8r: hash key: argument %d: %w", i, err)
		}
	}

	return d.Sum64(), nil
}

var (
	customEncoderType = reflect.TypeFor[msgpack.CustomEncoder]()
	marshalerType     = reflect.TypeFor[msgpack.Marshaler]()
)

// encodeCanonical writes v like msgpack does, except that maps anywhere
// inside v have their entries sorted by encoded key.
func encodeCanonical(enc *msgpack.Encoder, v reflect.Value) error {
	if !v.IsValid() {
		return enc.EncodeNil()
	}

	t := v.Type()
	if !needsWalk(t, map[reflect.Type]bool{}) ||
		t.Implements(customEncoderType) || t.Implements(marshalerType) {
		return enc.Encode(v.Interface())
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return enc.EncodeNil()
		}

		return encodeCanonical(enc, v.Elem())

	case reflect.Map:
		return encodeMap(enc, v)

	case reflect.Slice:
		if v.IsNil() {
			return enc.EncodeNil()
		}

		return encodeSeq(enc, v)

	case reflect.Array:
		return encodeSeq(enc, v)

	case reflect.Struct:
		return encodeStruct(enc, v)

	default:
		return enc.Encode(v.Interface())
	}
}

func encodeSeq(enc *msgpack.Encoder, v reflect.Value) error {
	if err := enc.EncodeArrayLen(v.Len()); err != nil {
		return err
	}

	for i := range v.Len() {
		if err := encodeCanonical(enc, v.Index(i)); err != nil {
			return err
		}
	}

	return nil
}

type canonicalMapEntry struct {
	key   []byte
	value reflect.Value
}

func encodeMap(enc *msgpack.Encoder, v reflect.Value) error {
	if v.IsNil() {
		return enc.EncodeNil()
	}

	entries := make([]canonicalMapEntry, 0, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		var buf bytes.Buffer
		if err := encodeCanonical(msgpack.NewEncoder(&buf), iter.Key()); err != nil {
			return err
		}

		entries = append(entries, canonicalMapEntry{key: buf.Bytes(), value: iter.Value()})
	}

	slices.SortFunc(entries, func(a, b canonicalMapEntry) int {
		return bytes.Compare(a.key, b.key)
	})

	if err := enc.EncodeMapLen(len(entries)); err != nil {
		return err
	}

	for _, e := range entries {
		if err := enc.Encode(msgpack.RawMessage(e.key)); err != nil {
			return err
		}

		if err := encodeCanonical(enc, e.value); err != nil {
			return err
		}
	}

	return nil
}

// encodeStruct writes the exported fields as a map keyed by field name, in
// declaration order. A msgpack tag renames a field, and "-" skips it.
func encodeStruct(enc *msgpack.Encoder, v reflect.Value) error {
	t := v.Type()

	type field struct {
		name  string
		value reflect.Value
	}

	fields := make([]field, 0, t.NumField())

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(sf.Tag.Get("msgpack"), ",")
		if name == "-" {
			continue
		}

		if name == "" {
			name = sf.Name
		}

		fields = append(fields, field{name: name, value: v.Field(i)})
	}

	if err := enc.EncodeMapLen(len(fields)); err != nil {
		return err
	}

	for _, f := range fields {
		if err := enc.EncodeString(f.name); err != nil {
			return err
		}

		if err := encodeCanonical(enc, f.value); err != nil {
			return err
		}
	}

	return nil
}

// needsWalk reports whether values of t may hold a map, directly or behind
// an interface, so that the plain msgpack encoding could vary between runs.
func needsWalk(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}

	seen[t] = true

	switch t.Kind() {
	case reflect.Map, reflect.Interface:
		return true

	case reflect.Pointer, reflect.Slice, reflect.Array:
		return needsWalk(t.Elem(), seen)

	case reflect.Struct:
		for i := range t.NumField() {
			if sf := t.Field(i); sf.IsExported() && needsWalk(sf.Type, seen) {
				return true
			}
		}

		return false

	default:
		return false
	}
}
