package zarr

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ErrNoField is returned when a record has no field of the requested name.
var ErrNoField = errors.New("no such field")

// Record is a view of one structured record. The accessors decode on demand.
type Record struct {
	arr  *Array
	data []byte
}

// Has reports whether the record schema declares the named field.
func (r Record) Has(name string) bool {
	_, ok := r.arr.index[name]
	return ok
}

// Bytes returns the raw record bytes.
func (r Record) Bytes() []byte { return r.data }

func (r Record) field(name string) (Field, error) {
	i, ok := r.arr.index[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrNoField, name)
	}
	return r.arr.fields[i], nil
}

// Float64s decodes a numeric or boolean field as float64 values.
func (r Record) Float64s(name string) ([]float64, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	return decodeFloats(f, r.data)
}

// Float64 decodes the first element of a numeric field.
func (r Record) Float64(name string) (float64, error) {
	vs, err := r.Float64s(name)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("field %q is empty", name)
	}
	return vs[0], nil
}

// Int64s decodes an integer field.
func (r Record) Int64s(name string) ([]int64, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindInt && f.Kind != KindUint && f.Kind != KindBool {
		return nil, fmt.Errorf("field %q has kind %q, want integer", name, string(f.Kind))
	}
	out := make([]int64, f.Count())
	for i := range out {
		out[i] = decodeInt(f, r.data[f.Offset+i*f.ItemSize:])
	}
	return out, nil
}

// Int64 decodes the first element of an integer field.
func (r Record) Int64(name string) (int64, error) {
	vs, err := r.Int64s(name)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("field %q is empty", name)
	}
	return vs[0], nil
}

// Uint64 decodes the first element of an unsigned field without sign loss.
func (r Record) Uint64(name string) (uint64, error) {
	f, err := r.field(name)
	if err != nil {
		return 0, err
	}
	if f.Count() == 0 {
		return 0, fmt.Errorf("field %q is empty", name)
	}
	switch f.Kind {
	case KindUint:
		return decodeUint(f, r.data[f.Offset:]), nil
	case KindInt:
		v := decodeInt(f, r.data[f.Offset:])
		if v < 0 {
			return 0, fmt.Errorf("field %q holds negative value %d", name, v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("field %q has kind %q, want integer", name, string(f.Kind))
	}
}

// String decodes a fixed-width byte or unicode string field, trimming
// trailing NUL padding.
func (r Record) String(name string) (string, error) {
	f, err := r.field(name)
	if err != nil {
		return "", err
	}
	if f.Count() != 1 {
		return "", fmt.Errorf("field %q is a string array", name)
	}
	b := r.data[f.Offset : f.Offset+f.ItemSize]
	switch f.Kind {
	case KindBytes:
		return strings.TrimRight(string(b), "\x00"), nil
	case KindUnicode:
		order := f.byteOrder()
		var sb strings.Builder
		for i := 0; i+4 <= len(b); i += 4 {
			cp := order.Uint32(b[i:])
			if cp == 0 {
				break
			}
			if cp > utf8.MaxRune {
				cp = utf8.RuneError
			}
			sb.WriteRune(rune(cp))
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("field %q has kind %q, want string", name, string(f.Kind))
	}
}

func decodeFloats(f Field, data []byte) ([]float64, error) {
	out := make([]float64, f.Count())
	order := f.byteOrder()
	for i := range out {
		b := data[f.Offset+i*f.ItemSize:]
		switch f.Kind {
		case KindFloat:
			if f.ItemSize == 4 {
				out[i] = float64(math.Float32frombits(order.Uint32(b)))
			} else {
				out[i] = math.Float64frombits(order.Uint64(b))
			}
		case KindInt, KindBool:
			out[i] = float64(decodeInt(f, b))
		case KindUint:
			out[i] = float64(decodeUint(f, b))
		default:
			return nil, fmt.Errorf("field %q has kind %q, want numeric", f.Name, string(f.Kind))
		}
	}
	return out, nil
}

func decodeInt(f Field, b []byte) int64 {
	order := f.byteOrder()
	switch f.ItemSize {
	case 1:
		if f.Kind == KindUint || f.Kind == KindBool {
			return int64(b[0])
		}
		return int64(int8(b[0]))
	case 2:
		if f.Kind == KindUint {
			return int64(order.Uint16(b))
		}
		return int64(int16(order.Uint16(b)))
	case 4:
		if f.Kind == KindUint {
			return int64(order.Uint32(b))
		}
		return int64(int32(order.Uint32(b)))
	default:
		return int64(order.Uint64(b))
	}
}

func decodeUint(f Field, b []byte) uint64 {
	order := f.byteOrder()
	switch f.ItemSize {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}
