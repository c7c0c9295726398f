package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the numpy type character of a field.
type Kind byte

const (
	KindFloat   Kind = 'f'
	KindInt     Kind = 'i'
	KindUint    Kind = 'u'
	KindBool    Kind = 'b'
	KindBytes   Kind = 'S'
	KindUnicode Kind = 'U'
)

// Field describes one member of a structured record.
type Field struct {
	Name string
	Kind Kind
	// BigEndian is set for '>' typestrs.
	BigEndian bool
	// ItemSize is the byte width of one element. For KindUnicode it is four
	// bytes per character.
	ItemSize int
	// Shape is the sub-array shape; nil for scalars.
	Shape  []int
	Offset int
}

// Count returns the number of elements in the field.
func (f Field) Count() int {
	n := 1
	for _, d := range f.Shape {
		n *= d
	}
	return n
}

// Size returns the number of bytes the field occupies in a record.
func (f Field) Size() int {
	return f.ItemSize * f.Count()
}

func (f Field) byteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// TypeStr renders the numpy typestr for the field, e.g. "<f8" or "<U16".
func (f Field) TypeStr() string {
	order := "<"
	switch {
	case f.Kind == KindBytes, f.ItemSize == 1 && f.Kind != KindUnicode:
		order = "|"
	case f.BigEndian:
		order = ">"
	}
	n := f.ItemSize
	if f.Kind == KindUnicode {
		n = f.ItemSize / 4
	}
	return order + string(f.Kind) + strconv.Itoa(n)
}

// ParseTypeStr parses a numpy typestr such as "<f4", ">i8", "|b1" or "<U16".
func ParseTypeStr(s string) (Field, error) {
	if len(s) < 3 {
		return Field{}, fmt.Errorf("invalid typestr %q", s)
	}
	var f Field
	switch s[0] {
	case '<', '|':
	case '>':
		f.BigEndian = true
	default:
		return Field{}, fmt.Errorf("invalid byte order in typestr %q", s)
	}
	f.Kind = Kind(s[1])
	n, err := strconv.Atoi(s[2:])
	if err != nil || n <= 0 {
		return Field{}, fmt.Errorf("invalid item size in typestr %q", s)
	}

	switch f.Kind {
	case KindFloat:
		if n != 4 && n != 8 {
			return Field{}, fmt.Errorf("unsupported float width in typestr %q", s)
		}
		f.ItemSize = n
	case KindInt, KindUint:
		if n != 1 && n != 2 && n != 4 && n != 8 {
			return Field{}, fmt.Errorf("unsupported integer width in typestr %q", s)
		}
		f.ItemSize = n
	case KindBool:
		if n != 1 {
			return Field{}, fmt.Errorf("unsupported bool width in typestr %q", s)
		}
		f.ItemSize = 1
	case KindBytes:
		f.ItemSize = n
	case KindUnicode:
		f.ItemSize = 4 * n
	default:
		return Field{}, fmt.Errorf("unsupported kind %q in typestr %q", string(s[1]), s)
	}
	return f, nil
}

// ParseDType parses the dtype member of a .zarray document. It returns the
// fields with packed offsets and the record size in bytes. A plain typestr
// yields a single unnamed field.
func ParseDType(raw json.RawMessage) ([]Field, int, error) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		f, err := ParseTypeStr(plain)
		if err != nil {
			return nil, 0, err
		}
		return []Field{f}, f.Size(), nil
	}

	var members [][]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, 0, fmt.Errorf("dtype must be a typestr or a list of fields: %w", err)
	}
	if len(members) == 0 {
		return nil, 0, fmt.Errorf("structured dtype has no fields")
	}

	fields := make([]Field, 0, len(members))
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		if len(m) < 2 || len(m) > 3 {
			return nil, 0, fmt.Errorf("dtype field %d: expected [name, type] or [name, type, shape]", i)
		}
		var name, typestr string
		if err := json.Unmarshal(m[0], &name); err != nil {
			return nil, 0, fmt.Errorf("dtype field %d: name: %w", i, err)
		}
		if err := json.Unmarshal(m[1], &typestr); err != nil {
			return nil, 0, fmt.Errorf("dtype field %q: nested structured types are not supported", name)
		}
		if seen[name] {
			return nil, 0, fmt.Errorf("dtype field %q declared twice", name)
		}
		seen[name] = true

		f, err := ParseTypeStr(typestr)
		if err != nil {
			return nil, 0, fmt.Errorf("dtype field %q: %w", name, err)
		}
		f.Name = name
		if len(m) == 3 {
			if err := json.Unmarshal(m[2], &f.Shape); err != nil {
				return nil, 0, fmt.Errorf("dtype field %q: shape: %w", name, err)
			}
			for _, d := range f.Shape {
				if d < 0 {
					return nil, 0, fmt.Errorf("dtype field %q: negative dimension", name)
				}
			}
		}
		fields = append(fields, f)
	}

	size := Layout(fields)
	return fields, size, nil
}

// Layout assigns packed offsets to fields in declaration order and returns
// the record size.
func Layout(fields []Field) int {
	off := 0
	for i := range fields {
		fields[i].Offset = off
		off += fields[i].Size()
	}
	return off
}

// FormatDType renders fields as a structured dtype for a .zarray document.
func FormatDType(fields []Field) (json.RawMessage, error) {
	if len(fields) == 1 && fields[0].Name == "" {
		return json.Marshal(fields[0].TypeStr())
	}
	members := make([][]interface{}, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("structured dtype field without a name")
		}
		m := []interface{}{f.Name, f.TypeStr()}
		if len(f.Shape) > 0 {
			m = append(m, f.Shape)
		}
		members = append(members, m)
	}
	return json.Marshal(members)
}
