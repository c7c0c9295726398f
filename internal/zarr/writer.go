package zarr

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/banshee-data/scene.report/internal/fsutil"
)

// RecordBuffer accumulates encoded records for WriteArray.
type RecordBuffer struct {
	fields []Field
	index  map[string]int
	size   int
	data   []byte
	n      int
}

// NewRecordBuffer lays out fields and returns an empty buffer.
func NewRecordBuffer(fields []Field) (*RecordBuffer, error) {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	size := Layout(fs)
	if size == 0 {
		return nil, fmt.Errorf("record layout has zero size")
	}
	index := make(map[string]int, len(fs))
	for i, f := range fs {
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("field %q declared twice", f.Name)
		}
		index[f.Name] = i
	}
	return &RecordBuffer{fields: fs, index: index, size: size}, nil
}

// Len returns the number of records appended so far.
func (b *RecordBuffer) Len() int { return b.n }

// Append encodes one record. Values may be float64, []float64, int64,
// []int64, uint64, int, bool or string; fields without a value are zero.
func (b *RecordBuffer) Append(values map[string]interface{}) error {
	rec := make([]byte, b.size)
	for name, v := range values {
		i, ok := b.index[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNoField, name)
		}
		if err := encodeField(b.fields[i], rec, v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	b.data = append(b.data, rec...)
	b.n++
	return nil
}

func encodeField(f Field, rec []byte, v interface{}) error {
	switch val := v.(type) {
	case string:
		return encodeString(f, rec, val)
	case float64:
		return encodeNumbers(f, rec, []float64{val})
	case []float64:
		return encodeNumbers(f, rec, val)
	case int:
		return encodeNumbers(f, rec, []float64{float64(val)})
	case int64:
		return encodeInts(f, rec, []int64{val})
	case []int64:
		return encodeInts(f, rec, val)
	case uint64:
		if f.Kind != KindUint || f.Count() != 1 {
			return fmt.Errorf("uint64 value needs a scalar unsigned field")
		}
		putUint(f, rec[f.Offset:], val)
		return nil
	case bool:
		n := 0.0
		if val {
			n = 1
		}
		return encodeNumbers(f, rec, []float64{n})
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeNumbers(f Field, rec []byte, vals []float64) error {
	if len(vals) != f.Count() {
		return fmt.Errorf("got %d values, want %d", len(vals), f.Count())
	}
	order := f.byteOrder()
	for i, v := range vals {
		b := rec[f.Offset+i*f.ItemSize:]
		switch f.Kind {
		case KindFloat:
			if f.ItemSize == 4 {
				order.PutUint32(b, math.Float32bits(float32(v)))
			} else {
				order.PutUint64(b, math.Float64bits(v))
			}
		case KindInt, KindUint, KindBool:
			putUint(f, b, uint64(int64(v)))
		default:
			return fmt.Errorf("cannot store number in kind %q", string(f.Kind))
		}
	}
	return nil
}

func encodeInts(f Field, rec []byte, vals []int64) error {
	if f.Kind != KindInt && f.Kind != KindUint {
		return fmt.Errorf("cannot store integer in kind %q", string(f.Kind))
	}
	if len(vals) != f.Count() {
		return fmt.Errorf("got %d values, want %d", len(vals), f.Count())
	}
	for i, v := range vals {
		putUint(f, rec[f.Offset+i*f.ItemSize:], uint64(v))
	}
	return nil
}

func putUint(f Field, b []byte, v uint64) {
	order := f.byteOrder()
	switch f.ItemSize {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	default:
		order.PutUint64(b, v)
	}
}

func encodeString(f Field, rec []byte, s string) error {
	dst := rec[f.Offset : f.Offset+f.ItemSize]
	switch f.Kind {
	case KindBytes:
		if len(s) > len(dst) {
			return fmt.Errorf("string %q longer than %d bytes", s, len(dst))
		}
		copy(dst, s)
	case KindUnicode:
		if utf8.RuneCountInString(s) > len(dst)/4 {
			return fmt.Errorf("string %q longer than %d characters", s, len(dst)/4)
		}
		order := f.byteOrder()
		i := 0
		for _, r := range s {
			order.PutUint32(dst[i:], uint32(r))
			i += 4
		}
	default:
		return fmt.Errorf("cannot store string in kind %q", string(f.Kind))
	}
	return nil
}

// WriteArray writes the buffered records as a zarr v2 array at path.
func WriteArray(fsys fsutil.FileSystem, path string, buf *RecordBuffer, chunkLen int, comp *Compressor) error {
	if chunkLen <= 0 {
		return fmt.Errorf("invalid chunk length %d", chunkLen)
	}
	c, err := newCodec(comp, buf.size)
	if err != nil {
		return err
	}
	defer c.close()

	dtype, err := FormatDType(buf.fields)
	if err != nil {
		return err
	}
	meta := Metadata{
		ZarrFormat: 2,
		Shape:      []int{buf.n},
		Chunks:     []int{chunkLen},
		DType:      dtype,
		Compressor: comp,
		FillValue:  json.RawMessage("null"),
		Order:      "C",
		Filters:    json.RawMessage("null"),
	}
	doc, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("encode array metadata: %w", err)
	}
	if err := fsys.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create array dir: %w", err)
	}
	if err := fsys.WriteFile(filepath.Join(path, arrayMetaFile), doc, 0644); err != nil {
		return fmt.Errorf("write array metadata: %w", err)
	}

	chunkBytes := chunkLen * buf.size
	for ci := 0; ci*chunkLen < buf.n; ci++ {
		// Chunks are always stored at full length, zero padded.
		chunk := make([]byte, chunkBytes)
		copy(chunk, buf.data[ci*chunkBytes:])
		enc, err := c.encode(chunk)
		if err != nil {
			return err
		}
		if err := fsys.WriteFile(filepath.Join(path, strconv.Itoa(ci)), enc, 0644); err != nil {
			return fmt.Errorf("write chunk %d: %w", ci, err)
		}
	}
	return nil
}

// WriteGroup writes a .zgroup document at path.
func WriteGroup(fsys fsutil.FileSystem, path string) error {
	if err := fsys.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create group dir: %w", err)
	}
	return fsys.WriteFile(filepath.Join(path, groupMetaFile), []byte(`{"zarr_format": 2}`), 0644)
}
