package zarr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/monitoring"
)

// ErrOutOfRange is returned when a record range exceeds the array bounds.
var ErrOutOfRange = errors.New("record range out of bounds")

const (
	arrayMetaFile = ".zarray"
	groupMetaFile = ".zgroup"
)

// Metadata mirrors the .zarray document of a zarr v2 array.
type Metadata struct {
	ZarrFormat         int             `json:"zarr_format"`
	Shape              []int           `json:"shape"`
	Chunks             []int           `json:"chunks"`
	DType              json.RawMessage `json:"dtype"`
	Compressor         *Compressor     `json:"compressor"`
	FillValue          json.RawMessage `json:"fill_value"`
	Order              string          `json:"order"`
	Filters            json.RawMessage `json:"filters"`
	DimensionSeparator string          `json:"dimension_separator,omitempty"`
}

// Array is an opened one-dimensional structured array. It is safe for
// concurrent readers.
type Array struct {
	fsys       fsutil.FileSystem
	path       string
	meta       Metadata
	fields     []Field
	index      map[string]int
	recordSize int
	fill       []byte
	codec      codec
	cache      *chunkCache
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	cacheSize int
}

// WithCacheSize sets how many decoded chunks are kept in memory.
func WithCacheSize(n int) Option {
	return func(o *openOptions) { o.cacheSize = n }
}

// Open reads the .zarray document under path and prepares the array for reading.
func Open(fsys fsutil.FileSystem, path string, opts ...Option) (*Array, error) {
	o := openOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := fsys.ReadFile(filepath.Join(path, arrayMetaFile))
	if err != nil {
		return nil, fmt.Errorf("read array metadata %s: %w", path, err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse array metadata %s: %w", path, err)
	}
	if err := validateMetadata(meta); err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}

	fields, size, err := ParseDType(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}
	if size == 0 {
		return nil, fmt.Errorf("array %s: zero-sized records", path)
	}

	fill, err := parseFillValue(meta.FillValue, fields, size)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}

	c, err := newCodec(meta.Compressor, size)
	if err != nil {
		return nil, fmt.Errorf("array %s: %w", path, err)
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}

	monitoring.Debugf("opened zarr array %s: %d records, chunk %d, record %d bytes", path, meta.Shape[0], meta.Chunks[0], size)

	return &Array{
		fsys:       fsys,
		path:       path,
		meta:       meta,
		fields:     fields,
		index:      index,
		recordSize: size,
		fill:       fill,
		codec:      c,
		cache:      newChunkCache(o.cacheSize),
	}, nil
}

func validateMetadata(m Metadata) error {
	if m.ZarrFormat != 2 {
		return fmt.Errorf("unsupported zarr_format %d", m.ZarrFormat)
	}
	if len(m.Shape) != 1 || len(m.Chunks) != 1 {
		return fmt.Errorf("only one-dimensional arrays are supported, got shape %v", m.Shape)
	}
	if m.Shape[0] < 0 {
		return fmt.Errorf("negative shape %v", m.Shape)
	}
	if m.Chunks[0] <= 0 {
		return fmt.Errorf("invalid chunk length %d", m.Chunks[0])
	}
	if m.Order != "" && m.Order != "C" && m.Order != "F" {
		return fmt.Errorf("invalid order %q", m.Order)
	}
	if len(m.Filters) > 0 {
		var filters []json.RawMessage
		if err := json.Unmarshal(m.Filters, &filters); err != nil && string(m.Filters) != "null" {
			return fmt.Errorf("invalid filters: %w", err)
		}
		if len(filters) > 0 {
			return fmt.Errorf("filters are not supported")
		}
	}
	return nil
}

// Len returns the number of records in the array.
func (a *Array) Len() int { return a.meta.Shape[0] }

// ChunkLen returns the number of records per chunk.
func (a *Array) ChunkLen() int { return a.meta.Chunks[0] }

// RecordSize returns the size in bytes of one record.
func (a *Array) RecordSize() int { return a.recordSize }

// Fields returns the record layout.
func (a *Array) Fields() []Field {
	out := make([]Field, len(a.fields))
	copy(out, a.fields)
	return out
}

// Field returns the named field.
func (a *Array) Field(name string) (Field, bool) {
	i, ok := a.index[name]
	if !ok {
		return Field{}, false
	}
	return a.fields[i], true
}

// Metadata returns a copy of the array metadata.
func (a *Array) Metadata() Metadata { return a.meta }

// Close releases decoder resources.
func (a *Array) Close() {
	a.codec.close()
}

// ReadRange returns the raw bytes of records [start, end).
func (a *Array) ReadRange(start, end int) ([]byte, error) {
	if start < 0 || end < start || end > a.Len() {
		return nil, fmt.Errorf("%w: [%d, %d) of %d records in %s", ErrOutOfRange, start, end, a.Len(), a.path)
	}
	out := make([]byte, 0, (end-start)*a.recordSize)
	if start == end {
		return out, nil
	}

	cl := a.ChunkLen()
	for ci := start / cl; ci <= (end-1)/cl; ci++ {
		chunk, err := a.chunk(ci)
		if err != nil {
			return nil, err
		}
		base := ci * cl
		lo := max(start, base) - base
		hi := min(end, base+cl) - base
		out = append(out, chunk[lo*a.recordSize:hi*a.recordSize]...)
	}
	return out, nil
}

// Records decodes records [start, end) into accessors.
func (a *Array) Records(start, end int) ([]Record, error) {
	raw, err := a.ReadRange(start, end)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, end-start)
	for i := range recs {
		recs[i] = Record{arr: a, data: raw[i*a.recordSize : (i+1)*a.recordSize]}
	}
	return recs, nil
}

// chunk returns the decoded bytes of chunk ci, padded to a full chunk.
func (a *Array) chunk(ci int) ([]byte, error) {
	if data, ok := a.cache.get(ci); ok {
		return data, nil
	}

	name := filepath.Join(a.path, strconv.Itoa(ci))
	raw, err := a.fsys.ReadFile(name)
	var data []byte
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = fillChunk(a.fill, a.ChunkLen(), a.recordSize)
	case err != nil:
		return nil, fmt.Errorf("read chunk %s: %w", name, err)
	default:
		data, err = a.codec.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", name, err)
		}
	}

	// Trailing chunks may be stored short by some writers.
	lastLen := a.Len() - ci*a.ChunkLen()
	minLen := min(lastLen, a.ChunkLen()) * a.recordSize
	if len(data) < minLen {
		return nil, fmt.Errorf("chunk %s: decoded %d bytes, want at least %d", name, len(data), minLen)
	}

	a.cache.put(ci, data)
	return data, nil
}

// IsGroup reports whether path holds a zarr group document.
func IsGroup(fsys fsutil.FileSystem, path string) bool {
	return fsys.Exists(filepath.Join(path, groupMetaFile))
}

// IsArray reports whether path holds a zarr array document.
func IsArray(fsys fsutil.FileSystem, path string) bool {
	return fsys.Exists(filepath.Join(path, arrayMetaFile))
}
