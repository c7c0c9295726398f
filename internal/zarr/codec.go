package zarr

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedCompressor is returned for compressor ids this package cannot decode.
var ErrUnsupportedCompressor = errors.New("unsupported compressor")

// Compressor is the compressor member of a .zarray document. Level applies
// to zstd, zlib and gzip; the C-prefixed members and Shuffle to blosc.
type Compressor struct {
	ID        string `json:"id"`
	Level     int    `json:"level,omitempty"`
	CName     string `json:"cname,omitempty"`
	CLevel    int    `json:"clevel,omitempty"`
	Shuffle   int    `json:"shuffle,omitempty"`
	BlockSize int    `json:"blocksize,omitempty"`
}

// codec compresses and decompresses whole chunks.
type codec interface {
	decode(src []byte) ([]byte, error)
	encode(src []byte) ([]byte, error)
	close()
}

// newCodec returns the codec for c. typeSize is the record size, used by
// blosc to shuffle.
func newCodec(c *Compressor, typeSize int) (codec, error) {
	if c == nil {
		return rawCodec{}, nil
	}
	switch c.ID {
	case "zstd":
		return newZstdCodec(c.Level)
	case "zlib":
		return zlibCodec{level: c.Level}, nil
	case "gzip":
		return gzipCodec{level: c.Level}, nil
	case "blosc":
		return newBloscCodec(c, typeSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompressor, c.ID)
	}
}

// ParseCompressor builds a compressor from a command-line name: none, zstd,
// zlib, gzip or blosc. For blosc, cname selects the inner codec and chunks
// are byte-shuffled, matching zarr-python's default.
func ParseCompressor(name, cname string, level int) (*Compressor, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "zstd", "zlib", "gzip":
		return &Compressor{ID: name, Level: level}, nil
	case "blosc":
		if cname == "" {
			cname = "lz4"
		}
		if _, ok := bloscCodes[cname]; !ok {
			return nil, fmt.Errorf("%w: blosc cname %q", ErrUnsupportedCompressor, cname)
		}
		return &Compressor{ID: "blosc", CName: cname, CLevel: level, Shuffle: BloscShuffle}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompressor, name)
}

type rawCodec struct{}

func (rawCodec) decode(src []byte) ([]byte, error) { return src, nil }
func (rawCodec) encode(src []byte) ([]byte, error) { return src, nil }
func (rawCodec) close()                            {}

type zstdCodec struct {
	dec   *zstd.Decoder
	level zstd.EncoderLevel
}

func newZstdCodec(level int) (*zstdCodec, error) {
	// DecodeAll is safe for concurrent use; a single worker keeps the decoder
	// from spawning background goroutines.
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	lvl := zstd.SpeedDefault
	if level > 0 {
		lvl = zstd.EncoderLevelFromZstd(level)
	}
	return &zstdCodec{dec: dec, level: lvl}, nil
}

func (c *zstdCodec) decode(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (c *zstdCodec) encode(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (c *zstdCodec) close() { c.dec.Close() }

type zlibCodec struct{ level int }

func (zlibCodec) decode(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zlib decode: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decode: %w", err)
	}
	return out, nil
}

func (c zlibCodec) encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	lvl := c.level
	if lvl == 0 {
		lvl = zlib.DefaultCompression
	}
	w, err := zlib.NewWriterLevel(&buf, lvl)
	if err != nil {
		return nil, fmt.Errorf("zlib encode: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (zlibCodec) close() {}

type gzipCodec struct{ level int }

func (gzipCodec) decode(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("gzip decode: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decode: %w", err)
	}
	return out, nil
}

func (c gzipCodec) encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	lvl := c.level
	if lvl == 0 {
		lvl = gzip.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(&buf, lvl)
	if err != nil {
		return nil, fmt.Errorf("gzip encode: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("gzip encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCodec) close() {}
