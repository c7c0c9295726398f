package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Blosc frame layout (c-blosc 1.x, format version 2).
const (
	bloscHeaderLen   = 16
	bloscMaxSplits   = 16
	bloscMinBuffer   = 128
	bloscMaxTypeSize = 255
	bloscMaxBlock    = 256 << 10

	bloscFlagShuffle    = 0x01
	bloscFlagMemcpyed   = 0x02
	bloscFlagBitShuffle = 0x04
	bloscFlagDontSplit  = 0x10
)

// Blosc shuffle modes as written in the compressor document.
const (
	BloscNoShuffle   = 0
	BloscShuffle     = 1
	BloscBitShuffle  = 2
	BloscAutoShuffle = -1
)

// Internal compressor codes stored in bits 5-7 of the flags byte.
const (
	bloscCodeBloscLZ = 0
	bloscCodeLZ4     = 1
	bloscCodeSnappy  = 2
	bloscCodeZlib    = 3
	bloscCodeZstd    = 4
)

var bloscCodes = map[string]byte{
	"lz4":    bloscCodeLZ4,
	"lz4hc":  bloscCodeLZ4,
	"snappy": bloscCodeSnappy,
	"zlib":   bloscCodeZlib,
	"zstd":   bloscCodeZstd,
}

// bloscCodec reads and writes Blosc frames. Decoding follows the frame
// header, so any supported inner codec is accepted regardless of cname.
type bloscCodec struct {
	cname     string
	code      byte
	level     int
	shuffle   int
	typeSize  int
	blockSize int

	zstdOnce sync.Once
	zstdDec  *zstd.Decoder
	zstdErr  error
}

func newBloscCodec(c *Compressor, typeSize int) (*bloscCodec, error) {
	cname := c.CName
	if cname == "" {
		cname = "lz4"
	}
	code, ok := bloscCodes[cname]
	if !ok {
		return nil, fmt.Errorf("%w: blosc cname %q", ErrUnsupportedCompressor, cname)
	}
	switch c.Shuffle {
	case BloscNoShuffle, BloscShuffle, BloscAutoShuffle:
	case BloscBitShuffle:
		return nil, fmt.Errorf("%w: blosc bit-shuffle", ErrUnsupportedCompressor)
	default:
		return nil, fmt.Errorf("invalid blosc shuffle %d", c.Shuffle)
	}
	if typeSize <= 0 || typeSize > bloscMaxTypeSize {
		typeSize = 1
	}
	return &bloscCodec{
		cname:     cname,
		code:      code,
		level:     c.CLevel,
		shuffle:   c.Shuffle,
		typeSize:  typeSize,
		blockSize: c.BlockSize,
	}, nil
}

func (c *bloscCodec) zstdDecoder() (*zstd.Decoder, error) {
	c.zstdOnce.Do(func() {
		c.zstdDec, c.zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return c.zstdDec, c.zstdErr
}

func (c *bloscCodec) close() {
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
}

func (c *bloscCodec) decode(src []byte) ([]byte, error) {
	if len(src) < bloscHeaderLen {
		return nil, fmt.Errorf("blosc: frame of %d bytes is shorter than its header", len(src))
	}
	version := src[0]
	flags := src[2]
	typeSize := int(src[3])
	nbytes := int(binary.LittleEndian.Uint32(src[4:]))
	blockSize := int(binary.LittleEndian.Uint32(src[8:]))
	cbytes := int(binary.LittleEndian.Uint32(src[12:]))

	if version == 0 || version > 2 {
		return nil, fmt.Errorf("blosc: unsupported format version %d", version)
	}
	if cbytes > len(src) {
		return nil, fmt.Errorf("blosc: frame declares %d bytes, have %d", cbytes, len(src))
	}
	if flags&bloscFlagBitShuffle != 0 {
		return nil, fmt.Errorf("%w: blosc bit-shuffle", ErrUnsupportedCompressor)
	}
	if nbytes == 0 {
		return []byte{}, nil
	}
	if flags&bloscFlagMemcpyed != 0 {
		if bloscHeaderLen+nbytes > cbytes {
			return nil, fmt.Errorf("blosc: memcpy frame holds %d bytes, want %d", cbytes-bloscHeaderLen, nbytes)
		}
		out := make([]byte, nbytes)
		copy(out, src[bloscHeaderLen:])
		return out, nil
	}
	if blockSize <= 0 || typeSize == 0 {
		return nil, fmt.Errorf("blosc: invalid block size %d or type size %d", blockSize, typeSize)
	}

	code := flags >> 5
	nblocks := nbytes / blockSize
	leftover := nbytes % blockSize
	if leftover > 0 {
		nblocks++
	}
	if bloscHeaderLen+4*nblocks > cbytes {
		return nil, fmt.Errorf("blosc: frame too short for %d block offsets", nblocks)
	}

	out := make([]byte, nbytes)
	shuffled := flags&bloscFlagShuffle != 0 && typeSize > 1
	var tmp []byte
	if shuffled {
		tmp = make([]byte, blockSize)
	}
	for b := 0; b < nblocks; b++ {
		bsize := blockSize
		if b == nblocks-1 && leftover > 0 {
			bsize = leftover
		}
		dst := out[b*blockSize : b*blockSize+bsize]
		target := dst
		if shuffled {
			target = tmp[:bsize]
		}

		nstreams := 1
		if flags&bloscFlagDontSplit == 0 && typeSize <= bloscMaxSplits && bsize == blockSize {
			nstreams = typeSize
		}
		neblock := bsize / nstreams
		if neblock*nstreams != bsize {
			return nil, fmt.Errorf("blosc: block %d of %d bytes does not split into %d streams", b, bsize, nstreams)
		}

		pos := int(binary.LittleEndian.Uint32(src[bloscHeaderLen+4*b:]))
		for s := 0; s < nstreams; s++ {
			if pos < 0 || pos+4 > cbytes {
				return nil, fmt.Errorf("blosc: block %d stream %d starts past the frame", b, s)
			}
			csize := int(int32(binary.LittleEndian.Uint32(src[pos:])))
			pos += 4
			if csize <= 0 || pos+csize > cbytes {
				return nil, fmt.Errorf("blosc: block %d stream %d has invalid size %d", b, s, csize)
			}
			part := target[s*neblock : (s+1)*neblock]
			if csize == neblock {
				copy(part, src[pos:pos+csize])
			} else if err := c.decompress(code, src[pos:pos+csize], part); err != nil {
				return nil, fmt.Errorf("blosc: block %d stream %d: %w", b, s, err)
			}
			pos += csize
		}

		if shuffled {
			unshuffle(typeSize, target, dst)
		}
	}
	return out, nil
}

// decompress fills dst exactly from one compressed stream.
func (c *bloscCodec) decompress(code byte, src, dst []byte) error {
	var (
		n   int
		err error
	)
	switch code {
	case bloscCodeLZ4:
		n, err = lz4.UncompressBlock(src, dst)
	case bloscCodeSnappy:
		var dec []byte
		dec, err = s2.Decode(dst, src)
		n = copy(dst, dec)
		if err == nil && len(dec) != len(dst) {
			n = len(dec)
		}
	case bloscCodeZlib:
		var r io.ReadCloser
		r, err = zlib.NewReader(bytes.NewReader(src))
		if err == nil {
			n, err = io.ReadFull(r, dst)
			r.Close()
		}
	case bloscCodeZstd:
		var dec *zstd.Decoder
		if dec, err = c.zstdDecoder(); err == nil {
			var res []byte
			res, err = dec.DecodeAll(src, make([]byte, 0, len(dst)))
			n = copy(dst, res)
			if err == nil && len(res) != len(dst) {
				n = len(res)
			}
		}
	case bloscCodeBloscLZ:
		return fmt.Errorf("%w: blosclz", ErrUnsupportedCompressor)
	default:
		return fmt.Errorf("%w: blosc compressor code %d", ErrUnsupportedCompressor, code)
	}
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("decoded %d bytes, want %d", n, len(dst))
	}
	return nil
}

func (c *bloscCodec) encode(src []byte) ([]byte, error) {
	nbytes := len(src)
	ts := c.typeSize
	flags := c.code << 5
	doShuffle := c.shuffle != BloscNoShuffle && ts > 1
	if doShuffle {
		flags |= bloscFlagShuffle
	}

	blockSize := c.blockSize
	if blockSize <= 0 || blockSize > bloscMaxBlock {
		blockSize = bloscMaxBlock
	}
	if blockSize > nbytes {
		blockSize = nbytes
	}
	if blockSize >= ts {
		blockSize -= blockSize % ts
	}
	split := ts <= bloscMaxSplits && blockSize/ts >= bloscMinBuffer
	if !split {
		flags |= bloscFlagDontSplit
	}

	if nbytes < bloscMinBuffer || blockSize == 0 {
		return bloscMemcpy(src, flags, ts, blockSize), nil
	}

	nblocks := nbytes / blockSize
	leftover := nbytes % blockSize
	if leftover > 0 {
		nblocks++
	}
	out := make([]byte, bloscHeaderLen+4*nblocks, bloscHeaderLen+4*nblocks+nbytes)
	tmp := make([]byte, blockSize)
	for b := 0; b < nblocks; b++ {
		bsize := blockSize
		if b == nblocks-1 && leftover > 0 {
			bsize = leftover
		}
		block := src[b*blockSize : b*blockSize+bsize]
		if doShuffle {
			shuffle(ts, block, tmp[:bsize])
			block = tmp[:bsize]
		}
		binary.LittleEndian.PutUint32(out[bloscHeaderLen+4*b:], uint32(len(out)))

		nstreams := 1
		if split && bsize == blockSize {
			nstreams = ts
		}
		neblock := bsize / nstreams
		for s := 0; s < nstreams; s++ {
			part := block[s*neblock : (s+1)*neblock]
			comp, err := c.compress(part)
			if err != nil {
				return nil, fmt.Errorf("blosc %s: %w", c.cname, err)
			}
			if len(comp) == 0 || len(comp) >= neblock {
				comp = part
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(len(comp)))
			out = append(out, comp...)
		}
		if len(out) >= bloscHeaderLen+nbytes {
			return bloscMemcpy(src, flags, ts, blockSize), nil
		}
	}
	putBloscHeader(out, flags, ts, nbytes, blockSize)
	return out, nil
}

func (c *bloscCodec) compress(src []byte) ([]byte, error) {
	switch c.cname {
	case "lz4":
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		var comp lz4.Compressor
		n, err := comp.CompressBlock(src, dst)
		return dst[:n], err
	case "lz4hc":
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		var comp lz4.CompressorHC
		n, err := comp.CompressBlock(src, dst)
		return dst[:n], err
	case "snappy":
		return s2.EncodeSnappy(nil, src), nil
	case "zlib":
		return zlibCodec{level: c.level}.encode(src)
	case "zstd":
		lvl := zstd.SpeedDefault
		if c.level > 0 {
			lvl = zstd.EncoderLevelFromZstd(c.level)
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(src, nil), nil
	}
	return nil, fmt.Errorf("%w: blosc cname %q", ErrUnsupportedCompressor, c.cname)
}

func bloscMemcpy(src []byte, flags byte, ts, blockSize int) []byte {
	out := make([]byte, bloscHeaderLen+len(src))
	copy(out[bloscHeaderLen:], src)
	if blockSize == 0 {
		blockSize = len(src)
	}
	putBloscHeader(out, flags|bloscFlagMemcpyed, ts, len(src), blockSize)
	return out
}

func putBloscHeader(out []byte, flags byte, ts, nbytes, blockSize int) {
	out[0] = 2
	out[1] = 1
	out[2] = flags
	out[3] = byte(ts)
	binary.LittleEndian.PutUint32(out[4:], uint32(nbytes))
	binary.LittleEndian.PutUint32(out[8:], uint32(blockSize))
	binary.LittleEndian.PutUint32(out[12:], uint32(len(out)))
}

// shuffle groups byte j of every element together. Trailing bytes that do
// not fill an element are copied as is.
func shuffle(ts int, src, dst []byte) {
	n := len(src) / ts
	for j := 0; j < ts; j++ {
		for i := 0; i < n; i++ {
			dst[j*n+i] = src[i*ts+j]
		}
	}
	copy(dst[n*ts:], src[n*ts:])
}

func unshuffle(ts int, src, dst []byte) {
	n := len(src) / ts
	for j := 0; j < ts; j++ {
		for i := 0; i < n; i++ {
			dst[i*ts+j] = src[j*n+i]
		}
	}
	copy(dst[n*ts:], src[n*ts:])
}
