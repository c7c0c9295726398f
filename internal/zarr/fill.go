package zarr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// parseFillValue encodes the fill_value member of a .zarray document as one
// record. It returns nil for null and for values that encode to all zeros.
//
// Structured dtypes carry the record as base64. Plain dtypes use a JSON
// number, "NaN", "Infinity" or "-Infinity" for floats, a boolean for b1,
// base64 for S and a string for U.
func parseFillValue(raw json.RawMessage, fields []Field, size int) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	rec := make([]byte, size)

	if len(fields) != 1 || fields[0].Name != "" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			if string(raw) == "0" {
				return nil, nil
			}
			return nil, fmt.Errorf("structured fill_value must be base64, got %s", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("structured fill_value: %w", err)
		}
		if len(b) != size {
			return nil, fmt.Errorf("structured fill_value has %d bytes, want %d", len(b), size)
		}
		copy(rec, b)
		return nonZero(rec), nil
	}

	f := fields[0]
	var err error
	switch f.Kind {
	case KindFloat:
		var v float64
		if v, err = parseFloatFill(raw); err == nil {
			err = encodeNumbers(f, rec, []float64{v})
		}
	case KindInt:
		var v int64
		if v, err = strconv.ParseInt(string(raw), 10, 64); err == nil {
			err = encodeInts(f, rec, []int64{v})
		}
	case KindUint:
		var v uint64
		if v, err = strconv.ParseUint(string(raw), 10, 64); err == nil {
			putUint(f, rec[f.Offset:], v)
		}
	case KindBool:
		var v bool
		if err = json.Unmarshal(raw, &v); err == nil {
			err = encodeField(f, rec, v)
		}
	case KindBytes:
		var s string
		if err = json.Unmarshal(raw, &s); err == nil {
			var b []byte
			if b, err = base64.StdEncoding.DecodeString(s); err == nil {
				err = encodeString(f, rec, string(b))
			}
		}
	case KindUnicode:
		var s string
		if err = json.Unmarshal(raw, &s); err == nil {
			err = encodeString(f, rec, s)
		}
	default:
		err = fmt.Errorf("unsupported kind %q", string(f.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("fill_value %s for %s: %w", raw, f.TypeStr(), err)
	}
	return nonZero(rec), nil
}

func parseFloatFill(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unknown float fill %q", s)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func nonZero(rec []byte) []byte {
	for _, b := range rec {
		if b != 0 {
			return rec
		}
	}
	return nil
}

// fillChunk returns n records of fill, or zeros when fill is nil.
func fillChunk(fill []byte, n, recordSize int) []byte {
	if fill == nil {
		return make([]byte, n*recordSize)
	}
	return bytes.Repeat(fill, n)
}
