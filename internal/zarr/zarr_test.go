package zarr

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/fsutil"
)

func sceneFields(t *testing.T) []Field {
	t.Helper()
	raw := json.RawMessage(`[["frame_index_interval", "<i8", [2]], ["host", "<U16"], ["start_time", "<i8"], ["end_time", "<i8"]]`)
	fields, size, err := ParseDType(raw)
	require.NoError(t, err)
	require.Equal(t, 2*8+16*4+8+8, size)
	return fields
}

func TestParseTypeStr(t *testing.T) {
	tests := []struct {
		in       string
		kind     Kind
		itemSize int
		big      bool
		wantErr  bool
	}{
		{"<f8", KindFloat, 8, false, false},
		{"<f4", KindFloat, 4, false, false},
		{">i4", KindInt, 4, true, false},
		{"|u1", KindUint, 1, false, false},
		{"|b1", KindBool, 1, false, false},
		{"<U16", KindUnicode, 64, false, false},
		{"|S8", KindBytes, 8, false, false},
		{"<f2", 0, 0, false, true},
		{"<i3", 0, 0, false, true},
		{"=f8", 0, 0, false, true},
		{"<c8", 0, 0, false, true},
		{"<f", 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseTypeStr(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.itemSize, f.ItemSize)
			assert.Equal(t, tt.big, f.BigEndian)
			assert.Equal(t, tt.in, f.TypeStr())
		})
	}
}

func TestParseDType_Structured(t *testing.T) {
	fields := sceneFields(t)
	require.Len(t, fields, 4)

	assert.Equal(t, "frame_index_interval", fields[0].Name)
	assert.Equal(t, []int{2}, fields[0].Shape)
	assert.Equal(t, 0, fields[0].Offset)
	assert.Equal(t, 16, fields[1].Offset)
	assert.Equal(t, 80, fields[2].Offset)
	assert.Equal(t, 88, fields[3].Offset)

	raw, err := FormatDType(fields)
	require.NoError(t, err)
	again, _, err := ParseDType(raw)
	require.NoError(t, err)
	assert.Equal(t, fields, again)
}

func TestParseDType_Errors(t *testing.T) {
	bad := []string{
		`[]`,
		`[["a"]]`,
		`[["a", "<f8"], ["a", "<f8"]]`,
		`[["a", [["b", "<f8"]]]]`,
		`[["a", "<f8", [-1]]]`,
		`42`,
	}
	for _, b := range bad {
		_, _, err := ParseDType(json.RawMessage(b))
		assert.Error(t, err, b)
	}

	fields, size, err := ParseDType(json.RawMessage(`"<f4"`))
	require.NoError(t, err)
	assert.Equal(t, 4, size)
	assert.Equal(t, "", fields[0].Name)
}

func writeScenes(t *testing.T, fsys fsutil.FileSystem, path string, n, chunkLen int, comp *Compressor) {
	t.Helper()
	buf, err := NewRecordBuffer(sceneFields(t))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, buf.Append(map[string]interface{}{
			"frame_index_interval": []int64{int64(i * 10), int64(i*10 + 10)},
			"host":                 fmt.Sprintf("host-%d", i),
			"start_time":           int64(i) * 1_000_000_000,
			"end_time":             int64(i+5) * 1_000_000_000,
		}))
	}
	require.NoError(t, WriteArray(fsys, path, buf, chunkLen, comp))
}

func TestRoundTrip_Codecs(t *testing.T) {
	codecs := []*Compressor{
		nil,
		{ID: "zstd", Level: 3},
		{ID: "zlib", Level: 1},
		{ID: "gzip"},
		{ID: "blosc", CName: "lz4", CLevel: 5, Shuffle: BloscShuffle},
	}
	for _, comp := range codecs {
		name := "raw"
		if comp != nil {
			name = comp.ID
		}
		t.Run(name, func(t *testing.T) {
			fsys := fsutil.NewMemoryFileSystem()
			writeScenes(t, fsys, "/ds/scenes", 11, 4, comp)

			arr, err := Open(fsys, "/ds/scenes")
			require.NoError(t, err)
			defer arr.Close()

			assert.Equal(t, 11, arr.Len())
			assert.Equal(t, 4, arr.ChunkLen())
			assert.Equal(t, 3, len(fsys.Files("/ds/scenes"))-1) // three chunks + .zarray

			// Range spanning all three chunks.
			recs, err := arr.Records(3, 10)
			require.NoError(t, err)
			require.Len(t, recs, 7)
			for i, rec := range recs {
				idx := i + 3
				iv, err := rec.Int64s("frame_index_interval")
				require.NoError(t, err)
				assert.Equal(t, []int64{int64(idx * 10), int64(idx*10 + 10)}, iv)

				host, err := rec.String("host")
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("host-%d", idx), host)

				start, err := rec.Int64("start_time")
				require.NoError(t, err)
				assert.Equal(t, int64(idx)*1_000_000_000, start)
			}
		})
	}
}

func TestReadRange_Bounds(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeScenes(t, fsys, "/ds/scenes", 5, 2, nil)
	arr, err := Open(fsys, "/ds/scenes")
	require.NoError(t, err)

	raw, err := arr.ReadRange(2, 2)
	require.NoError(t, err)
	assert.Empty(t, raw)

	raw, err = arr.ReadRange(0, 5)
	require.NoError(t, err)
	assert.Len(t, raw, 5*arr.RecordSize())

	for _, r := range [][2]int{{-1, 2}, {3, 2}, {0, 6}} {
		_, err := arr.ReadRange(r[0], r[1])
		assert.ErrorIs(t, err, ErrOutOfRange, "range %v", r)
	}
}

func TestMissingChunkReadsZero(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fields := []Field{{Name: "v", Kind: KindFloat, ItemSize: 8}}
	buf, err := NewRecordBuffer(fields)
	require.NoError(t, err)
	require.NoError(t, buf.Append(map[string]interface{}{"v": 1.5}))
	require.NoError(t, WriteArray(fsys, "/a", buf, 1, nil))

	// Grow the declared shape without writing chunk 1.
	raw, err := fsys.ReadFile("/a/.zarray")
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	meta.Shape = []int{2}
	doc, _ := json.Marshal(meta)
	require.NoError(t, fsys.WriteFile("/a/.zarray", doc, 0644))

	arr, err := Open(fsys, "/a")
	require.NoError(t, err)
	recs, err := arr.Records(0, 2)
	require.NoError(t, err)

	v0, _ := recs[0].Float64("v")
	v1, _ := recs[1].Float64("v")
	assert.Equal(t, 1.5, v0)
	assert.Equal(t, 0.0, v1)
}

func TestChunkCache(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeScenes(t, fsys, "/ds/scenes", 8, 4, &Compressor{ID: "zstd"})

	arr, err := Open(fsys, "/ds/scenes", WithCacheSize(1))
	require.NoError(t, err)
	defer arr.Close()

	_, err = arr.ReadRange(0, 2)
	require.NoError(t, err)
	_, err = arr.ReadRange(2, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, fsys.ReadCount("/ds/scenes/0"), "chunk 0 should be served from cache")

	// Touching chunk 1 evicts chunk 0 from a one-entry cache.
	_, err = arr.ReadRange(4, 5)
	require.NoError(t, err)
	_, err = arr.ReadRange(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, fsys.ReadCount("/ds/scenes/0"))
	assert.Equal(t, 1, arr.cache.len())
}

func TestConcurrentReaders(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeScenes(t, fsys, "/ds/scenes", 40, 3, &Compressor{ID: "zstd"})
	arr, err := Open(fsys, "/ds/scenes", WithCacheSize(2))
	require.NoError(t, err)
	defer arr.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				recs, err := arr.Records(i, i+1)
				if err != nil {
					errs <- err
					return
				}
				host, _ := recs[0].String("host")
				if host != fmt.Sprintf("host-%d", i) {
					errs <- fmt.Errorf("worker %d: record %d host %q", w, i, host)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestOpen_Rejects(t *testing.T) {
	cases := map[string]string{
		"blosclz":    `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":{"id":"blosc","cname":"blosclz"},"order":"C","filters":null}`,
		"bitshuffle": `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":{"id":"blosc","cname":"lz4","shuffle":2},"order":"C","filters":null}`,
		"lzma":       `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":{"id":"lzma"},"order":"C","filters":null}`,
		"fill":       `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":null,"fill_value":"lots","order":"C"}`,
		"2d":         `{"zarr_format":2,"shape":[1,2],"chunks":[1,2],"dtype":"<f8","compressor":null,"order":"C"}`,
		"v3":         `{"zarr_format":3,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":null,"order":"C"}`,
		"filters":    `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<f8","compressor":null,"order":"C","filters":[{"id":"delta"}]}`,
		"chunks":     `{"zarr_format":2,"shape":[1],"chunks":[0],"dtype":"<f8","compressor":null,"order":"C"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fsutil.NewMemoryFileSystem()
			require.NoError(t, fsys.WriteFile("/a/.zarray", []byte(doc), 0644))
			_, err := Open(fsys, "/a")
			assert.Error(t, err)
		})
	}

	for _, name := range []string{"blosclz", "bitshuffle", "lzma"} {
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.WriteFile("/a/.zarray", []byte(cases[name]), 0644))
		_, err := Open(fsys, "/a")
		assert.ErrorIs(t, err, ErrUnsupportedCompressor, name)
	}

	fsys := fsutil.NewMemoryFileSystem()
	_, err := Open(fsys, "/missing")
	assert.Error(t, err)
}

func TestRecordAccessors(t *testing.T) {
	fields := []Field{
		{Name: "centroid", Kind: KindFloat, ItemSize: 8, Shape: []int{2}},
		{Name: "yaw", Kind: KindFloat, ItemSize: 4},
		{Name: "track_id", Kind: KindUint, ItemSize: 8},
		{Name: "big", Kind: KindInt, ItemSize: 4, BigEndian: true},
		{Name: "flag", Kind: KindBool, ItemSize: 1},
		{Name: "tag", Kind: KindBytes, ItemSize: 6},
	}
	buf, err := NewRecordBuffer(fields)
	require.NoError(t, err)
	require.NoError(t, buf.Append(map[string]interface{}{
		"centroid": []float64{1.25, -3.5},
		"yaw":      0.5,
		"track_id": uint64(1) << 63,
		"big":      int64(-7),
		"flag":     true,
		"tag":      "ab",
	}))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteArray(fsys, "/agents", buf, 8, nil))
	arr, err := Open(fsys, "/agents")
	require.NoError(t, err)
	recs, err := arr.Records(0, 1)
	require.NoError(t, err)
	rec := recs[0]

	c, err := rec.Float64s("centroid")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -3.5}, c)

	yaw, err := rec.Float64("yaw")
	require.NoError(t, err)
	assert.Equal(t, 0.5, yaw)

	id, err := rec.Uint64("track_id")
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63, id)

	big, err := rec.Int64("big")
	require.NoError(t, err)
	assert.Equal(t, int64(-7), big)

	flag, err := rec.Float64("flag")
	require.NoError(t, err)
	assert.Equal(t, 1.0, flag)

	tag, err := rec.String("tag")
	require.NoError(t, err)
	assert.Equal(t, "ab", tag)

	assert.True(t, rec.Has("yaw"))
	assert.False(t, rec.Has("velocity"))
	_, err = rec.Float64s("velocity")
	assert.ErrorIs(t, err, ErrNoField)
	_, err = rec.String("yaw")
	assert.Error(t, err)
	_, err = rec.Int64s("centroid")
	assert.Error(t, err)
}

func TestRecordBuffer_Errors(t *testing.T) {
	buf, err := NewRecordBuffer([]Field{
		{Name: "v", Kind: KindFloat, ItemSize: 8, Shape: []int{3}},
		{Name: "s", Kind: KindUnicode, ItemSize: 8},
	})
	require.NoError(t, err)

	assert.Error(t, buf.Append(map[string]interface{}{"v": []float64{1, 2}}))
	assert.Error(t, buf.Append(map[string]interface{}{"s": "abc"}))
	assert.Error(t, buf.Append(map[string]interface{}{"missing": 1.0}))
	assert.Error(t, buf.Append(map[string]interface{}{"v": struct{}{}}))
	assert.Equal(t, 0, buf.Len())

	_, err = NewRecordBuffer([]Field{{Name: "a", Kind: KindFloat, ItemSize: 8}, {Name: "a", Kind: KindFloat, ItemSize: 8}})
	assert.Error(t, err)
}

func TestGroupDetection(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteGroup(fsys, "/ds"))
	writeScenes(t, fsys, "/ds/scenes", 1, 1, nil)

	assert.True(t, IsGroup(fsys, "/ds"))
	assert.False(t, IsGroup(fsys, "/ds/scenes"))
	assert.True(t, IsArray(fsys, "/ds/scenes"))
}

func TestMissingChunkReadsFillValue(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	meta := `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f8",
		"compressor": null, "fill_value": -1.5, "order": "C", "filters": null}`
	require.NoError(t, fsys.WriteFile("/a/.zarray", []byte(meta), 0644))

	arr, err := Open(fsys, "/a")
	require.NoError(t, err)
	recs, err := arr.Records(0, 4)
	require.NoError(t, err)
	for _, rec := range recs {
		v, err := rec.Float64("")
		require.NoError(t, err)
		assert.Equal(t, -1.5, v)
	}
}

func TestParseFillValue(t *testing.T) {
	plain := func(typestr string) []Field {
		f, err := ParseTypeStr(typestr)
		require.NoError(t, err)
		return []Field{f}
	}

	t.Run("zero and null", func(t *testing.T) {
		for _, raw := range []string{``, `null`, `0`, `0.0`} {
			fill, err := parseFillValue(json.RawMessage(raw), plain("<f8"), 8)
			require.NoError(t, err, raw)
			assert.Nil(t, fill, raw)
		}
		fill, err := parseFillValue(json.RawMessage(`0`), sceneFields(t), 96)
		require.NoError(t, err)
		assert.Nil(t, fill)
	})

	t.Run("floats", func(t *testing.T) {
		fill, err := parseFillValue(json.RawMessage(`"NaN"`), plain("<f4"), 4)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(float64(math.Float32frombits(binary.LittleEndian.Uint32(fill)))))

		fill, err = parseFillValue(json.RawMessage(`"-Infinity"`), plain(">f8"), 8)
		require.NoError(t, err)
		assert.True(t, math.IsInf(math.Float64frombits(binary.BigEndian.Uint64(fill)), -1))
	})

	t.Run("integers and bools", func(t *testing.T) {
		fill, err := parseFillValue(json.RawMessage(`-2`), plain("<i2"), 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xfe, 0xff}, fill)

		fill, err = parseFillValue(json.RawMessage(`18446744073709551615`), plain("<u8"), 8)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{0xff}, 8), fill)

		fill, err = parseFillValue(json.RawMessage(`true`), plain("|b1"), 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{1}, fill)
	})

	t.Run("strings", func(t *testing.T) {
		fill, err := parseFillValue(json.RawMessage(`"YWI="`), plain("|S4"), 4)
		require.NoError(t, err)
		assert.Equal(t, []byte{'a', 'b', 0, 0}, fill)

		fill, err = parseFillValue(json.RawMessage(`"x"`), plain("<U2"), 8)
		require.NoError(t, err)
		assert.Equal(t, []byte{'x', 0, 0, 0, 0, 0, 0, 0}, fill)
	})

	t.Run("structured", func(t *testing.T) {
		fields := []Field{{Name: "a", Kind: KindInt, ItemSize: 2}, {Name: "b", Kind: KindUint, ItemSize: 1}}
		size := Layout(fields)
		raw, _ := json.Marshal(base64.StdEncoding.EncodeToString([]byte{7, 0, 9}))
		fill, err := parseFillValue(raw, fields, size)
		require.NoError(t, err)
		assert.Equal(t, []byte{7, 0, 9}, fill)

		raw, _ = json.Marshal(base64.StdEncoding.EncodeToString([]byte{7, 0}))
		_, err = parseFillValue(raw, fields, size)
		assert.Error(t, err)
	})

	t.Run("errors", func(t *testing.T) {
		bad := []struct {
			raw     string
			typestr string
		}{
			{`"lots"`, "<f8"},
			{`1.5`, "<i4"},
			{`-1`, "<u4"},
			{`"maybe"`, "|b1"},
			{`"!!"`, "|S4"},
			{`"toolong"`, "<U2"},
		}
		for _, b := range bad {
			f := plain(b.typestr)
			_, err := parseFillValue(json.RawMessage(b.raw), f, f[0].Size())
			assert.Error(t, err, "%s as %s", b.raw, b.typestr)
		}
	})
}

func TestFillChunk(t *testing.T) {
	assert.Equal(t, make([]byte, 6), fillChunk(nil, 3, 2))
	assert.Equal(t, []byte{1, 2, 1, 2, 1, 2}, fillChunk([]byte{1, 2}, 3, 2))
}

func TestParseCompressor(t *testing.T) {
	c, err := ParseCompressor("none", "", 3)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = ParseCompressor("zstd", "", 3)
	require.NoError(t, err)
	assert.Equal(t, &Compressor{ID: "zstd", Level: 3}, c)

	c, err = ParseCompressor("blosc", "", 5)
	require.NoError(t, err)
	assert.Equal(t, &Compressor{ID: "blosc", CName: "lz4", CLevel: 5, Shuffle: BloscShuffle}, c)

	doc, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"blosc","cname":"lz4","clevel":5,"shuffle":1}`, string(doc))

	_, err = ParseCompressor("blosc", "blosclz", 5)
	assert.ErrorIs(t, err, ErrUnsupportedCompressor)
	_, err = ParseCompressor("lzma", "", 5)
	assert.ErrorIs(t, err, ErrUnsupportedCompressor)
}
