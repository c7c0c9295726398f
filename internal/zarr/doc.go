// Package zarr reads and writes one-dimensional zarr v2 arrays of
// fixed-size structured records.
//
// Only the subset of the format used by driving-scene datasets is
// supported: a 1-D shape, structured (numpy record) dtypes whose fields are
// numeric, boolean or fixed-width string scalars or sub-arrays, and chunks
// stored uncompressed or compressed with zstd, zlib, gzip or blosc. Blosc
// frames may use the lz4, lz4hc, zstd, zlib or snappy codecs with or
// without byte shuffling; blosclz and bit-shuffle are rejected. Missing
// chunks read as the array's fill_value.
//
// All file access goes through fsutil.FileSystem so stores can be built in
// memory for tests.
package zarr
