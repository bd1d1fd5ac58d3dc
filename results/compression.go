package results

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how report bytes are stored.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZSTD Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression parses a compression name. The empty string selects zstd.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "":
		return CompressionZSTD, nil
	case CompressionNone, CompressionZSTD, CompressionLZ4:
		return Compression(s), nil
	default:
		return "", fmt.Errorf("results: unknown compression %q", s)
	}
}

func (c Compression) extension() string {
	switch c {
	case CompressionZSTD:
		return ".json.zst"
	case CompressionLZ4:
		return ".json.lz4"
	default:
		return ".json"
	}
}

var errCorrupt = errors.New("results: corrupt compressed report")

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// lz4 blobs carry [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize == 0 means the data is stored raw.
const lz4HeaderSize = 8

// lz4MaxRatio bounds the expansion of one lz4 block.
const lz4MaxRatio = 255

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		return compressLZ4(data)
	default:
		return data, nil
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, err
	}

	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if n == 0 || n >= len(data) {
		// Incompressible
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[lz4HeaderSize:], data)
		return out[:lz4HeaderSize+len(data)], nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	return out[:lz4HeaderSize+n], nil
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errCorrupt, err)
		}
		return out, nil
	case CompressionLZ4:
		return decompressLZ4(data)
	default:
		return data, nil
	}
}

func decompressLZ4(data []byte) ([]byte, error) {
	if len(data) < lz4HeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", errCorrupt)
	}
	size := binary.LittleEndian.Uint32(data[0:])
	csize := binary.LittleEndian.Uint32(data[4:])
	body := data[lz4HeaderSize:]

	if csize == 0 {
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: raw size mismatch", errCorrupt)
		}
		return body, nil
	}
	if uint32(len(body)) != csize {
		return nil, fmt.Errorf("%w: compressed size mismatch", errCorrupt)
	}

	if uint64(size) > uint64(csize)*lz4MaxRatio {
		return nil, fmt.Errorf("%w: declared size %d exceeds lz4 ratio for %d bytes", errCorrupt, size, csize)
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	if uint32(n) != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", errCorrupt)
	}
	return out, nil
}
