package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a stored blob is encoded. The value is written
// as the first byte of every stored blob and must never change.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// String returns the configuration name of c.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a configuration name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (supported: none, lz4, zstd)", name)
	}
}

// maxBlobSize bounds decoded blobs.
const maxBlobSize = 16 << 20

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlobSize))
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

// BlobCodec encodes context blobs for storage. Encoded blobs are
// self-describing, so Decode reads any compression regardless of the
// codec's own setting.
type BlobCodec struct {
	compression Compression
}

// NewBlobCodec returns a codec that writes with compression c.
func NewBlobCodec(c Compression) BlobCodec {
	return BlobCodec{compression: c}
}

// Compression returns the write setting.
func (b BlobCodec) Compression() Compression {
	return b.compression
}

// Encode returns the stored form of blob. Nil and empty blobs encode to nil.
// Blobs that do not shrink are stored uncompressed.
func (b BlobCodec) Encode(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	switch b.compression {
	case CompressionNone:
	case CompressionLZ4:
		if out, ok := encodeLZ4(blob); ok {
			return out, nil
		}
	case CompressionZstd:
		out := zstdEncoder.EncodeAll(blob, []byte{byte(CompressionZstd)})
		if len(out) < len(blob)+1 {
			return out, nil
		}
	default:
		return nil, fmt.Errorf("unsupported compression %s", b.compression)
	}
	out := make([]byte, 0, len(blob)+1)
	out = append(out, byte(CompressionNone))
	return append(out, blob...), nil
}

// Decode reverses Encode.
func (b BlobCodec) Decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, nil
	}
	payload := stored[1:]
	switch Compression(stored[0]) {
	case CompressionNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case CompressionLZ4:
		return decodeLZ4(payload)
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown blob compression tag %d", stored[0])
	}
}

// LZ4 blobs are tag, uvarint uncompressed size, block.
func encodeLZ4(blob []byte) ([]byte, bool) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	header[0] = byte(CompressionLZ4)
	n := 1 + binary.PutUvarint(header[1:], uint64(len(blob)))

	out := make([]byte, n+lz4.CompressBlockBound(len(blob)))
	copy(out, header[:n])
	written, err := lz4.CompressBlock(blob, out[n:], nil)
	if err != nil || written == 0 || n+written >= len(blob)+1 {
		return nil, false
	}
	return out[:n+written], true
}

var errCorruptBlob = errors.New("corrupt lz4 blob")

func decodeLZ4(payload []byte) ([]byte, error) {
	size, n := binary.Uvarint(payload)
	if n <= 0 || size > maxBlobSize {
		return nil, errCorruptBlob
	}
	out := make([]byte, size)
	read, err := lz4.UncompressBlock(payload[n:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(read) != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return out, nil
}
