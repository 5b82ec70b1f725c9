package ledger

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	compressionNone = "none"
	compressionZstd = "zstd"
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("ledger: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("ledger: zstd decoder initialization failed: " + err.Error())
	}
}

// compressBody returns the bytes to store and the compression used.
// Bodies that do not shrink are stored as-is.
func compressBody(body []byte) ([]byte, string) {
	compressed := zstdEncoder.EncodeAll(body, make([]byte, 0, len(body)))
	if len(compressed) >= len(body) {
		return body, compressionNone
	}
	return compressed, compressionZstd
}

func decompressBody(stored []byte, compression string, size int) ([]byte, error) {
	switch compression {
	case compressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("stored body is %d bytes, expected %d", len(stored), size)
		}
		return stored, nil
	case compressionZstd:
		body, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(body) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(body), size)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %q", compression)
	}
}
