package r2client

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ZstdExt is the suffix marking zstd-compressed objects and files.
const ZstdExt = ".zst"

// MaxDecompressedSize bounds Decompress output.
const MaxDecompressedSize = 32 << 20

// IsCompressed reports whether name carries the zstd suffix.
func IsCompressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ZstdExt)
}

// Compress zstd-encodes src into dst.
func Compress(dst io.Writer, src io.Reader) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// CompressBytes is Compress for in-memory data.
func CompressBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Compress(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reads a zstd stream fully, refusing output larger than
// MaxDecompressedSize.
func Decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(io.LimitReader(dec, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(data) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompress: output exceeds %d bytes", MaxDecompressedSize)
	}
	return data, nil
}
