package rdb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return CompressionUnknown, fmt.Errorf("compression not supported (%q)", s)
}

// codec compresses block payloads. A zstd encoder and decoder are created
// once and reused for every block; both are safe for concurrent use with
// EncodeAll/DecodeAll.
type codec struct {
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

func newCodec(compression Compression) (*codec, error) {
	c := &codec{compression: compression}
	switch compression {
	case CompressionNone, CompressionGzip:
	case CompressionZstd:
		var err error
		if c.encoder, err = zstd.NewWriter(nil); err != nil {
			return nil, err
		}
		if c.decoder, err = zstd.NewReader(nil); err != nil {
			c.encoder.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("compression not supported (%v)", compression)
	}
	return c, nil
}

func (c *codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

func (c *codec) Compress(data []byte) ([]byte, error) {
	switch c.compression {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return c.encoder.EncodeAll(data, nil), nil
	}

	var buffer bytes.Buffer
	writer, _ := gzip.NewWriterLevel(&buffer, gzip.BestSpeed)

	_, err := writer.Write(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}

	return buffer.Bytes(), nil
}

func (c *codec) Decompress(data []byte) ([]byte, error) {
	switch c.compression {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		result, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress: %w", err)
		}
		return result, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	return result, nil
}
