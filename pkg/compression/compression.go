package compression

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm for page payloads
type Algorithm int

const (
	// AlgorithmNone stores page payloads uncompressed
	AlgorithmNone Algorithm = iota
	// AlgorithmSnappy is fast compression with moderate ratio
	AlgorithmSnappy
	// AlgorithmZstd is balanced compression with good speed and ratio
	AlgorithmZstd
	// AlgorithmGzip is standard compression with good ratio
	AlgorithmGzip
	// AlgorithmZlib is similar to gzip
	AlgorithmZlib
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmZlib:
		return "zlib"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration string to an Algorithm
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "none":
		return AlgorithmNone, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "zstd":
		return AlgorithmZstd, nil
	case "gzip":
		return AlgorithmGzip, nil
	case "zlib":
		return AlgorithmZlib, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm %q", s)
	}
}

// Config holds compression configuration
type Config struct {
	Algorithm Algorithm
	Level     int // Compression level (meaning varies by algorithm)
}

// DefaultConfig returns the default configuration: uncompressed pages
func DefaultConfig() *Config {
	return &Config{Algorithm: AlgorithmNone}
}

// ZstdConfig returns configuration for Zstd
func ZstdConfig(level int) *Config {
	if level < 1 || level > 19 {
		level = 3
	}
	return &Config{Algorithm: AlgorithmZstd, Level: level}
}

// SnappyConfig returns configuration for Snappy
func SnappyConfig() *Config {
	return &Config{Algorithm: AlgorithmSnappy}
}

// GzipConfig returns configuration for Gzip
func GzipConfig(level int) *Config {
	if level < gzip.NoCompression || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &Config{Algorithm: AlgorithmGzip, Level: level}
}

// Compressor compresses page payloads with the configured algorithm and
// decompresses payloads written under any algorithm, so a database stays
// readable after its compression setting changes.
type Compressor struct {
	config  *Config
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

// NewCompressor creates a new compressor with the given configuration
func NewCompressor(config *Config) (*Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Compressor{config: config}

	if config.Algorithm == AlgorithmZstd {
		var err error
		c.zstdEnc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(config.Level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// Decoder is always available: existing files may be zstd regardless
	// of the configured write algorithm.
	var err error
	c.zstdDec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return c, nil
}

// Algorithm returns the algorithm used for new payloads
func (c *Compressor) Algorithm() Algorithm {
	return c.config.Algorithm
}

// Compress compresses the input data with the configured algorithm
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.config.Algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil

	case AlgorithmZstd:
		return c.zstdEnc.EncodeAll(data, nil), nil

	case AlgorithmGzip:
		var buf bytes.Buffer
		writer, err := gzip.NewWriterLevel(&buf, c.config.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write gzip data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil

	case AlgorithmZlib:
		var buf bytes.Buffer
		writer, err := zlib.NewWriterLevel(&buf, c.config.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib writer: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write zlib data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close zlib writer: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %v", c.config.Algorithm)
	}
}

// Decompress decompresses data written under the given algorithm
func (c *Compressor) Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snappy: %w", err)
		}
		return decoded, nil

	case AlgorithmZstd:
		decoded, err := c.zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode zstd: %w", err)
		}
		return decoded, nil

	case AlgorithmGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, reader); err != nil {
			return nil, fmt.Errorf("failed to read gzip data: %w", err)
		}
		return buf.Bytes(), nil

	case AlgorithmZlib:
		reader, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader: %w", err)
		}
		defer reader.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, reader); err != nil {
			return nil, fmt.Errorf("failed to read zlib data: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %v", algorithm)
	}
}

// Close releases encoder resources
func (c *Compressor) Close() error {
	if c.zstdEnc != nil {
		c.zstdEnc.Close()
	}
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
	return nil
}
