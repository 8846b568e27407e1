package seekable

import (
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/compress"
	"github.com/dovreshef/clickhouse-rowbinary/internal/options"
)

const (
	// DefaultRowsPerFrame is the row-count flush threshold.
	DefaultRowsPerFrame = 8192
	// DefaultBytesPerFrame is the uncompressed-size flush threshold.
	DefaultBytesPerFrame = 1024 * 1024
)

type writerConfig struct {
	rowsPerFrame  int
	bytesPerFrame int
	codec         compress.Codec
}

func defaultWriterConfig() *writerConfig {
	return &writerConfig{
		rowsPerFrame:  DefaultRowsPerFrame,
		bytesPerFrame: DefaultBytesPerFrame,
		codec:         compress.NewZstdCodec(),
	}
}

// WriterOption configures a Writer at construction time.
type WriterOption = options.Option[*writerConfig]

// WithRowsPerFrame overrides the row-count flush threshold.
func WithRowsPerFrame(n int) WriterOption {
	return options.New(func(c *writerConfig) error {
		if n < 1 {
			return fmt.Errorf("seekable: rows per frame must be >= 1, got %d", n)
		}
		c.rowsPerFrame = n

		return nil
	})
}

// WithBytesPerFrame overrides the uncompressed-bytes flush threshold.
func WithBytesPerFrame(n int) WriterOption {
	return options.New(func(c *writerConfig) error {
		if n < 1 {
			return fmt.Errorf("seekable: bytes per frame must be >= 1, got %d", n)
		}
		c.bytesPerFrame = n

		return nil
	})
}

// WithCodec overrides the frame compression codec; intended for tests that
// want a cheaper codec than Zstd.
func WithCodec(c compress.Codec) WriterOption {
	return options.New(func(cfg *writerConfig) error {
		cfg.codec = c

		return nil
	})
}
