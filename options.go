package sstable

// options.go implements configuration for building and reading table files.

import (
	"github.com/blockkv/sstable/internal/compression"
	"github.com/blockkv/sstable/internal/logging"
	"github.com/blockkv/sstable/internal/vfs"
)

// Logger is an alias for the logging.Logger interface.
// This allows users to pass their own logger implementation.
type Logger = logging.Logger

// CompressionType is an alias for the compression type.
type CompressionType = compression.Type

// Compression type constants recognized by the table builder. The on-disk
// block trailer's type byte only ever encodes one of these two values; the
// wider compression.Type enumeration exists for callers composing their own
// block formats on top of a table, not for the table itself.
const (
	CompressionNone   = compression.NoCompression
	CompressionSnappy = compression.SnappyCompression
)

// Options configures a reader opened against a table file with
// OpenSstFileReader; an SstFileWriter is configured with
// SstFileWriterOptions instead. Fields beyond
// Comparator/BlockSize/BlockRestartInterval/Compression are ambient: they
// have no bearing on the bytes written to disk.
type Options struct {
	// Comparator defines the order of keys in the table. If nil, a default
	// bytewise comparator is used.
	Comparator Comparator

	// BlockSize is the target uncompressed size of data blocks.
	// Default: 4096.
	BlockSize int

	// BlockRestartInterval is how often to create restart points in data
	// blocks. The index block always restarts every entry.
	// Default: 16.
	BlockRestartInterval int

	// Compression selects the codec applied to data blocks. Only
	// CompressionNone and CompressionSnappy are valid; the index block is
	// always stored uncompressed.
	// Default: CompressionNone.
	Compression CompressionType

	// VerifyChecksums enables CRC32C verification on every block read, not
	// just the index block read at open time.
	// Default: false.
	VerifyChecksums bool

	// FS is the filesystem implementation used to create and open table
	// files. If nil, the OS filesystem is used.
	FS vfs.FS

	// Logger receives diagnostic messages emitted while building or opening
	// a table. If nil, a default logger writing to stderr is used.
	Logger Logger
}

// DefaultOptions returns an Options with default values.
func DefaultOptions() *Options {
	return &Options{
		Comparator:           nil, // Will use BytewiseComparator
		BlockSize:            4096,
		BlockRestartInterval: 16,
		Compression:          CompressionNone,
		VerifyChecksums:      false,
		FS:                   nil, // Will use vfs.Default()
		Logger:               nil, // Will use a default logger
	}
}
