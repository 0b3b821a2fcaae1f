package sstable

// sst_file_writer.go implements SstFileWriter, the public entry point for
// building a table file on disk.

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blockkv/sstable/internal/logging"
	"github.com/blockkv/sstable/internal/table"
	"github.com/blockkv/sstable/internal/vfs"
)

var (
	// ErrSstWriterNotOpened is returned by Put and Finish when Open has not
	// been called yet.
	ErrSstWriterNotOpened = errors.New("sstable: writer not opened")

	// ErrSstWriterAlreadyOpened is returned by Open when the writer already
	// has an open destination file.
	ErrSstWriterAlreadyOpened = errors.New("sstable: writer already opened")

	// ErrSstWriterKeyOutOfOrder is returned by Put when a key is not
	// strictly greater than the previously written key.
	ErrSstWriterKeyOutOfOrder = errors.New("sstable: keys must be added in strictly ascending order")

	// ErrSstWriterEmpty is returned by Finish when no entries were added.
	ErrSstWriterEmpty = errors.New("sstable: cannot finish an empty table")
)

// SstFileWriterOptions configures an SstFileWriter.
type SstFileWriterOptions struct {
	Comparator           Comparator
	BlockSize            int
	BlockRestartInterval int
	Compression          CompressionType
	FS                   vfs.FS
	Logger               Logger
}

// DefaultSstFileWriterOptions returns the default SstFileWriterOptions.
func DefaultSstFileWriterOptions() SstFileWriterOptions {
	return SstFileWriterOptions{
		BlockSize:            4096,
		BlockRestartInterval: 16,
		Compression:          CompressionNone,
	}
}

// FileInfo summarizes a finished table file.
type FileInfo struct {
	// NumEntries is the number of key-value pairs written.
	NumEntries uint64

	// FileSize is the total size in bytes of the finished file.
	FileSize uint64

	// SmallestKey is the first key written.
	SmallestKey []byte

	// LargestKey is the last key written.
	LargestKey []byte
}

// SstFileWriter builds a single immutable table file. Keys must be put in
// strictly ascending order; a writer is single-owner and not safe for
// concurrent use.
type SstFileWriter struct {
	opts       SstFileWriterOptions
	comparator Comparator
	fs         vfs.FS
	logger     Logger

	path    string
	file    vfs.WritableFile
	builder *table.TableBuilder

	opened      bool
	smallestKey []byte
	largestKey  []byte
}

// NewSstFileWriter creates an SstFileWriter with the given options.
func NewSstFileWriter(opts SstFileWriterOptions) *SstFileWriter {
	comparator := opts.Comparator
	if comparator == nil {
		comparator = DefaultComparator()
	}
	fs := opts.FS
	if fs == nil {
		fs = vfs.Default()
	}
	logger := opts.Logger
	if logging.IsNil(logger) {
		logger = logging.NewDefaultLogger(logging.LevelInfo)
	}

	return &SstFileWriter{
		opts:       opts,
		comparator: comparator,
		fs:         fs,
		logger:     logger,
	}
}

// Open creates (truncating if necessary) the table file at path and
// prepares the writer to accept entries.
func (w *SstFileWriter) Open(path string) error {
	if w.opened {
		return ErrSstWriterAlreadyOpened
	}

	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("sstable: create %s: %w", path, err)
	}

	builderOpts := table.DefaultBuilderOptions()
	builderOpts.BlockSize = w.opts.BlockSize
	builderOpts.BlockRestartInterval = w.opts.BlockRestartInterval
	builderOpts.Compression = w.opts.Compression
	builderOpts.Comparator = tableComparator{w.comparator}
	builderOpts.Logger = w.logger

	builder, err := table.NewTableBuilder(f, builderOpts)
	if err != nil {
		_ = f.Close()
		return err
	}

	w.path = path
	w.file = f
	w.builder = builder
	w.opened = true
	w.smallestKey = nil
	w.largestKey = nil
	return nil
}

// Put adds a key-value pair. Keys must be strictly greater than every key
// previously added to this writer.
func (w *SstFileWriter) Put(key, value []byte) error {
	if !w.opened {
		return ErrSstWriterNotOpened
	}
	if w.largestKey != nil && w.comparator.Compare(key, w.largestKey) <= 0 {
		return ErrSstWriterKeyOutOfOrder
	}

	if err := w.builder.Add(key, value); err != nil {
		return err
	}

	if w.smallestKey == nil {
		w.smallestKey = bytes.Clone(key)
	}
	w.largestKey = bytes.Clone(key)
	return nil
}

// Finish flushes remaining data, writes the index block and footer, closes
// the destination file, and returns a summary of the finished table.
func (w *SstFileWriter) Finish() (*FileInfo, error) {
	if !w.opened {
		return nil, ErrSstWriterNotOpened
	}
	if w.builder.NumEntries() == 0 {
		_ = w.file.Close()
		w.opened = false
		return nil, ErrSstWriterEmpty
	}

	if err := w.builder.Finish(); err != nil {
		_ = w.file.Close()
		w.opened = false
		return nil, err
	}

	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		w.opened = false
		return nil, fmt.Errorf("sstable: sync %s: %w", w.path, err)
	}

	fileSize := w.builder.FileSize()
	numEntries := w.builder.NumEntries()
	smallest, largest := w.smallestKey, w.largestKey

	if err := w.file.Close(); err != nil {
		w.opened = false
		return nil, fmt.Errorf("sstable: close %s: %w", w.path, err)
	}

	w.opened = false
	w.logger.Infof(logging.NSBuild+"wrote %s: %d entries, %d bytes", w.path, numEntries, fileSize)

	return &FileInfo{
		NumEntries:  numEntries,
		FileSize:    fileSize,
		SmallestKey: smallest,
		LargestKey:  largest,
	}, nil
}

// Abandon discards the writer without finishing the file. The partially
// written file, if any, is closed but left on disk in an unusable state.
func (w *SstFileWriter) Abandon() {
	if !w.opened {
		return
	}
	w.builder.Abandon()
	_ = w.file.Close()
	w.opened = false
}

// tableComparator adapts the public Comparator interface to the table
// package's locally declared Comparator, avoiding an import cycle.
type tableComparator struct {
	Comparator
}
