// Package table provides SST file reading and writing.
//
// TableBuilder writes an immutable, sorted table of key-value pairs as a
// sequence of data blocks followed by an index block and a fixed footer.
//
// Reference: table/table_builder.h / table/table_builder.cc
package table

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/blockkv/sstable/internal/block"
	"github.com/blockkv/sstable/internal/checksum"
	"github.com/blockkv/sstable/internal/compression"
	"github.com/blockkv/sstable/internal/logging"
)

// ErrBuilderFinished is returned by Add and Finish when the builder has
// already been finished or abandoned.
var ErrBuilderFinished = errors.New("table: builder already finished")

// Comparator is the subset of the key-ordering contract the table layer
// depends on: ordering entries and shortening index separators.
type Comparator interface {
	Compare(a, b []byte) int
	Name() string
	FindShortestSeparator(a, b []byte) []byte
	FindShortSuccessor(a []byte) []byte
}

// BuilderOptions configures a TableBuilder.
type BuilderOptions struct {
	// BlockSize is the target uncompressed size for data blocks.
	BlockSize int

	// BlockRestartInterval is the number of keys between restart points in
	// data blocks. The index block always uses a restart interval of 1.
	BlockRestartInterval int

	// Compression is applied to data blocks only; the index block is always
	// stored uncompressed so it can be read without decompressing it first.
	// Only compression.NoCompression and compression.SnappyCompression are
	// valid here — the on-disk trailer's type byte has exactly two defined
	// values.
	Compression compression.Type

	// Comparator orders keys and produces index separators. Defaults to a
	// plain bytewise comparator if nil.
	Comparator Comparator

	// Logger receives diagnostic messages at build boundaries. A nil Logger
	// is replaced by a default INFO-level logger writing to stderr.
	Logger logging.Logger
}

// DefaultBuilderOptions returns the default TableBuilder configuration.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		BlockSize:            4096,
		BlockRestartInterval: 16,
		Compression:          compression.NoCompression,
	}
}

func (o *BuilderOptions) normalize() error {
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	if o.Compression != compression.NoCompression && o.Compression != compression.SnappyCompression {
		return fmt.Errorf("table: unsupported core compression type %s", o.Compression)
	}
	if o.Comparator == nil {
		o.Comparator = defaultComparator{}
	}
	if logging.IsNil(o.Logger) {
		o.Logger = logging.NewDefaultLogger(logging.LevelInfo)
	}
	return nil
}

// defaultComparator is used when no Comparator is supplied.
type defaultComparator struct{}

func (defaultComparator) Compare(a, b []byte) int { return bytesCompare(a, b) }
func (defaultComparator) Name() string            { return "bytewise" }
func (defaultComparator) FindShortestSeparator(a, b []byte) []byte {
	return a
}
func (defaultComparator) FindShortSuccessor(a []byte) []byte { return a }

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// TableBuilder builds an SSTable file, writing data blocks as entries
// arrive and the index block and footer once Finish is called.
type TableBuilder struct {
	writer  io.Writer
	options BuilderOptions

	dataBlock  *block.Builder
	indexBlock *block.Builder

	// pendingIndexEntry defers writing an index entry for the just-flushed
	// data block until the first key of the *next* block is known, so the
	// separator can be shortened between the two.
	pendingIndexEntry bool
	pendingHandle     block.Handle
	lastKey           []byte

	offset uint64

	numEntries    uint64
	numDataBlocks uint64

	finished bool
	err      error
}

// NewTableBuilder creates a TableBuilder that writes to w.
func NewTableBuilder(w io.Writer, opts BuilderOptions) (*TableBuilder, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	return &TableBuilder{
		writer:     w,
		options:    opts,
		dataBlock:  block.NewBuilder(opts.BlockRestartInterval),
		indexBlock: block.NewBuilder(1), // index uses restart interval of 1
	}, nil
}

// Add adds a key-value pair to the table. Keys must be added in
// non-decreasing order according to the builder's Comparator.
func (tb *TableBuilder) Add(key, value []byte) error {
	if tb.finished {
		return ErrBuilderFinished
	}
	if tb.err != nil {
		return tb.err
	}

	if tb.pendingIndexEntry {
		separator := tb.options.Comparator.FindShortestSeparator(tb.lastKey, key)
		tb.indexBlock.Add(separator, tb.pendingHandle.EncodeToSlice())
		tb.pendingIndexEntry = false
	}

	tb.dataBlock.Add(key, value)
	tb.numEntries++
	tb.lastKey = append(tb.lastKey[:0], key...)

	if tb.dataBlock.EstimatedSize() >= tb.options.BlockSize {
		if err := tb.flushDataBlock(); err != nil {
			tb.err = err
			return err
		}
	}

	return nil
}

// flushDataBlock writes the current data block to the file and defers its
// index entry until the next key (or Finish) is known.
func (tb *TableBuilder) flushDataBlock() error {
	if tb.dataBlock.Empty() {
		return nil
	}

	handle, err := tb.writeBlock(tb.dataBlock.Finish(), tb.options.Compression)
	if err != nil {
		return err
	}
	tb.numDataBlocks++

	tb.pendingHandle = handle
	tb.pendingIndexEntry = true

	tb.dataBlock.Reset()
	return nil
}

// writeBlock compresses (if requested), writes, and checksums a single
// block, returning its handle.
func (tb *TableBuilder) writeBlock(blockData []byte, want compression.Type) (block.Handle, error) {
	payload := blockData
	compressionType := block.CompressionNone

	if want == compression.SnappyCompression {
		compressed, err := compression.Compress(compression.SnappyCompression, blockData)
		if err == nil && len(compressed) < len(blockData)*7/8 {
			payload = compressed
			compressionType = block.CompressionSnappy
		}
	}

	handle := block.Handle{Offset: tb.offset, Size: uint64(len(payload))}

	n, err := tb.writer.Write(payload)
	if err != nil {
		return block.Handle{}, err
	}
	tb.offset += uint64(n)

	trailer := make([]byte, block.BlockTrailerSize)
	trailer[0] = byte(compressionType)
	cksum := checksum.MaskedExtend(checksum.Value(payload), trailer[:1])
	binary.LittleEndian.PutUint32(trailer[1:], cksum)

	n, err = tb.writer.Write(trailer)
	if err != nil {
		return block.Handle{}, err
	}
	tb.offset += uint64(n)

	return handle, nil
}

// Finish flushes any buffered data, writes the index block and footer, and
// marks the builder finished. After Finish returns successfully the
// underlying writer holds a complete, readable table.
func (tb *TableBuilder) Finish() error {
	if tb.finished {
		return ErrBuilderFinished
	}
	if tb.err != nil {
		return tb.err
	}
	tb.finished = true

	if err := tb.flushDataBlock(); err != nil {
		tb.err = err
		return err
	}

	if tb.pendingIndexEntry {
		successor := tb.options.Comparator.FindShortSuccessor(tb.lastKey)
		tb.indexBlock.Add(successor, tb.pendingHandle.EncodeToSlice())
		tb.pendingIndexEntry = false
	}

	indexHandle, err := tb.writeBlock(tb.indexBlock.Finish(), compression.NoCompression)
	if err != nil {
		tb.err = err
		return err
	}

	footer := block.Footer{IndexHandle: indexHandle}
	footerData := footer.EncodeTo(nil)
	n, err := tb.writer.Write(footerData)
	if err != nil {
		tb.err = err
		return err
	}
	tb.offset += uint64(n)

	tb.options.Logger.Infof(logging.NSBuild+"finished build, %d entries across %d data blocks, %d bytes",
		tb.numEntries, tb.numDataBlocks, tb.offset)

	return nil
}

// Abandon discards the builder. After Abandon the TableBuilder must not be
// used; the underlying writer may hold a partial, unusable file.
func (tb *TableBuilder) Abandon() {
	tb.finished = true
}

// NumEntries returns the number of entries added so far.
func (tb *TableBuilder) NumEntries() uint64 {
	return tb.numEntries
}

// FileSize returns the number of bytes written to the underlying writer so
// far.
func (tb *TableBuilder) FileSize() uint64 {
	return tb.offset
}

// Status returns the first error encountered while building, if any.
func (tb *TableBuilder) Status() error {
	return tb.err
}
