// reader.go implements reading of a finished SSTable file: the footer,
// the index block, and two-level lookups into data blocks.
//
// Reference: table/table.h / table/table.cc
package table

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/blockkv/sstable/internal/block"
	"github.com/blockkv/sstable/internal/checksum"
	"github.com/blockkv/sstable/internal/compression"
	"github.com/blockkv/sstable/internal/digest"
)

var (
	// ErrInvalidTable is returned by Open when the file is too short to hold
	// a footer. A bad magic number, a malformed index handle or a corrupt
	// index block is reported with its own error instead.
	ErrInvalidTable = errors.New("table: invalid table file")

	// ErrChecksumMismatch is returned when a block's stored checksum does
	// not match its contents.
	ErrChecksumMismatch = errors.New("table: block checksum mismatch")

	// ErrNotFound is returned by Get when the key is absent from the table.
	ErrNotFound = errors.New("table: key not found")
)

// ReaderAt is the random-access source a Reader is built on.
type ReaderAt interface {
	io.ReaderAt
}

// ReaderOptions configures how a table is opened.
type ReaderOptions struct {
	// Comparator orders keys during lookups. Defaults to bytewise.
	Comparator Comparator

	// VerifyChecksums re-verifies every block's CRC32C on read, not just
	// the index block read at Open time.
	VerifyChecksums bool
}

// Reader provides read access to a single SSTable file.
type Reader struct {
	src        ReaderAt
	size       int64
	opts       ReaderOptions
	footer     block.Footer
	indexBlock *block.Block
	indexRaw   []byte // raw index block bytes, kept for Fingerprint
}

// Open reads the footer and index block of src (a file of the given size)
// and returns a Reader ready to serve Get/NewIterator calls.
func Open(src ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if opts.Comparator == nil {
		opts.Comparator = defaultComparator{}
	}
	if size < int64(block.EncodedLength) {
		return nil, ErrInvalidTable
	}

	footerBuf := make([]byte, block.EncodedLength)
	if _, err := src.ReadAt(footerBuf, size-int64(block.EncodedLength)); err != nil {
		return nil, fmt.Errorf("table: read footer: %w", err)
	}

	footer, err := block.DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	indexRaw, err := readBlock(src, footer.IndexHandle, true)
	if err != nil {
		return nil, fmt.Errorf("table: read index block: %w", err)
	}

	indexBlock, err := block.NewBlock(indexRaw)
	if err != nil {
		return nil, fmt.Errorf("table: parse index block: %w", err)
	}

	return &Reader{
		src:        src,
		size:       size,
		opts:       opts,
		footer:     footer,
		indexBlock: indexBlock,
		indexRaw:   indexRaw,
	}, nil
}

// readBlock reads, checksums, and decompresses the block addressed by h.
func readBlock(src ReaderAt, h block.Handle, verify bool) ([]byte, error) {
	buf := make([]byte, h.Size+block.BlockTrailerSize)
	if _, err := src.ReadAt(buf, int64(h.Offset)); err != nil {
		return nil, err
	}

	payload := buf[:h.Size]
	trailer := buf[h.Size:]
	compressionType := block.CompressionType(trailer[0])

	if verify {
		want := binary.LittleEndian.Uint32(trailer[1:])
		got := checksum.MaskedExtend(checksum.Value(payload), trailer[:1])
		if got != want {
			return nil, ErrChecksumMismatch
		}
	}

	switch compressionType {
	case block.CompressionNone:
		return payload, nil
	case block.CompressionSnappy:
		return compression.Decompress(compression.SnappyCompression, payload)
	default:
		return nil, fmt.Errorf("table: unknown block compression type %d", compressionType)
	}
}

// Fingerprint returns a fast, order-sensitive hash of the table's index
// block. Two tables with the same fingerprint were very likely built from
// the same sorted key-value stream; it is not a substitute for verifying
// per-block checksums.
func (r *Reader) Fingerprint() (uint64, error) {
	return digest.Fingerprint(r.indexRaw), nil
}

// Get returns the value associated with key, or ErrNotFound.
func (r *Reader) Get(key []byte) ([]byte, error) {
	it := r.NewIterator()
	it.Seek(key)
	if !it.Valid() {
		if err := it.Error(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	if r.opts.Comparator.Compare(it.Key(), key) != 0 {
		return nil, ErrNotFound
	}
	value := it.Value()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Iterator walks entries across the whole table in key order, transparently
// crossing data block boundaries via the index block.
type Iterator struct {
	r         *Reader
	indexIter *block.Iterator
	dataIter  *block.Iterator
	err       error
}

// NewIterator returns an iterator positioned before the first entry.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{
		r:         r,
		indexIter: r.indexBlock.NewIteratorWithComparator(r.opts.Comparator),
	}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.dataIter != nil && it.dataIter.Valid()
}

// Key returns the current entry's key.
func (it *Iterator) Key() []byte { return it.dataIter.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.dataIter.Value() }

// Error returns the first error encountered while iterating.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.indexIter.Error() != nil {
		return it.indexIter.Error()
	}
	if it.dataIter != nil {
		return it.dataIter.Error()
	}
	return nil
}

// setDataBlock loads the data block addressed by the index iterator's
// current value.
func (it *Iterator) setDataBlock() bool {
	handle, err := block.DecodeHandleFrom(it.indexIter.Value())
	if err != nil {
		it.err = err
		it.dataIter = nil
		return false
	}

	raw, err := readBlock(it.r.src, handle, it.r.opts.VerifyChecksums)
	if err != nil {
		it.err = err
		it.dataIter = nil
		return false
	}

	b, err := block.NewBlock(raw)
	if err != nil {
		it.err = err
		it.dataIter = nil
		return false
	}

	it.dataIter = b.NewIteratorWithComparator(it.r.opts.Comparator)
	return true
}

// SeekToFirst positions the iterator at the first entry in the table.
func (it *Iterator) SeekToFirst() {
	it.indexIter.SeekToFirst()
	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}
	if !it.setDataBlock() {
		return
	}
	it.dataIter.SeekToFirst()
}

// SeekToLast positions the iterator at the last entry in the table.
func (it *Iterator) SeekToLast() {
	it.indexIter.SeekToLast()
	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}
	if !it.setDataBlock() {
		return
	}
	it.dataIter.SeekToLast()
}

// Seek positions the iterator at the first entry with key >= target.
func (it *Iterator) Seek(target []byte) {
	it.indexIter.Seek(target)
	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}
	if !it.setDataBlock() {
		return
	}
	it.dataIter.Seek(target)
	if !it.dataIter.Valid() {
		// target falls after every key in this data block; the entry (if
		// any) is the first of the next block.
		it.indexIter.Next()
		if !it.indexIter.Valid() {
			it.dataIter = nil
			return
		}
		if !it.setDataBlock() {
			return
		}
		it.dataIter.SeekToFirst()
	}
}

// Next advances to the next entry, crossing into the following data block
// if the current one is exhausted.
func (it *Iterator) Next() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Next()
	if it.dataIter.Valid() {
		return
	}
	it.indexIter.Next()
	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}
	if !it.setDataBlock() {
		return
	}
	it.dataIter.SeekToFirst()
}

// Prev moves to the previous entry, crossing into the preceding data block
// if the current one is exhausted.
func (it *Iterator) Prev() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Prev()
	if it.dataIter.Valid() {
		return
	}
	it.indexIter.Prev()
	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}
	if !it.setDataBlock() {
		return
	}
	it.dataIter.SeekToLast()
}
