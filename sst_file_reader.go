package sstable

// sst_file_reader.go implements SstFileReader, the public entry point for
// opening a finished table file for point lookups and iteration.

import (
	"fmt"

	"github.com/blockkv/sstable/internal/logging"
	"github.com/blockkv/sstable/internal/table"
	"github.com/blockkv/sstable/internal/vfs"
)

// SstFileReader provides read access to a single table file: point lookups
// via Get and ordered traversal via NewIterator.
type SstFileReader struct {
	file vfs.RandomAccessFile
	r    *table.Reader
}

// OpenSstFileReader opens the table file at path using opts.
func OpenSstFileReader(path string, opts *Options) (*SstFileReader, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

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

	f, err := fs.OpenRandomAccess(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}

	r, err := table.Open(f, f.Size(), table.ReaderOptions{
		Comparator:      tableComparator{comparator},
		VerifyChecksums: opts.VerifyChecksums,
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	logger.Infof(logging.NSRead+"opened %s", path)

	return &SstFileReader{file: f, r: r}, nil
}

// Get returns the value associated with key, or ErrNotFound.
func (r *SstFileReader) Get(key []byte) ([]byte, error) {
	return r.r.Get(key)
}

// NewIterator returns an iterator over every entry in the table, in key
// order.
func (r *SstFileReader) NewIterator() *Iterator {
	return &Iterator{it: r.r.NewIterator()}
}

// Fingerprint returns a fast content hash of the table's index block,
// useful for cheaply comparing two table files without reading every data
// block.
func (r *SstFileReader) Fingerprint() (uint64, error) {
	return r.r.Fingerprint()
}

// Close releases the underlying file handle. The reader must not be used
// afterward.
func (r *SstFileReader) Close() error {
	return r.file.Close()
}

// Iterator walks the entries of a table in key order.
type Iterator struct {
	it *table.Iterator
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.it.Valid() }

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() []byte { return it.it.Key() }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() []byte { return it.it.Value() }

// Error returns the first error encountered while iterating.
func (it *Iterator) Error() error { return it.it.Error() }

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() { it.it.SeekToFirst() }

// SeekToLast positions the iterator at the last entry.
func (it *Iterator) SeekToLast() { it.it.SeekToLast() }

// Seek positions the iterator at the first entry with key >= target.
func (it *Iterator) Seek(target []byte) { it.it.Seek(target) }

// Next advances to the next entry.
func (it *Iterator) Next() { it.it.Next() }

// Prev moves to the previous entry.
func (it *Iterator) Prev() { it.it.Prev() }
