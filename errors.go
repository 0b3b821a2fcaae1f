package sstable

// errors.go re-exports the sentinel errors produced by the table reader so
// callers of this package never need to import internal/table directly.

import "github.com/blockkv/sstable/internal/table"

var (
	// ErrNotFound is returned by SstFileReader.Get when the key is absent.
	ErrNotFound = table.ErrNotFound

	// ErrInvalidTable is returned when a file is too short to hold a
	// footer. A bad magic number, a malformed index handle or a corrupt
	// index block is reported with its own error instead.
	ErrInvalidTable = table.ErrInvalidTable

	// ErrChecksumMismatch is returned when a block's stored checksum does
	// not match its contents.
	ErrChecksumMismatch = table.ErrChecksumMismatch
)
