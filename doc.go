/*
Package sstable implements an immutable, sorted key/value table file format:
a builder that serializes an ordered stream of key/value pairs into a
compact, seekable file, and a reader that opens such a file for point
lookups and ordered iteration.

A table is a sequence of prefix-compressed, restart-indexed data blocks
followed by an index block and a fixed-size footer. The index block maps
each data block to a key range, giving point lookups O(log N) cost in the
number of blocks plus O(log R) inside a block.

# Usage

Build a table with SstFileWriter, writing keys in strictly ascending order:

	w := NewSstFileWriter(DefaultSstFileWriterOptions())
	if err := w.Open("table.sst"); err != nil { ... }
	if err := w.Put([]byte("key"), []byte("value")); err != nil { ... }
	info, err := w.Finish()

Open it for reads with SstFileReader:

	r, err := OpenSstFileReader("table.sst", DefaultOptions())
	value, err := r.Get([]byte("key"))

# Concurrency

A Reader may be shared by multiple goroutines provided its underlying file
supports concurrent ReadAt; individual Iterators are not safe for concurrent
use. A writer is single-owner: exactly one goroutine drives an
SstFileWriter.

# Compatibility

The on-disk format is a fixed, versionless layout: data blocks, an index
block, and a 28-byte footer ending in the magic number
0xDB4775248B80FB57. It carries no transaction sequence numbers, Bloom
filters, or meta-index block — see DESIGN.md for what is deliberately out
of scope and why.
*/
package sstable
