// block.go implements the in-memory parsed view of a block and its
// bidirectional iterator.
//
// Reference: table/block.h / table/block.cc
package block

import (
	"bytes"
	"encoding/binary"

	"github.com/blockkv/sstable/internal/encoding"
)

// Comparator defines the total ordering used to compare keys during
// iteration. It mirrors the comparator contract used throughout the
// package hierarchy; any type satisfying this method set (bytewise or
// otherwise) may be supplied.
type Comparator interface {
	Compare(a, b []byte) int
	Name() string
	FindShortestSeparator(a, b []byte) []byte
	FindShortSuccessor(a []byte) []byte
}

// bytewiseComparator is the zero-value default used when no comparator is
// supplied to NewIterator.
type bytewiseComparator struct{}

func (bytewiseComparator) Compare(a, b []byte) int { return bytes.Compare(a, b) }
func (bytewiseComparator) Name() string            { return "bytewise" }
func (bytewiseComparator) FindShortestSeparator(a, b []byte) []byte {
	return a
}
func (bytewiseComparator) FindShortSuccessor(a []byte) []byte { return a }

// Block represents a parsed block containing key-value pairs.
// The format is:
//
//	entries: key-value pairs with prefix compression
//	restarts: uint32[num_restarts] - offsets of restart points
//	num_restarts: uint32
//
// Each entry has the format:
//
//	shared_bytes: varint32 (shared prefix with previous key)
//	unshared_bytes: varint32 (unshared key suffix length)
//	value_length: varint32
//	key_delta: char[unshared_bytes]
//	value: char[value_length]
type Block struct {
	data        []byte // raw block data, entries plus trailing restart array
	restarts    int    // offset of the restarts array within data
	numRestarts int    // number of restart points
}

// NewBlock creates a new Block from raw data (the decompressed block
// contents, not including the checksum trailer).
// The data slice is not copied; the caller must ensure it remains valid
// for the lifetime of the Block.
func NewBlock(data []byte) (*Block, error) {
	if len(data) < 4 {
		return nil, ErrBadBlock
	}

	footerOffset := len(data) - 4
	numRestarts := binary.LittleEndian.Uint32(data[footerOffset:])

	restartsSize := (int(numRestarts) + 1) * 4
	if numRestarts == 0 || restartsSize > len(data) {
		return nil, ErrBadBlock
	}
	restartsOffset := len(data) - restartsSize

	return &Block{
		data:        data,
		restarts:    restartsOffset,
		numRestarts: int(numRestarts),
	}, nil
}

// Size returns the size of the block data.
func (b *Block) Size() int {
	return len(b.data)
}

// Data returns the raw block data.
func (b *Block) Data() []byte {
	return b.data
}

// NumRestarts returns the number of restart points.
func (b *Block) NumRestarts() int {
	return b.numRestarts
}

// GetRestartPoint returns the offset of the i-th restart point, or -1 if i
// is out of range.
func (b *Block) GetRestartPoint(i int) int {
	if i < 0 || i >= b.numRestarts {
		return -1
	}
	offset := b.restarts + i*4
	return int(binary.LittleEndian.Uint32(b.data[offset:]))
}

// DataEnd returns the offset where the entry data ends and the restart
// array begins.
func (b *Block) DataEnd() int {
	return b.restarts
}

// Entry represents a decoded key-value entry from a block.
type Entry struct {
	Key   []byte
	Value []byte
}

// Iterator iterates over the entries in a block, ordered by a Comparator.
type Iterator struct {
	cmp         Comparator
	block       *Block
	data        []byte
	restartsEnd int
	restartIdx  int
	current     int
	nextOffset  int
	key         []byte
	value       []byte
	valid       bool
	err         error
}

// NewIterator creates a block iterator using the bytewise comparator.
func (b *Block) NewIterator() *Iterator {
	return b.NewIteratorWithComparator(nil)
}

// NewIteratorWithComparator creates a block iterator ordered by cmp.
// A nil cmp defaults to bytewise comparison.
func (b *Block) NewIteratorWithComparator(cmp Comparator) *Iterator {
	if cmp == nil {
		cmp = bytewiseComparator{}
	}
	return &Iterator{
		cmp:         cmp,
		block:       b,
		data:        b.data,
		restartsEnd: b.restarts,
	}
}

// Valid returns true if the iterator is positioned at a valid entry.
func (it *Iterator) Valid() bool {
	return it.valid && it.err == nil
}

// Key returns the current key. Only meaningful when Valid() is true.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current value. Only meaningful when Valid() is true.
func (it *Iterator) Value() []byte {
	return it.value
}

// Error returns any error encountered during iteration.
func (it *Iterator) Error() error {
	return it.err
}

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() {
	it.seekToRestartPoint(0)
	it.Next()
}

// SeekToLast positions the iterator at the last entry.
func (it *Iterator) SeekToLast() {
	it.seekToRestartPoint(it.block.numRestarts - 1)

	var lastKey []byte
	var lastValue []byte
	var lastCurrent, lastNextOffset int
	var found bool

	for {
		it.Next()
		if !it.Valid() {
			break
		}
		lastKey = append(lastKey[:0], it.key...)
		lastValue = it.value
		lastCurrent = it.current
		lastNextOffset = it.nextOffset
		found = true
	}

	if found {
		it.key = lastKey
		it.value = lastValue
		it.current = lastCurrent
		it.nextOffset = lastNextOffset
		it.valid = true
	}
}

// Next moves to the next entry.
func (it *Iterator) Next() {
	if it.err != nil {
		it.valid = false
		return
	}
	if it.nextOffset >= it.restartsEnd {
		it.valid = false
		return
	}
	it.current = it.nextOffset
	it.parseCurrentEntry()
}

// Prev moves to the previous entry.
// REQUIRES: Valid()
func (it *Iterator) Prev() {
	if it.err != nil {
		it.valid = false
		return
	}

	original := it.current

	restartIndex := it.findRestartPointBefore(original)
	restartOffset := it.block.GetRestartPoint(restartIndex)
	if restartOffset == original && restartIndex > 0 {
		restartIndex--
	}

	it.seekToRestartPoint(restartIndex)

	var prevKey []byte
	var prevValue []byte
	var prevCurrent, prevNextOffset int
	found := false

	for {
		it.Next()
		if !it.Valid() || it.current >= original {
			break
		}
		prevKey = append(prevKey[:0], it.key...)
		prevValue = it.value
		prevCurrent = it.current
		prevNextOffset = it.nextOffset
		found = true
	}

	if found {
		it.key = prevKey
		it.value = prevValue
		it.current = prevCurrent
		it.nextOffset = prevNextOffset
		it.valid = true
	} else {
		it.valid = false
	}
}

// findRestartPointBefore finds the largest restart index whose offset is
// <= target.
func (it *Iterator) findRestartPointBefore(target int) int {
	left := 0
	right := it.block.numRestarts - 1

	for left < right {
		mid := (left + right + 1) / 2
		if it.block.GetRestartPoint(mid) <= target {
			left = mid
		} else {
			right = mid - 1
		}
	}
	return left
}

// seekToRestartPoint positions the iterator at the given restart point,
// clearing any assembled key.
func (it *Iterator) seekToRestartPoint(index int) {
	it.key = it.key[:0]
	it.value = nil
	it.valid = false
	it.restartIdx = index
	offset := max(it.block.GetRestartPoint(index), 0)
	it.current = offset
	it.nextOffset = offset
}

// parseCurrentEntry parses the entry at it.current.
func (it *Iterator) parseCurrentEntry() {
	if it.current >= it.restartsEnd {
		it.valid = false
		return
	}

	data := it.data[it.current:]

	shared, n1, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n1:]

	unshared, n2, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n2:]

	valueLen, n3, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n3:]

	if int(shared) > len(it.key) || len(data) < int(unshared)+int(valueLen) {
		it.err = ErrBadBlock
		it.valid = false
		return
	}

	it.key = append(it.key[:shared], data[:unshared]...)
	offset := n1 + n2 + n3 + int(unshared)
	data = data[unshared:]

	it.value = data[:valueLen]
	offset += int(valueLen)

	it.nextOffset = it.current + offset

	// Keep restartIdx coherent with the entry cursor so a later Prev does
	// not have to redo the binary search from scratch.
	for it.restartIdx+1 < it.block.numRestarts && it.block.GetRestartPoint(it.restartIdx+1) < it.nextOffset {
		it.restartIdx++
	}

	it.valid = true
}

// Seek positions the iterator at the first key >= target.
// Binary-searches all restart points, then scans linearly from the head of
// the selected restart group. The iterator's current position is not
// consulted: every Seek repeats the full search, even for monotonic targets.
func (it *Iterator) Seek(target []byte) {
	left := 0
	right := it.block.numRestarts - 1

	for left < right {
		mid := (left + right + 1) / 2
		it.seekToRestartPoint(mid)
		it.Next()

		if !it.Valid() || it.cmp.Compare(it.key, target) > 0 {
			right = mid - 1
		} else {
			left = mid
		}
	}

	it.seekToRestartPoint(left)
	for {
		it.Next()
		if !it.Valid() {
			return
		}
		if it.cmp.Compare(it.key, target) >= 0 {
			return
		}
	}
}
