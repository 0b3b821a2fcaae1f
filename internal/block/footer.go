// footer.go implements SST file footer encoding and decoding.
//
// The footer is a fixed 28-byte record at the end of every file: a single
// BlockHandle addressing the index block, zero-padded to its maximum encoded
// length, followed by an 8-byte magic number split into two fixed32 halves.
//
// Reference: table/format.h / table/format.cc (Footer class), simplified to
// a single index handle — this format carries no meta-index block.
package block

import (
	"encoding/binary"
	"errors"
)

// TableMagicNumber identifies a valid SSTable file.
const TableMagicNumber uint64 = 0xdb4775248b80fb57

// BlockTrailerSize is the size of the trailer appended to every persisted
// block: 1 byte compression type + 4 bytes masked CRC32C.
const BlockTrailerSize = 5

// MagicNumberLength is the length in bytes of the footer's magic number.
const MagicNumberLength = 8

// EncodedLength is the fixed on-disk size of a Footer: the index handle
// padded to MaxEncodedLength (20), followed by the 8-byte magic number.
const EncodedLength = MaxEncodedLength + MagicNumberLength

// CompressionType identifies the compression applied to a persisted block.
type CompressionType uint8

const (
	// CompressionNone means the block is stored uncompressed.
	CompressionNone CompressionType = 0
	// CompressionSnappy means the block was compressed with Snappy.
	CompressionSnappy CompressionType = 1
)

// ErrBadMagic is returned when a footer's magic number does not match.
var ErrBadMagic = errors.New("block: not an sstable (bad magic number)")

// Footer is the fixed-size record at the tail of every SSTable file.
type Footer struct {
	// IndexHandle addresses the table's index block.
	IndexHandle Handle
}

// EncodeTo appends the footer's encoding to dst and returns the result.
// The index handle is encoded, zero-padded to MaxEncodedLength, and the
// magic number is written as two little-endian fixed32 halves (low, high).
func (f Footer) EncodeTo(dst []byte) []byte {
	start := len(dst)
	dst = f.IndexHandle.EncodeTo(dst)

	// Zero-pad the handle region out to MaxEncodedLength.
	for len(dst)-start < MaxEncodedLength {
		dst = append(dst, 0)
	}

	var magic [MagicNumberLength]byte
	binary.LittleEndian.PutUint32(magic[0:4], uint32(TableMagicNumber&0xffffffff))
	binary.LittleEndian.PutUint32(magic[4:8], uint32(TableMagicNumber>>32))
	dst = append(dst, magic[:]...)

	return dst
}

// DecodeFooter decodes a Footer from data, which must be exactly
// EncodedLength bytes (the tail of a table file); any other length yields
// ErrBadBlockFooter.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) != EncodedLength {
		return Footer{}, ErrBadBlockFooter
	}

	magicLo := binary.LittleEndian.Uint32(data[MaxEncodedLength : MaxEncodedLength+4])
	magicHi := binary.LittleEndian.Uint32(data[MaxEncodedLength+4 : MaxEncodedLength+8])
	magic := uint64(magicHi)<<32 | uint64(magicLo)
	if magic != TableMagicNumber {
		return Footer{}, ErrBadMagic
	}

	handle, err := DecodeHandleFrom(data[:MaxEncodedLength])
	if err != nil {
		return Footer{}, err
	}

	return Footer{IndexHandle: handle}, nil
}
