// Package checksum implements CRC32C (Castagnoli) with the masking scheme
// used to protect every persisted block trailer.
package checksum

import (
	"hash/crc32"
)

// crc32cTable is the Castagnoli polynomial table used for CRC32C.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is the constant added during masking.
const maskDelta = 0xa282ead8

// Value computes the CRC32C checksum of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Extend computes the CRC32C of concat(A, data) where initCRC is the CRC32C of A.
func Extend(initCRC uint32, data []byte) uint32 {
	return crc32.Update(initCRC, crc32cTable, data)
}

// Mask returns a masked representation of crc.
//
// Motivation: it is problematic to compute the CRC of a string that
// contains embedded CRCs. CRCs stored somewhere (e.g., in files) should be
// masked before being stored.
func Mask(crc uint32) uint32 {
	// Rotate right by 15 bits and add a constant.
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask returns the crc whose masked representation is maskedCRC.
func Unmask(maskedCRC uint32) uint32 {
	rot := maskedCRC - maskDelta
	return (rot >> 17) | (rot << 15)
}

// MaskedValue computes the CRC32C and masks it in one call.
func MaskedValue(data []byte) uint32 {
	return Mask(Value(data))
}

// MaskedExtend extends an existing CRC and masks the result.
func MaskedExtend(initCRC uint32, data []byte) uint32 {
	return Mask(Extend(initCRC, data))
}
