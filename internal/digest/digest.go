// Package digest computes a fast, non-cryptographic fingerprint over whole
// blocks of table data, independent of the CRC32C checksum stored in each
// block trailer. It backs Reader.Fingerprint, which callers use to compare
// two table files cheaply without reading every data block.
package digest

import (
	"github.com/zeebo/xxh3"
)

// Fingerprint returns the 64-bit XXH3 hash of data.
func Fingerprint(data []byte) uint64 {
	return xxh3.Hash(data)
}

// FingerprintSeeded returns the 64-bit XXH3 hash of data using seed, allowing
// callers to mix in context (e.g. a table's comparator name) without
// concatenating buffers.
func FingerprintSeeded(data []byte, seed uint64) uint64 {
	return xxh3.HashSeed(data, seed)
}
