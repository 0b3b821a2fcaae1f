package table

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/blockkv/sstable/internal/block"
	"github.com/blockkv/sstable/internal/compression"
)

// An empty table round-trips to an empty iterator and a miss on Get.
func TestReaderEmptyTableRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	r, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ReaderOptions{})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	it := r.NewIterator()
	it.SeekToFirst()
	if it.Valid() {
		t.Error("expected empty iterator")
	}

	if _, err := r.Get([]byte("anything")); err != ErrNotFound {
		t.Errorf("Get on empty table = %v, want ErrNotFound", err)
	}
}

// With a small restart interval and block size, seek/next must visit
// entries in order across restart points and block boundaries.
func TestReaderSeekNextSequence(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.BlockSize = 64
	opts.BlockRestartInterval = 2

	keys := []string{"apple", "banana", "cherry", "date", "elderberry", "fig", "grape"}

	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, opts)
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	for i, k := range keys {
		if err := tb.Add([]byte(k), []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	r, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	it := r.NewIterator()
	it.Seek([]byte("cherry"))
	for i := 2; i < len(keys); i++ {
		if !it.Valid() {
			t.Fatalf("iterator invalid at index %d", i)
		}
		if string(it.Key()) != keys[i] {
			t.Errorf("index %d: got %q, want %q", i, it.Key(), keys[i])
		}
		it.Next()
	}
	if it.Valid() {
		t.Error("iterator should be exhausted after last key")
	}

	// Seeking between two keys should land on the next larger key.
	it.Seek([]byte("cherryy"))
	if !it.Valid() || string(it.Key()) != "date" {
		t.Errorf("Seek(%q) = %q, want %q", "cherryy", it.Key(), "date")
	}

	// Bidirectional symmetry: walking Prev from the last entry should
	// reproduce the sequence in reverse.
	it.SeekToLast()
	for i := len(keys) - 1; i >= 0; i-- {
		if !it.Valid() {
			t.Fatalf("iterator invalid at index %d going backward", i)
		}
		if string(it.Key()) != keys[i] {
			t.Errorf("backward index %d: got %q, want %q", i, it.Key(), keys[i])
		}
		it.Prev()
	}
	if it.Valid() {
		t.Error("iterator should be exhausted before first key")
	}
}

// A large shuffled probe: every key added must be retrievable via Get
// after the table is built and reopened, and absent keys must miss.
func TestReaderLargeShuffledProbe(t *testing.T) {
	const n = 2560
	opts := DefaultBuilderOptions()
	opts.BlockSize = 4096
	opts.BlockRestartInterval = 16

	keys := make([]string, n)
	for i := range n {
		keys[i] = fmt.Sprintf("key-%06d", i)
	}

	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, opts)
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	for i, k := range keys {
		if err := tb.Add([]byte(k), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	r, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, idx := range order {
		v, err := r.Get([]byte(keys[idx]))
		if err != nil {
			t.Fatalf("Get(%q) error = %v", keys[idx], err)
		}
		want := fmt.Sprintf("value-%d", idx)
		if string(v) != want {
			t.Errorf("Get(%q) = %q, want %q", keys[idx], v, want)
		}
	}

	if _, err := r.Get([]byte("key-999999")); err != ErrNotFound {
		t.Errorf("Get on absent key = %v, want ErrNotFound", err)
	}
}

// Flipping a single byte in a data block's payload must be caught by
// checksum verification rather than silently returning corrupt data.
func TestReaderDetectsSingleByteCorruption(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.BlockSize = 4096

	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, opts)
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	for i := range 10 {
		if err := tb.Add([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	data := buf.Bytes()
	corrupted := make([]byte, len(data))
	copy(corrupted, data)
	corrupted[0] ^= 0xff

	r, err := Open(bytes.NewReader(corrupted), int64(len(corrupted)), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	if _, err := r.Get([]byte("k00")); err != ErrChecksumMismatch {
		t.Errorf("Get on corrupted block = %v, want ErrChecksumMismatch", err)
	}
}

// A table spanning three data blocks must produce exactly three index
// entries, one per data block.
func TestReaderThreeDataBlocksThreeIndexEntries(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.BlockSize = 32
	opts.BlockRestartInterval = 2

	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, opts)
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	// Each key-value pair is large enough relative to BlockSize that three
	// adds should force three distinct data blocks.
	entries := [][2]string{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "1111111111111111111111111111111"},
		{"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "2222222222222222222222222222222"},
		{"cccccccccccccccccccccccccccccccc", "3333333333333333333333333333333"},
	}
	for _, e := range entries {
		if err := tb.Add([]byte(e[0]), []byte(e[1])); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}
	if tb.numDataBlocks != 3 {
		t.Fatalf("numDataBlocks = %d, want 3", tb.numDataBlocks)
	}

	r, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	count := 0
	idxIt := r.indexBlock.NewIteratorWithComparator(r.opts.Comparator)
	for idxIt.SeekToFirst(); idxIt.Valid(); idxIt.Next() {
		count++
	}
	if count != 3 {
		t.Errorf("index entry count = %d, want 3", count)
	}

	for _, e := range entries {
		v, err := r.Get([]byte(e[0]))
		if err != nil {
			t.Fatalf("Get(%q) error = %v", e[0], err)
		}
		if string(v) != e[1] {
			t.Errorf("Get(%q) = %q, want %q", e[0], v, e[1])
		}
	}
}

func TestReaderFingerprintDeterministicAcrossOpens(t *testing.T) {
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	for i := range 5 {
		if err := tb.Add([]byte(fmt.Sprintf("k%d", i)), []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	data := buf.Bytes()
	r1, err := Open(bytes.NewReader(data), int64(len(data)), ReaderOptions{})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	r2, err := Open(bytes.NewReader(data), int64(len(data)), ReaderOptions{})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	f1, err := r1.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint error = %v", err)
	}
	f2, err := r2.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint error = %v", err)
	}
	if f1 != f2 {
		t.Errorf("Fingerprint not deterministic: %x != %x", f1, f2)
	}
}

func TestReaderRejectsTruncatedFile(t *testing.T) {
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	if err := tb.Add([]byte("a"), []byte("b")); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish error = %v", err)
	}

	truncated := buf.Bytes()[:block.EncodedLength-1]
	if _, err := Open(bytes.NewReader(truncated), int64(len(truncated)), ReaderOptions{}); err != ErrInvalidTable {
		t.Errorf("Open on truncated file = %v, want ErrInvalidTable", err)
	}
}

func TestReaderZstdCompressionUnsupportedAtCoreLayer(t *testing.T) {
	// The core table format only ever writes NoCompression or
	// SnappyCompression; Zstd belongs to the general-purpose compression
	// package used above the table layer, never inside a block trailer.
	opts := DefaultBuilderOptions()
	opts.Compression = compression.ZstdCompression
	if _, err := NewTableBuilder(&bytes.Buffer{}, opts); err == nil {
		t.Fatal("NewTableBuilder should reject compression.ZstdCompression at the core table layer")
	}
}
