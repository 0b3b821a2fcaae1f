package table

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/blockkv/sstable/internal/block"
)

func buildTable(t *testing.T, opts BuilderOptions, entries [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, opts)
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}
	for _, e := range entries {
		if err := tb.Add([]byte(e[0]), []byte(e[1])); err != nil {
			t.Fatalf("Add(%q) error = %v", e[0], err)
		}
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return buf.Bytes()
}

func TestTableBuilderEmpty(t *testing.T) {
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}

	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if tb.NumEntries() != 0 {
		t.Errorf("NumEntries() = %d, want 0", tb.NumEntries())
	}
	// An empty index block (one restart offset plus the restart count, 8
	// bytes) and its trailer are still written ahead of the footer.
	wantSize := uint64(8 + block.BlockTrailerSize + block.EncodedLength)
	if tb.FileSize() != wantSize {
		t.Errorf("FileSize() = %d, want %d (empty index block + trailer + footer)", tb.FileSize(), wantSize)
	}
}

func TestTableBuilderSingleEntry(t *testing.T) {
	var buf bytes.Buffer
	tb, err := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err != nil {
		t.Fatalf("NewTableBuilder error = %v", err)
	}

	if err := tb.Add([]byte("key1"), []byte("value1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if tb.NumEntries() != 1 {
		t.Errorf("NumEntries() = %d, want 1", tb.NumEntries())
	}
	if tb.FileSize() == 0 {
		t.Error("FileSize() = 0, want > 0")
	}
}

func TestTableBuilderRejectsUnsupportedCompression(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.Compression = 7 // not NoCompression or SnappyCompression
	if _, err := NewTableBuilder(&bytes.Buffer{}, opts); err == nil {
		t.Error("expected error for unsupported compression type")
	}
}

func TestTableBuilderAddAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	tb, _ := NewTableBuilder(&buf, DefaultBuilderOptions())
	if err := tb.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := tb.Add([]byte("a"), []byte("b")); err != ErrBuilderFinished {
		t.Errorf("Add() after Finish = %v, want ErrBuilderFinished", err)
	}
	if err := tb.Finish(); err != ErrBuilderFinished {
		t.Errorf("Finish() twice = %v, want ErrBuilderFinished", err)
	}
}

func TestTableBuilderMultipleDataBlocks(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.BlockSize = 32
	opts.BlockRestartInterval = 2

	var entries [][2]string
	for i := range 20 {
		entries = append(entries, [2]string{fmt.Sprintf("key%04d", i), fmt.Sprintf("value%04d", i)})
	}

	data := buildTable(t, opts, entries)

	r, err := Open(bytes.NewReader(data), int64(len(data)), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}

	it := r.NewIterator()
	it.SeekToFirst()
	for _, e := range entries {
		if !it.Valid() {
			t.Fatalf("iterator invalid, expected key %q", e[0])
		}
		if string(it.Key()) != e[0] || string(it.Value()) != e[1] {
			t.Errorf("got (%q,%q), want (%q,%q)", it.Key(), it.Value(), e[0], e[1])
		}
		it.Next()
	}
	if it.Valid() {
		t.Error("iterator should be exhausted")
	}
}

func TestTableBuilderSnappyCompression(t *testing.T) {
	opts := DefaultBuilderOptions()
	opts.BlockSize = 64
	opts.Compression = 1 // compression.SnappyCompression

	entries := [][2]string{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "1"},
		{"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "2"},
	}
	data := buildTable(t, opts, entries)

	r, err := Open(bytes.NewReader(data), int64(len(data)), ReaderOptions{VerifyChecksums: true})
	if err != nil {
		t.Fatalf("Open error = %v", err)
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
