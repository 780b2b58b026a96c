package iboot

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestReaderSourceRead(t *testing.T) {
	src := NewBytesSource(append(bytes.Repeat([]byte("A"), 8), bytes.Repeat([]byte("B"), 8)...))

	got, err := src.Read(4, 8)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "AAAABBBB" {
		t.Errorf("Read() = %q, want %q", got, "AAAABBBB")
	}
	if src.Size() != 16 {
		t.Errorf("Size() = %d, want 16", src.Size())
	}

	if _, err := src.Read(12, 8); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() past end error = %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := src.Read(-1, 1); err == nil {
		t.Error("Read() at negative offset succeeded")
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if src.Size() != 11 {
		t.Errorf("Size() = %d, want 11", src.Size())
	}
	got, err := src.Read(6, 5)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "world" {
		t.Errorf("Read() = %q, want %q", got, "world")
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Open() of missing file succeeded")
	}
}

func TestReadCString(t *testing.T) {
	data := append(bytes.Repeat([]byte{0xff}, 8), []byte("Hello, world!\x00")...)
	data = append(data, bytes.Repeat([]byte{0xff}, 8)...)
	src := NewBytesSource(data)

	tests := []struct {
		name    string
		off     int64
		maxLen  int
		want    string
		wantErr error
	}{
		{name: "terminated", off: 8, maxLen: 16, want: "Hello, world!"},
		{name: "truncated", off: 8, maxLen: 5, want: "Hello"},
		{name: "clamped at end", off: 21, maxLen: 64, want: ""},
		{name: "invalid utf8", off: 0, maxLen: 4, wantErr: ErrInvalidString},
		{name: "out of range", off: 64, maxLen: 4, wantErr: io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCString(src, tt.off, tt.maxLen)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadCString() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadCString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindAny(t *testing.T) {
	data := make([]byte, 0x100)
	copy(data[0x10:], "foo")
	copy(data[0x38:], "bar")
	copy(data[0x30:], "baz")
	copy(data[0x90:], "foo")
	copy(data[0xF0:], "qux")
	src := NewBytesSource(data)

	patterns := [][]byte{[]byte("bar"), []byte("baz"), []byte("foo")}

	tests := []struct {
		name     string
		patterns [][]byte
		start    int64
		end      int64
		chunk    int64
		backward bool
		want     int64
		wantOK   bool
	}{
		{name: "forward first chunk", patterns: patterns, start: 0, end: 0x100, chunk: 0x40, want: 0x10, wantOK: true},
		{name: "forward smallest in chunk", patterns: patterns, start: 0x20, end: 0x100, chunk: 0x40, want: 0x30, wantOK: true},
		{name: "backward last chunk", patterns: patterns, start: 0, end: 0x100, chunk: 0x40, backward: true, want: 0x90, wantOK: true},
		{name: "backward smallest in chunk", patterns: patterns, start: 0, end: 0x80, chunk: 0x40, backward: true, want: 0x10, wantOK: true},
		{name: "backward partial chunk", patterns: patterns, start: 0x20, end: 0x50, chunk: 0x40, backward: true, want: 0x30, wantOK: true},
		{name: "end clamped to size", patterns: [][]byte{[]byte("qux")}, start: 0, end: 0x10000, chunk: 0x40, want: 0xF0, wantOK: true},
		{name: "window excludes match", patterns: [][]byte{[]byte("qux")}, start: 0, end: 0xF0, chunk: 0x40},
		{name: "not found", patterns: [][]byte{[]byte("nope")}, start: 0, end: 0x100, chunk: 0x40, backward: true},
		{name: "empty window", patterns: patterns, start: 0x80, end: 0x80, chunk: 0x40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := FindAny(src, tt.patterns, tt.start, tt.end, tt.chunk, tt.backward)
			if err != nil {
				t.Fatalf("FindAny() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("FindAny() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FindAny() = %#x, want %#x", got, tt.want)
			}
		})
	}

	if _, _, err := FindAny(src, patterns, 0, 0x100, 0, false); err == nil {
		t.Error("FindAny() with zero chunk size succeeded")
	}
}

func TestPeekZero(t *testing.T) {
	data := make([]byte, 0x3000)
	data[0x2800] = 1
	src := NewBytesSource(data)

	tests := []struct {
		name string
		off  int64
		want bool
	}{
		{"zero page", 0x1000, true},
		{"dirty page", 0x2000, false},
		{"past end", 0x4000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeekZero(src, tt.off, 0x1000)
			if err != nil {
				t.Fatalf("PeekZero() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PeekZero() = %v, want %v", got, tt.want)
			}
		})
	}
}
