package iboot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// Source is random access to the bytes of a firmware image.
//
// Read must return exactly size bytes starting at off or an error. Size
// reports the total addressable extent and is fixed for the lifetime of the
// Source.
type Source interface {
	Read(off int64, size int) ([]byte, error)
	Size() int64
}

// ReaderSource adapts an io.ReaderAt of known size to a Source.
type ReaderSource struct {
	r    io.ReaderAt
	size int64
}

// NewReaderSource returns a Source reading from r, which holds size bytes.
func NewReaderSource(r io.ReaderAt, size int64) *ReaderSource {
	return &ReaderSource{r: r, size: size}
}

// NewBytesSource returns a Source over an in-memory image.
func NewBytesSource(data []byte) *ReaderSource {
	return NewReaderSource(bytes.NewReader(data), int64(len(data)))
}

func (s *ReaderSource) Read(off int64, size int) ([]byte, error) {
	if off < 0 || size < 0 {
		return nil, fmt.Errorf("invalid read of %#x bytes @ %#x", size, off)
	}
	if off+int64(size) > s.size {
		return nil, fmt.Errorf("failed to read %#x bytes @ %#x (size %#x): %w", size, off, s.size, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, size)
	n, err := s.r.ReadAt(buf, off)
	if n == size {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("failed to read %#x bytes @ %#x: %w", size, off, err)
}

func (s *ReaderSource) Size() int64 {
	return s.size
}

// FileSource is a Source backed by an open file.
type FileSource struct {
	*ReaderSource
	f *os.File
}

// Open opens the firmware image at path.
func Open(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &FileSource{
		ReaderSource: NewReaderSource(f, fi.Size()),
		f:            f,
	}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// ReadCString reads at most maxLen bytes at off and returns the text before the
// first NUL. The read is clamped to the end of the source.
func ReadCString(src Source, off int64, maxLen int) (string, error) {
	if off < 0 || off >= src.Size() {
		return "", fmt.Errorf("failed to read string @ %#x: %w", off, io.ErrUnexpectedEOF)
	}
	n := int(min(int64(maxLen), src.Size()-off))
	data, err := src.Read(off, n)
	if err != nil {
		return "", fmt.Errorf("failed to read string @ %#x: %w", off, err)
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w @ %#x: % x", ErrInvalidString, off, data)
	}
	return string(data), nil
}

// Search is a bounded, chunked, multi-pattern byte search.
//
// The window is scanned ChunkSize bytes at a time, forward from its start or
// (Backward) from its end. Within the first chunk holding any pattern the
// earliest occurrence across all patterns wins. A match straddling two chunks
// may be missed.
type Search struct {
	Patterns  [][]byte
	ChunkSize int64
	Backward  bool
}

// Find scans [start, min(end, src.Size())) and returns the absolute offset
// of the match. ok is false when the window holds no match.
func (s Search) Find(src Source, start, end int64) (off int64, ok bool, err error) {
	if s.ChunkSize <= 0 {
		return 0, false, fmt.Errorf("invalid search chunk size %#x", s.ChunkSize)
	}
	end = min(end, src.Size())
	start = max(start, 0)

	if s.Backward {
		for cursor := end; cursor > start; {
			lo := max(cursor-s.ChunkSize, start)
			chunk, err := src.Read(lo, int(cursor-lo))
			if err != nil {
				return 0, false, err
			}
			if idx := s.earliest(chunk); idx >= 0 {
				return lo + int64(idx), true, nil
			}
			cursor = lo
		}
		return 0, false, nil
	}

	for cursor := start; cursor < end; {
		hi := min(cursor+s.ChunkSize, end)
		chunk, err := src.Read(cursor, int(hi-cursor))
		if err != nil {
			return 0, false, err
		}
		if idx := s.earliest(chunk); idx >= 0 {
			return cursor + int64(idx), true, nil
		}
		cursor = hi
	}
	return 0, false, nil
}

func (s Search) earliest(chunk []byte) int {
	best := -1
	for _, p := range s.Patterns {
		if len(p) == 0 {
			continue
		}
		if i := bytes.Index(chunk, p); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// FindAny is shorthand for Search{patterns, chunkSize, backward}.Find.
func FindAny(src Source, patterns [][]byte, start, end, chunkSize int64, backward bool) (int64, bool, error) {
	return Search{Patterns: patterns, ChunkSize: chunkSize, Backward: backward}.Find(src, start, end)
}

// PeekZero reports whether the n bytes at off are all zero. The window is
// clamped to the end of the source and an empty window counts as zero.
func PeekZero(src Source, off int64, n int) (bool, error) {
	if off < 0 {
		return false, fmt.Errorf("invalid peek @ %#x", off)
	}
	n = int(max(min(int64(n), src.Size()-off), 0))
	if n == 0 {
		return true, nil
	}
	data, err := src.Read(off, n)
	if err != nil {
		return false, fmt.Errorf("failed to peek @ %#x: %w", off, err)
	}
	for _, b := range data {
		if b != 0 {
			return false, nil
		}
	}
	return true, nil
}
