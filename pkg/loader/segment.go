package loader

import (
	"fmt"
	"strings"
)

// Perm is a segment permission bit set.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec

	PermRX  = PermRead | PermExec
	PermRW  = PermRead | PermWrite
	PermRWX = PermRead | PermWrite | PermExec
)

func (p Perm) String() string {
	var sb strings.Builder
	for _, b := range []struct {
		bit Perm
		c   byte
	}{{PermRead, 'r'}, {PermWrite, 'w'}, {PermExec, 'x'}} {
		if p&b.bit != 0 {
			sb.WriteByte(b.c)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func (p Perm) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Segment classes as understood by disassemblers.
const (
	ClassCode = "CODE"
	ClassData = "DATA"
	ClassBss  = "BSS"
)

// Segment is a single mapping a front-end should create.
type Segment struct {
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Start      uint64  `json:"start"`
	Size       uint64  `json:"size"`
	FileOffset *uint64 `json:"file_offset"`
	FileSize   uint64  `json:"file_size"`
	Perm       Perm    `json:"perm"`
}

func (s Segment) End() uint64 {
	return s.Start + s.Size
}

// Contains reports whether addr is mapped by the segment.
func (s Segment) Contains(addr uint64) bool {
	return addr >= s.Start && addr < s.End()
}

func (s Segment) String() string {
	file := "-"
	if s.FileOffset != nil {
		file = fmt.Sprintf("%#x-%#x", *s.FileOffset, *s.FileOffset+s.FileSize)
	}
	return fmt.Sprintf("%-6s %-4s %s %#x-%#x file=%s", s.Name, s.Class, s.Perm, s.Start, s.End(), file)
}

// newSegment clamps the file backed portion of a mapping to the source.
func newSegment(name, class string, start, size uint64, off *uint64, perm Perm, srcSize uint64) Segment {
	seg := Segment{
		Name:  name,
		Class: class,
		Start: start,
		Size:  size,
		Perm:  perm,
	}
	if off != nil {
		o := *off
		seg.FileOffset = &o
		switch {
		case o >= srcSize:
			seg.FileSize = 0
		case size > srcSize-o:
			seg.FileSize = srcSize - o
		default:
			seg.FileSize = size
		}
	}
	return seg
}
