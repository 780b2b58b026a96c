package iboot

import (
	"fmt"

	"github.com/apex/log"
)

// Region is the half-open address range [Start, End). FileOffset is nil for
// regions without on-disk backing.
type Region struct {
	Start      uint64
	End        uint64
	FileOffset *uint64
}

// NewRegion returns a file-backed region.
func NewRegion(start, end, offset uint64) Region {
	return Region{Start: start, End: end, FileOffset: &offset}
}

// Size returns the region length.
func (r Region) Size() uint64 {
	return r.End - r.Start
}

// IsValid reports whether the region is non-empty and not inverted.
func (r Region) IsValid() bool {
	return r.End > r.Start
}

// After reports whether r starts beyond the end of o.
func (r Region) After(o Region) bool {
	return r.Start > o.End
}

// Before reports whether r ends before o starts.
func (r Region) Before(o Region) bool {
	return r.End < o.Start
}

// Overlaps reports whether r is neither before nor after o.
func (r Region) Overlaps(o Region) bool {
	return !r.Before(o) && !r.After(o)
}

// Equal compares bounds and file backing.
func (r Region) Equal(o Region) bool {
	if r.Start != o.Start || r.End != o.End {
		return false
	}
	if r.FileOffset == nil || o.FileOffset == nil {
		return r.FileOffset == nil && o.FileOffset == nil
	}
	return *r.FileOffset == *o.FileOffset
}

func (r Region) String() string {
	if r.FileOffset != nil {
		return fmt.Sprintf("(%#x, %#x) -> (%#x, %#x)", *r.FileOffset, *r.FileOffset+r.Size(), r.Start, r.End)
	}
	return fmt.Sprintf("(%#x, %#x)", r.Start, r.End)
}

// NamedRegion pairs a region with its segment name.
type NamedRegion struct {
	Name string
	Region
}

// Layout is the set of iBoot/SecureROM memory regions useful for mapping the
// image in a disassembler. Page tables, heap and stacks are not included.
type Layout struct {
	Text  Region
	Const Region
	Data  Region
	Bss   *Region
}

// Regions returns the present regions in memory order.
func (l *Layout) Regions() []NamedRegion {
	regions := []NamedRegion{
		{Name: "TEXT", Region: l.Text},
		{Name: "CONST", Region: l.Const},
		{Name: "DATA", Region: l.Data},
	}
	if l.Bss != nil {
		regions = append(regions, NamedRegion{Name: "BSS", Region: *l.Bss})
	}
	return regions
}

// Validate checks that every region is well formed and that regions ascend
// without overlapping.
func (l *Layout) Validate() error {
	log.Debug("Checking region order and bounds...")

	var prev *NamedRegion
	for _, nr := range l.Regions() {
		if !nr.IsValid() {
			return fmt.Errorf("%w: %s %s", ErrMalformedRegion, nr.Name, nr.Region)
		}
		if prev != nil && nr.Start < prev.End {
			return fmt.Errorf("%w: %s starts below %s (%#x < %#x)", ErrMalformedLayout, nr.Name, prev.Name, nr.Start, prev.End)
		}
		prev = &nr
	}

	log.Debug("Layout is valid")
	return nil
}
