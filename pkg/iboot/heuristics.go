package iboot

import (
	"github.com/apex/log"
)

const (
	smallPage = 0x1000
	largePage = 0x4000
)

func alignDown(v, size uint64) uint64 {
	return v &^ (size - 1)
}

func alignUp(v, size uint64) uint64 {
	return alignDown(v+size-1, size)
}

// guessPageBoundary refines a 4K aligned file offset when the target's page
// size is unknown. If the page following off is all zero the offset most
// likely still sits in segment padding, so it is rounded up to 16K instead.
func guessPageBoundary(src Source, off uint64) (uint64, error) {
	zero, err := PeekZero(src, int64(off), smallPage)
	if err != nil {
		return 0, err
	}
	if zero {
		log.Debugf("Page @ %#x is empty, assuming 16K pages", off)
		return alignUp(off, largePage), nil
	}
	return off, nil
}

// bssFromTable builds the BSS region from table bounds. Newer iBoot stores
// what looks like a high memory VA as the end, which reads negative; there is
// no usable BSS in that case.
func bssFromTable(start, end int64) *Region {
	if end < 0 {
		log.Debugf("Dropping BSS with negative end %#x", end)
		return nil
	}
	return &Region{Start: uint64(start), End: uint64(end)}
}
