// Package loader turns an analyzed iBoot image into the segments, function
// starts and entry point a disassembler front-end needs to create.
package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/ibis/pkg/iboot"
)

const (
	// FallbackBssSize is used when the layout table has no usable BSS end.
	FallbackBssSize = 0x90000

	IssuesURL = "https://github.com/jonpalmisc/ibis/issues"

	MissingBssBounds   = "WARNING: Couldn't determine BSS segment bounds; using best guess..."
	AnalyzeFailTitle   = "Failed to Analyze Memory Layout"
	AnalyzeFailMessage = "ibis couldn't determine the memory layout for this file; a single RWX segment will be used."

	EntryName = "_start"

	pacibsp = 0xD503237F
)

// Plan is everything a front-end has to apply to load an image.
type Plan struct {
	Context   *iboot.Context
	Layout    *iboot.Layout
	Segments  []Segment
	Functions []uint64
	Entry     uint64
	EntryName string
	Warnings  []string
	// Fallback is set when the layout could not be determined and the image
	// is mapped as a single RWX segment at zero.
	Fallback bool
}

// Build identifies src and plans its segments. Only a failure to identify
// the image is an error; layout failures produce a fallback plan.
func Build(src iboot.Source, opts ...iboot.Option) (*Plan, error) {
	ctx, err := iboot.DetectContext(src)
	if err != nil {
		return nil, err
	}
	log.Infof("Detected %s version %s", ctx.App, ctx.Version)

	plan := &Plan{
		Context:   ctx,
		EntryName: EntryName,
	}

	layout, err := iboot.DetectLayout(ctx, src, opts...)
	if err != nil {
		log.WithError(err).Warn(AnalyzeFailTitle)
		plan.fallback(src, err)
		return plan, nil
	}
	plan.Layout = layout

	size := uint64(src.Size())
	plan.Segments = []Segment{
		newSegment("TEXT", ClassCode, layout.Text.Start, layout.Text.Size(), layout.Text.FileOffset, PermRX, size),
		newSegment("CONST", ClassData, layout.Const.Start, layout.Const.Size(), layout.Const.FileOffset, PermRead, size),
		newSegment("DATA", ClassData, layout.Data.Start, layout.Data.Size(), layout.Data.FileOffset, PermRW, size),
	}

	bssStart, bssSize := layout.Data.End, uint64(FallbackBssSize)
	if layout.Bss != nil {
		bssStart, bssSize = layout.Bss.Start, layout.Bss.Size()
	} else {
		log.Warn(MissingBssBounds)
		plan.Warnings = append(plan.Warnings, MissingBssBounds)
	}
	plan.Segments = append(plan.Segments, newSegment("BSS", ClassBss, bssStart, bssSize, nil, PermRW, size))

	text := plan.Segments[0]
	plan.Functions, err = scanFunctions(src, text)
	if err != nil {
		return nil, err
	}
	plan.Entry = text.Start

	return plan, nil
}

func (p *Plan) fallback(src iboot.Source, cause error) {
	var zero uint64
	p.Fallback = true
	p.Segments = []Segment{
		newSegment("APP", ClassCode, 0, uint64(src.Size()), &zero, PermRWX, uint64(src.Size())),
	}
	p.Entry = 0
	p.Warnings = append(p.Warnings,
		cause.Error(),
		AnalyzeFailMessage,
		fmt.Sprintf("Please report this bug! (%s)", IssuesURL),
	)
}

// scanFunctions returns the address of every PACIBSP in the file backed part
// of TEXT. PACIBSP only ever opens a function, so each hit is a function
// start even where no-return calls confuse analysis.
func scanFunctions(src iboot.Source, text Segment) ([]uint64, error) {
	if text.FileOffset == nil || text.FileSize < 4 {
		return nil, nil
	}
	data, err := src.Read(int64(*text.FileOffset), int(text.FileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read TEXT: %w", err)
	}
	var funcs []uint64
	for i := 0; i+4 <= len(data); i += 4 {
		if binary.LittleEndian.Uint32(data[i:]) == pacibsp {
			addr := text.Start + uint64(i)
			log.Debugf("Adding function @ %#x...", addr)
			funcs = append(funcs, addr)
		}
	}
	return funcs, nil
}

// Segment returns the segment mapping addr.
func (p *Plan) Segment(addr uint64) (*Segment, bool) {
	for i := range p.Segments {
		if p.Segments[i].Contains(addr) {
			return &p.Segments[i], true
		}
	}
	return nil, false
}

// FileOffset translates a virtual address into a file offset, if the address
// is file backed.
func (p *Plan) FileOffset(addr uint64) (uint64, bool) {
	seg, ok := p.Segment(addr)
	if !ok || seg.FileOffset == nil {
		return 0, false
	}
	delta := addr - seg.Start
	if delta >= seg.FileSize {
		return 0, false
	}
	return *seg.FileOffset + delta, true
}

// Address translates a file offset into the virtual address and segment
// that map it.
func (p *Plan) Address(off uint64) (uint64, *Segment, bool) {
	for i := range p.Segments {
		seg := &p.Segments[i]
		if seg.FileOffset == nil {
			continue
		}
		if off >= *seg.FileOffset && off-*seg.FileOffset < seg.FileSize {
			return seg.Start + off - *seg.FileOffset, seg, true
		}
	}
	return 0, nil, false
}

// Host is implemented by a disassembler front-end.
type Host interface {
	AddSegment(seg Segment) error
	AddFunction(addr uint64) error
	AddEntryPoint(addr uint64, name string) error
}

// Apply replays the plan into h: segments first, then functions, then the
// entry point.
func (p *Plan) Apply(h Host) error {
	for _, seg := range p.Segments {
		if err := h.AddSegment(seg); err != nil {
			return fmt.Errorf("failed to add segment %s: %w", seg.Name, err)
		}
	}
	for _, addr := range p.Functions {
		if err := h.AddFunction(addr); err != nil {
			return fmt.Errorf("failed to add function @ %#x: %w", addr, err)
		}
	}
	if err := h.AddEntryPoint(p.Entry, p.EntryName); err != nil {
		return fmt.Errorf("failed to add entry point %s: %w", p.EntryName, err)
	}
	return nil
}
