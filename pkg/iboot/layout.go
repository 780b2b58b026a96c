package iboot

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/apex/log"
	"github.com/hashicorp/go-version"
)

const (
	LayoutTableOffset = 0x300
	LayoutTableCount  = 12

	// VersionMin is the earliest 64-bit SecureROM (A7).
	VersionMin = 1585
	// VersionMax is the first major version whose table format has not been
	// checked against real images.
	VersionMax = 14000
)

var (
	markersV1585 = [][]byte{
		[]byte("arch_get_cluster_id\x00"),
		[]byte("arch_vtop\x00"),
		[]byte("arch_get_virt_address_bits\x00"),
		[]byte("nor0\x00"),
		[]byte("%llx:%d\x00"),
	}
	markersV6823 = [][]byte{
		[]byte("%llx:%d\x00"),
		[]byte("anc_firmware\x00"),
		[]byte("nor0\x00"),
		[]byte("spi_nand0\x00"),
		[]byte("darwinos-ramdisk\x00"),
	}
	markersAVPBooter = [][]byte{
		[]byte("virt_firmware\x00"),
		[]byte("double panic in\x00"),
	}
)

type strategy struct {
	name       string
	constraint version.Constraints
	detect     func(*Context, Source) (*Layout, error)
}

// strategies maps version ranges to the table format of that era. Ranges
// must not overlap.
var strategies = []strategy{
	{"v1585", version.MustConstraints(version.NewConstraint(">= 1585, < 6823")), detectV1585},
	{"v6823", version.MustConstraints(version.NewConstraint(">= 6823")), detectV6823},
}

type options struct {
	maxVersion int
}

// Option tunes layout detection.
type Option func(*options)

// WithMaxVersion overrides VersionMax. Zero keeps the default and a
// negative value removes the upper bound.
func WithMaxVersion(v int) Option {
	return func(o *options) {
		if v != 0 {
			o.maxVersion = v
		}
	}
}

func selectStrategy(ctx *Context, opts options) (*strategy, error) {
	major := ctx.Version.Major()
	if major < VersionMin || (opts.maxVersion >= 0 && major >= opts.maxVersion) {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedVersion, ctx.App, ctx.Version)
	}
	v, err := version.NewVersion(strconv.Itoa(major))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnsupportedVersion, ctx.App, ctx.Version, err)
	}
	for i := range strategies {
		if strategies[i].constraint.Check(v) {
			return &strategies[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedVersion, ctx.App, ctx.Version)
}

// readTable reads the layout table. Older images prefix the table with
// pointers to the banner and tag strings; those entries are dropped.
func readTable(src Source) ([]int64, error) {
	data, err := src.Read(LayoutTableOffset, LayoutTableCount*8)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout table: %w", err)
	}
	table := make([]int64, LayoutTableCount)
	for i := range table {
		table[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	if table[0]&0xFFF != 0 {
		log.Debug("Ignoring first 3 elements of layout table (old format)")
		table = table[3:]
	}
	return table, nil
}

// detectV1585 handles majors 1585 through 6822.
//
//	0: TEXT start
//	2: CONST end (file offset)
//	4: DATA start
//	5: DATA end
//	6: BSS start
//	7: BSS end
func detectV1585(ctx *Context, src Source) (*Layout, error) {
	table, err := readTable(src)
	if err != nil {
		return nil, err
	}

	base := uint64(table[0])
	constEnd := uint64(table[2])

	// The table does not give the TEXT/CONST boundary, but these strings
	// reliably open CONST.
	search := Search{Patterns: markersV1585, ChunkSize: 0x800, Backward: true}
	off, ok, err := search.Find(src, 0, int64(constEnd))
	if err != nil {
		return nil, fmt.Errorf("failed to search for CONST start: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: failed to find CONST start", ErrAnalysis)
	}
	constStart := alignDown(uint64(off), 0x10)

	return &Layout{
		Text:  NewRegion(base, base+constStart, 0),
		Const: NewRegion(base+constStart, base+constEnd, constStart),
		Data:  NewRegion(uint64(table[4]), uint64(table[5]), constEnd),
		Bss:   &Region{Start: uint64(table[6]), End: uint64(table[7])},
	}, nil
}

// detectV6823 handles majors 6823 and later.
//
//	0: TEXT start
//	2: CONST end (address)
//	6: DATA start
//	7: DATA end / BSS start
//	8: BSS end
func detectV6823(ctx *Context, src Source) (*Layout, error) {
	table, err := readTable(src)
	if err != nil {
		return nil, err
	}
	if len(table) < 9 {
		return nil, fmt.Errorf("%w: layout table too short (%d entries)", ErrAnalysis, len(table))
	}

	base := uint64(table[0])
	// CONST is contiguous with TEXT, so the address delta is the file offset.
	rawConstEnd := uint64(table[2]) - base

	window := rawConstEnd
	if ctx.App.IsIBoot() {
		// The reported end overshoots on some iBoot images.
		window = alignDown(window, largePage)
	}

	markers := markersV6823
	if ctx.App == AVPBooter {
		markers = markersAVPBooter
	}
	// CONST starts at the marker closest to the end of the window.
	search := Search{Patterns: markers, ChunkSize: largePage, Backward: true}
	off, ok, err := search.Find(src, 0, int64(window))
	if err != nil {
		return nil, fmt.Errorf("failed to search for CONST start: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: failed to find CONST start", ErrAnalysis)
	}
	constStart := alignUp(uint64(off), 0x10)

	// 4K first, then guessPageBoundary moves to 16K over an empty page.
	constEnd, err := guessPageBoundary(src, alignUp(rawConstEnd, smallPage))
	if err != nil {
		return nil, err
	}

	dataStart := uint64(table[6])
	if ctx.App.IsIBoot() {
		dataStart = base + constEnd
	}

	return &Layout{
		Text:  NewRegion(base, base+constStart, 0),
		Const: NewRegion(base+constStart, base+constEnd, constStart),
		Data:  NewRegion(dataStart, uint64(table[7]), constEnd),
		Bss:   bssFromTable(table[7], table[8]),
	}, nil
}

// DetectLayout resolves the memory layout of an identified image.
func DetectLayout(ctx *Context, src Source, opts ...Option) (*Layout, error) {
	o := options{maxVersion: VersionMax}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := selectStrategy(ctx, o)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using %s layout strategy", s.name)

	layout, err := s.detect(ctx, src)
	if err != nil {
		return nil, err
	}

	for _, nr := range layout.Regions() {
		log.Debugf("Resolved region %s: %s", nr.Name, nr.Region)
	}

	log.Info("Validating layout...")
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	return layout, nil
}

// Analyze identifies the image and resolves its memory layout.
func Analyze(src Source, opts ...Option) (*Layout, error) {
	ctx, err := DetectContext(src)
	if err != nil {
		return nil, err
	}
	log.Infof("Detected %s version %s", ctx.App, ctx.Version)

	return DetectLayout(ctx, src, opts...)
}
