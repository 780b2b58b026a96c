package loader

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/blacktop/ibis/pkg/iboot"
)

func newImage(size int, banner, tag string, table []uint64) []byte {
	img := make([]byte, size)
	copy(img[iboot.BannerOffset:], banner)
	copy(img[iboot.TagOffset:], tag)
	for i, v := range table {
		binary.LittleEndian.PutUint64(img[iboot.LayoutTableOffset+i*8:], v)
	}
	return img
}

// romImage lays out TEXT [0, 0x57BC0), CONST up to 0x5C000 and DATA from
// file offset 0x5C000, truncated to half a page.
func romImage() []byte {
	const base = 0x100000000
	img := newImage(0x5C800,
		"SecureROM for t8130si, Copyright 2007-2023, Apple Inc.",
		"SecureROM-8104.0.0.201.4",
		[]uint64{
			base, 0, base + 0x5A100, 0,
			0, 0, 0x1FC038000, 0x1FC039000,
			0x1FC048C40,
			0, 0, 0,
		})
	copy(img[0x57BC0:], "%llx:%d\x00")
	binary.LittleEndian.PutUint32(img[0x1000:], pacibsp)
	binary.LittleEndian.PutUint32(img[0x2040:], pacibsp)
	binary.LittleEndian.PutUint32(img[0x3002:], pacibsp)  // unaligned
	binary.LittleEndian.PutUint32(img[0x58000:], pacibsp) // CONST
	return img
}

func segmentByName(t *testing.T, plan *Plan, name string) Segment {
	t.Helper()
	for _, seg := range plan.Segments {
		if seg.Name == name {
			return seg
		}
	}
	t.Fatalf("segment %s is missing", name)
	return Segment{}
}

func TestBuild(t *testing.T) {
	plan, err := Build(iboot.NewBytesSource(romImage()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if plan.Fallback {
		t.Fatalf("Build() fell back: %v", plan.Warnings)
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", plan.Warnings)
	}

	tests := []struct {
		name     string
		class    string
		perm     Perm
		start    uint64
		size     uint64
		fileSize uint64
		backed   bool
	}{
		{"TEXT", ClassCode, PermRX, 0x100000000, 0x57BC0, 0x57BC0, true},
		{"CONST", ClassData, PermRead, 0x100057BC0, 0x4440, 0x4440, true},
		{"DATA", ClassData, PermRW, 0x1FC038000, 0x1000, 0x800, true},
		{"BSS", ClassBss, PermRW, 0x1FC039000, 0xFC40, 0, false},
	}
	if len(plan.Segments) != len(tests) {
		t.Fatalf("len(Segments) = %d, want %d", len(plan.Segments), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := segmentByName(t, plan, tt.name)
			if seg.Class != tt.class || seg.Perm != tt.perm {
				t.Errorf("%s class/perm = %s/%s, want %s/%s", tt.name, seg.Class, seg.Perm, tt.class, tt.perm)
			}
			if seg.Start != tt.start || seg.Size != tt.size {
				t.Errorf("%s = %#x+%#x, want %#x+%#x", tt.name, seg.Start, seg.Size, tt.start, tt.size)
			}
			if (seg.FileOffset != nil) != tt.backed {
				t.Errorf("%s file backed = %v, want %v", tt.name, seg.FileOffset != nil, tt.backed)
			}
			if seg.FileSize != tt.fileSize {
				t.Errorf("%s FileSize = %#x, want %#x", tt.name, seg.FileSize, tt.fileSize)
			}
		})
	}

	want := []uint64{0x100001000, 0x100002040}
	if len(plan.Functions) != len(want) {
		t.Fatalf("Functions = %#x, want %#x", plan.Functions, want)
	}
	for i := range want {
		if plan.Functions[i] != want[i] {
			t.Errorf("Functions[%d] = %#x, want %#x", i, plan.Functions[i], want[i])
		}
	}
	if plan.Entry != 0x100000000 || plan.EntryName != "_start" {
		t.Errorf("entry = %s@%#x", plan.EntryName, plan.Entry)
	}
}

func TestBuildMissingBss(t *testing.T) {
	const base = 0x1FC08C000
	img := newImage(0x362000,
		"iBoot for v53ap, Copyright 2007-2025, Apple Inc.",
		"iBoot-13822.42.2",
		[]uint64{
			base, 0, base + 0x35F7B0, 0,
			0, 0, 0x1FC3EC000, 0x1FC47C680,
			0xFFFFFFF000001000,
			0, 0, 0,
		})
	copy(img[0x351A38:], "nor0\x00")
	img[0x360000] = 0xAA

	plan, err := Build(iboot.NewBytesSource(img))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(plan.Warnings) != 1 || plan.Warnings[0] != MissingBssBounds {
		t.Errorf("Warnings = %v, want [%q]", plan.Warnings, MissingBssBounds)
	}

	bss := segmentByName(t, plan, "BSS")
	if bss.Start != 0x1FC47C680 || bss.Size != FallbackBssSize || bss.FileOffset != nil {
		t.Errorf("BSS = %s", bss)
	}
	if data := segmentByName(t, plan, "DATA"); data.FileSize != 0x2000 {
		t.Errorf("DATA FileSize = %#x, want 0x2000", data.FileSize)
	}
}

func TestBuildFallback(t *testing.T) {
	img := romImage()
	copy(img[0x57BC0:], make([]byte, 8))

	plan, err := Build(iboot.NewBytesSource(img))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !plan.Fallback {
		t.Fatal("Build() did not fall back")
	}
	if plan.Layout != nil {
		t.Errorf("Layout = %v, want nil", plan.Layout)
	}
	if len(plan.Segments) != 1 {
		t.Fatalf("Segments = %v", plan.Segments)
	}
	app := plan.Segments[0]
	if app.Name != "APP" || app.Start != 0 || app.Size != uint64(len(img)) || app.Perm != PermRWX {
		t.Errorf("APP = %s", app)
	}
	if app.FileOffset == nil || *app.FileOffset != 0 || app.FileSize != uint64(len(img)) {
		t.Errorf("APP file backing = %s", app)
	}
	if plan.Entry != 0 || len(plan.Functions) != 0 {
		t.Errorf("entry = %#x functions = %d", plan.Entry, len(plan.Functions))
	}
	if !strings.Contains(strings.Join(plan.Warnings, "\n"), "https://github.com/jonpalmisc/ibis/issues") {
		t.Errorf("Warnings %v do not mention %s", plan.Warnings, IssuesURL)
	}
}

func TestBuildUnknownImage(t *testing.T) {
	_, err := Build(iboot.NewBytesSource(make([]byte, 0x1000)))
	if !errors.Is(err, iboot.ErrBannerParse) {
		t.Fatalf("Build() error = %v, want ErrBannerParse", err)
	}
}

func TestPlanFileOffset(t *testing.T) {
	plan, err := Build(iboot.NewBytesSource(romImage()))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		addr   uint64
		want   uint64
		wantOK bool
	}{
		{0x100001000, 0x1000, true},
		{0x100057BC0, 0x57BC0, true},
		{0x1FC038400, 0x5C400, true},
		{0x1FC038900, 0, false}, // past the truncated file
		{0x1FC039000, 0, false}, // BSS
		{0x200000000, 0, false},
	}
	for _, tt := range tests {
		got, ok := plan.FileOffset(tt.addr)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("FileOffset(%#x) = %#x, %v, want %#x, %v", tt.addr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPlanAddress(t *testing.T) {
	plan, err := Build(iboot.NewBytesSource(romImage()))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		off    uint64
		want   uint64
		seg    string
		wantOK bool
	}{
		{0x1000, 0x100001000, "TEXT", true},
		{0x57BC0, 0x100057BC0, "CONST", true},
		{0x5C400, 0x1FC038400, "DATA", true},
		{0x5C800, 0, "", false}, // end of file
	}
	for _, tt := range tests {
		got, seg, ok := plan.Address(tt.off)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Address(%#x) = %#x, %v, want %#x, %v", tt.off, got, ok, tt.want, tt.wantOK)
			continue
		}
		if ok && seg.Name != tt.seg {
			t.Errorf("Address(%#x) segment = %s, want %s", tt.off, seg.Name, tt.seg)
		}
	}
}

type recordingHost struct {
	calls []string
	fail  string
}

func (h *recordingHost) record(call string) error {
	h.calls = append(h.calls, call)
	if call == h.fail {
		return errors.New("boom")
	}
	return nil
}

func (h *recordingHost) AddSegment(seg Segment) error { return h.record("segment " + seg.Name) }
func (h *recordingHost) AddFunction(addr uint64) error { return h.record("function") }
func (h *recordingHost) AddEntryPoint(addr uint64, name string) error {
	return h.record("entry " + name)
}

func TestPlanApply(t *testing.T) {
	plan, err := Build(iboot.NewBytesSource(romImage()))
	if err != nil {
		t.Fatal(err)
	}

	h := &recordingHost{}
	if err := plan.Apply(h); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{
		"segment TEXT", "segment CONST", "segment DATA", "segment BSS",
		"function", "function",
		"entry _start",
	}
	if strings.Join(h.calls, ",") != strings.Join(want, ",") {
		t.Errorf("Apply() calls = %v, want %v", h.calls, want)
	}

	h = &recordingHost{fail: "segment DATA"}
	if err := plan.Apply(h); err == nil {
		t.Fatal("Apply() error = nil")
	}
	if len(h.calls) != 3 {
		t.Errorf("Apply() kept going after an error: %v", h.calls)
	}
}

func TestPermString(t *testing.T) {
	tests := map[Perm]string{
		PermRX:   "r-x",
		PermRead: "r--",
		PermRW:   "rw-",
		PermRWX:  "rwx",
		0:        "---",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Perm(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestPermMarshalText(t *testing.T) {
	got, err := PermRX.MarshalText()
	if err != nil || string(got) != "r-x" {
		t.Errorf("MarshalText() = %q, %v", got, err)
	}
}
