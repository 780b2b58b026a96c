package iboot

import (
	"errors"
	"testing"
)

func TestRegionIsValid(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		want   bool
	}{
		{"non-empty", Region{Start: 0x1000, End: 0x2000}, true},
		{"empty", Region{Start: 0x1000, End: 0x1000}, false},
		{"inverted", Region{Start: 0x2000, End: 0x1000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.region.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegionCompare(t *testing.T) {
	a := Region{Start: 0x1000, End: 0x1FFF}
	b := Region{Start: 0x2000, End: 0x3000}
	if !a.Before(b) || a.After(b) || a.Overlaps(b) {
		t.Errorf("%s should be before %s", a, b)
	}
	if !b.After(a) || b.Before(a) {
		t.Errorf("%s should be after %s", b, a)
	}

	c := Region{Start: 0x1000, End: 0x2500}
	if c.Before(b) || !c.Overlaps(b) {
		t.Errorf("%s should overlap %s", c, b)
	}

	// Touching regions are neither before nor after each other.
	d := Region{Start: 0x1000, End: 0x2000}
	if !d.Overlaps(b) {
		t.Errorf("%s should overlap %s", d, b)
	}

	if !NewRegion(0x2000, 0x3000, 0x10).Equal(NewRegion(0x2000, 0x3000, 0x10)) {
		t.Error("identical regions are not equal")
	}
	if NewRegion(0x2000, 0x3000, 0x10).Equal(b) {
		t.Error("file backed region equals unbacked region")
	}
}

func TestRegionString(t *testing.T) {
	if got := NewRegion(0x100015080, 0x100017e70, 0x15080).String(); got != "(0x15080, 0x17e70) -> (0x100015080, 0x100017e70)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Region{Start: 0x1800807c0, End: 0x180087aa0}).String(); got != "(0x1800807c0, 0x180087aa0)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLayoutRegions(t *testing.T) {
	l := Layout{
		Text:  Region{Start: 0x1000, End: 0x2000},
		Const: Region{Start: 0x2000, End: 0x3000},
		Data:  Region{Start: 0x3000, End: 0x4000},
	}
	var names []string
	for _, nr := range l.Regions() {
		names = append(names, nr.Name)
	}
	if len(names) != 3 || names[0] != "TEXT" || names[1] != "CONST" || names[2] != "DATA" {
		t.Errorf("Regions() names = %v", names)
	}

	l.Bss = &Region{Start: 0x4000, End: 0x5000}
	if got := l.Regions(); len(got) != 4 || got[3].Name != "BSS" {
		t.Errorf("Regions() = %v", got)
	}
}

func TestLayoutValidate(t *testing.T) {
	bss := &Region{Start: 0x4000, End: 0x5000}
	tests := []struct {
		name    string
		layout  Layout
		wantErr error
	}{
		{
			name: "valid",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x2000},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x3000, End: 0x4000},
				Bss:   bss,
			},
		},
		{
			name: "valid without bss",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x2000},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x8000, End: 0x9000},
			},
		},
		{
			name: "zero size region",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x1000},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x3000, End: 0x4000},
				Bss:   bss,
			},
			wantErr: ErrMalformedRegion,
		},
		{
			name: "inverted bss",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x2000},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x3000, End: 0x4000},
				Bss:   &Region{Start: 0x5000, End: 0x4000},
			},
			wantErr: ErrMalformedRegion,
		},
		{
			name: "text overlaps const",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x2500},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x3000, End: 0x4000},
				Bss:   bss,
			},
			wantErr: ErrMalformedLayout,
		},
		{
			name: "data below const",
			layout: Layout{
				Text:  Region{Start: 0x1000, End: 0x2000},
				Const: Region{Start: 0x2000, End: 0x3000},
				Data:  Region{Start: 0x500, End: 0x800},
			},
			wantErr: ErrMalformedLayout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
