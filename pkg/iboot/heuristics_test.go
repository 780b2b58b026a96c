package iboot

import "testing"

func TestAlign(t *testing.T) {
	tests := []struct {
		v, size  uint64
		down, up uint64
	}{
		{0x15088, 0x10, 0x15080, 0x15090},
		{0x15080, 0x10, 0x15080, 0x15080},
		{0x35F7B0, 0x1000, 0x35F000, 0x360000},
		{0x35F7B0, 0x4000, 0x35C000, 0x360000},
		{0, 0x4000, 0, 0},
	}
	for _, tt := range tests {
		if got := alignDown(tt.v, tt.size); got != tt.down {
			t.Errorf("alignDown(%#x, %#x) = %#x, want %#x", tt.v, tt.size, got, tt.down)
		}
		if got := alignUp(tt.v, tt.size); got != tt.up {
			t.Errorf("alignUp(%#x, %#x) = %#x, want %#x", tt.v, tt.size, got, tt.up)
		}
	}
}

func TestGuessPageBoundary(t *testing.T) {
	img := make([]byte, 0x10000)
	img[0x9000] = 0xff

	tests := []struct {
		name string
		off  uint64
		want uint64
	}{
		{"empty page rounds to 16K", 0x5000, 0x8000},
		{"dirty page stays", 0x9000, 0x9000},
		{"already 16K aligned", 0x4000, 0x4000},
		{"end of image rounds to 16K", 0x11000, 0x14000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guessPageBoundary(NewBytesSource(img), tt.off)
			if err != nil {
				t.Fatalf("guessPageBoundary() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("guessPageBoundary() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestBssFromTable(t *testing.T) {
	if got := bssFromTable(0x1FC47C680, -0x1000); got != nil {
		t.Errorf("bssFromTable() = %s, want nil", got)
	}
	got := bssFromTable(0x1FC00C680, 0x1FC028081)
	if got == nil {
		t.Fatal("bssFromTable() = nil")
	}
	if got.Start != 0x1FC00C680 || got.End != 0x1FC028081 || got.FileOffset != nil {
		t.Errorf("bssFromTable() = %s", got)
	}
}
