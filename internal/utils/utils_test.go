package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestSha256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iBoot.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Sha256(path)
	if err != nil {
		t.Fatalf("Sha256() error = %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sha256() = %s, want %s", got, want)
	}
	if ShortHash(got) != "ba7816b" {
		t.Errorf("ShortHash() = %s", ShortHash(got))
	}

	if _, err := Sha256(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Sha256() of missing file succeeded")
	}
}

func TestShortHash(t *testing.T) {
	tests := []struct {
		name string
		sum  string
		want string
	}{
		{"long", "0123456789abcdef", "0123456"},
		{"exact", "0123456", "0123456"},
		{"short", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortHash(tt.sum); got != tt.want {
				t.Errorf("ShortHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHexDump(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	color.NoColor = true

	if HexDump(nil, 0) != "" {
		t.Error("HexDump(nil) is not empty")
	}

	data := []byte("0123456789abcdef\x00AB")
	got := HexDump(data, 0x100000000)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("HexDump() = %d lines, want 2:\n%s", len(lines), got)
	}
	want0 := "0000000100000000:  30 31 32 33 34 35 36 37  38 39 61 62 63 64 65 66  |0123456789abcdef|"
	if lines[0] != want0 {
		t.Errorf("line 0 = %q\nwant     %q", lines[0], want0)
	}
	if !strings.HasPrefix(lines[1], "0000000100000010:  00 41 42 ") || !strings.HasSuffix(lines[1], "|.AB|") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestPad(t *testing.T) {
	if Pad(4) != "    " || Pad(0) != "" || Pad(-1) != "" {
		t.Error("Pad() returned the wrong width")
	}
}
