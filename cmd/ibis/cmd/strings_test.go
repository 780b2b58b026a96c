/*
Copyright © 2018-2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"testing"

	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/blacktop/ibis/pkg/loader"
)

func TestSegmentStrings(t *testing.T) {
	text, cnst := uint64(0), uint64(0x1000)
	plan := &loader.Plan{Segments: []loader.Segment{
		{Name: "TEXT", Start: 0x100000000, Size: 0x1000, FileOffset: &text, FileSize: 0x1000},
		{Name: "CONST", Start: 0x100001000, Size: 0x1000, FileOffset: &cnst, FileSize: 0x800},
		{Name: "BSS", Start: 0x180000000, Size: 0x4000},
	}}
	strs := []iboot.String{
		{Offset: 0x10, Value: "_start"},
		{Offset: 0x1040, Value: "%llx:%d"},
		{Offset: 0x1900, Value: "past CONST file data"},
	}

	tests := []struct {
		segment string
		want    []uint64
	}{
		{"", []uint64{0x100000010, 0x100001040}},
		{"CONST", []uint64{0x100001040}},
		{"DATA", nil},
	}
	for _, tt := range tests {
		got := segmentStrings(plan, strs, tt.segment)
		if len(got) != len(tt.want) {
			t.Fatalf("segmentStrings(%q) = %v, want addresses %#x", tt.segment, got, tt.want)
		}
		for i, addr := range tt.want {
			if got[i].Address != addr {
				t.Errorf("segmentStrings(%q)[%d] = %#x, want %#x", tt.segment, i, got[i].Address, addr)
			}
		}
	}
}
