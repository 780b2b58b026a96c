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
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/pkg/iboot"
)

// hex6 formats like Python's "#08x": at least six digits after the prefix.
func hex6(v uint64) string {
	return fmt.Sprintf("0x%06x", v)
}

func regionLine(nr iboot.NamedRegion) string {
	var fileSpan string
	if nr.FileOffset != nil {
		off := *nr.FileOffset
		fileSpan = hex6(off) + "-" + hex6(off+nr.Size())
	}
	addrSpan := hex6(nr.Start) + "-" + fmt.Sprintf("%#x", nr.End)
	return fmt.Sprintf("%s%-28s%-24s%s",
		colors.Region(nr.Name).Sprintf("%-12s", nr.Name),
		addrSpan,
		fileSpan,
		hex6(nr.Size()),
	)
}

func printLayout(w io.Writer, ctx *iboot.Context, layout *iboot.Layout) {
	fmt.Fprintf(w, "%s\n\n", ctx)
	for _, nr := range layout.Regions() {
		fmt.Fprintln(w, regionLine(nr))
	}
}

type regionJSON struct {
	Offset *uint64 `json:"offset"`
	Size   uint64  `json:"size"`
	Start  uint64  `json:"start"`
	End    uint64  `json:"end"`
}

// orderedRegions marshals as an object keyed by region name, in layout order.
type orderedRegions []iboot.NamedRegion

func (o orderedRegions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nr := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nr.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(regionJSON{
			Offset: nr.FileOffset,
			Size:   nr.Size(),
			Start:  nr.Start,
			End:    nr.End,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type layoutJSON struct {
	App     string         `json:"app"`
	Version string         `json:"version"`
	Target  string         `json:"target"`
	Regions orderedRegions `json:"regions"`
}

func printLayoutJSON(w io.Writer, ctx *iboot.Context, layout *iboot.Layout) error {
	dat, err := json.Marshal(layoutJSON{
		App:     ctx.App.String(),
		Version: ctx.Version.String(),
		Target:  ctx.Target,
		Regions: orderedRegions(layout.Regions()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	_, err = fmt.Fprintln(w, string(dat))
	return err
}
