package iboot

import (
	"fmt"
)

const stringsChunkSize = 0x10000

// String is a run of printable ASCII found in the image.
type String struct {
	Offset int64  `json:"offset"`
	Value  string `json:"value"`
}

func isPrintableASCII(b byte) bool {
	return b >= 32 && b <= 126
}

// Strings returns every run of at least minLen printable ASCII bytes, in file
// order.
func Strings(src Source, minLen int) ([]String, error) {
	if minLen <= 0 {
		return nil, fmt.Errorf("invalid minimum string length %d", minLen)
	}

	var (
		out   []String
		cur   []byte
		start int64
	)
	flush := func() {
		if len(cur) >= minLen {
			out = append(out, String{Offset: start, Value: string(cur)})
		}
		cur = cur[:0]
	}

	for off := int64(0); off < src.Size(); off += stringsChunkSize {
		n := int(min(stringsChunkSize, src.Size()-off))
		data, err := src.Read(off, n)
		if err != nil {
			return nil, fmt.Errorf("failed to read strings @ %#x: %w", off, err)
		}
		for i, b := range data {
			if !isPrintableASCII(b) {
				flush()
				continue
			}
			if len(cur) == 0 {
				start = off + int64(i)
			}
			cur = append(cur, b)
		}
	}
	flush()

	return out, nil
}
