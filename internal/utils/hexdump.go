package utils

import (
	"fmt"
	"strings"

	"github.com/blacktop/ibis/internal/colors"
)

var colorAddr = colors.Faint().SprintFunc()
var colorZero = colors.FaintHiBlue().SprintFunc()

// HexDump formats data like `hexdump -C`, with lines addressed from vaddr.
// Zero bytes are dimmed.
func HexDump(data []byte, vaddr uint64) string {
	if len(data) == 0 {
		return ""
	}

	var sb strings.Builder
	for line := 0; line < len(data); line += 16 {
		end := min(line+16, len(data))
		chunk := data[line:end]

		sb.WriteString(colorAddr(fmt.Sprintf("%016x:", vaddr+uint64(line))))
		sb.WriteString("  ")
		for i := range 16 {
			switch {
			case i >= len(chunk):
				sb.WriteString("   ")
			case chunk[i] == 0:
				sb.WriteString(colorZero("00"))
				sb.WriteByte(' ')
			default:
				fmt.Fprintf(&sb, "%02x ", chunk[i])
			}
			if i == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, b := range chunk {
			sb.WriteByte(printable(b))
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

func printable(b byte) byte {
	if b < 32 || b > 126 {
		return '.'
	}
	return b
}
