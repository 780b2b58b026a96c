package iboot

import (
	"bytes"
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/lzfse-cgo"
)

var (
	lzfseStart = []byte{0x62, 0x76, 0x78, 0x32} // bvx2
	lzfseEnd   = []byte{0x62, 0x76, 0x78, 0x24} // bvx$
)

const payloadChunkSize = 0x10000

// Payload is an LZFSE compressed blob embedded in the image (SMC or ANS
// firmware on some iBoot builds).
type Payload struct {
	Name   string
	Offset int64
	Size   int64 // compressed
	Data   []byte
}

// Payloads locates and decompresses every embedded LZFSE blob.
func Payloads(src Source) ([]Payload, error) {
	var payloads []Payload

	for cursor := int64(0); cursor < src.Size(); {
		start, ok, err := FindAny(src, [][]byte{lzfseStart}, cursor, src.Size(), payloadChunkSize, false)
		if err != nil {
			return nil, fmt.Errorf("failed to search for lzfse start: %w", err)
		}
		if !ok {
			break
		}
		end, ok, err := FindAny(src, [][]byte{lzfseEnd}, start+int64(len(lzfseStart)), src.Size(), payloadChunkSize, false)
		if err != nil {
			return nil, fmt.Errorf("failed to search for lzfse end: %w", err)
		}
		if !ok {
			log.Debugf("Unterminated lzfse stream @ %#x", start)
			break
		}
		end += int64(len(lzfseEnd))

		data, err := src.Read(start, int(end-start))
		if err != nil {
			return nil, fmt.Errorf("failed to read lzfse stream @ %#x: %w", start, err)
		}
		decomp := lzfse.DecodeBuffer(data)
		if len(decomp) == 0 {
			log.Debugf("Failed to decompress lzfse stream @ %#x", start)
			cursor = end
			continue
		}

		payloads = append(payloads, Payload{
			Name:   payloadName(decomp, len(payloads)),
			Offset: start,
			Size:   end - start,
			Data:   decomp,
		})
		cursor = end
	}

	return payloads, nil
}

func payloadName(data []byte, idx int) string {
	switch {
	case bytes.Contains(data, []byte("AppleSMCFirmware")):
		return "AppleSMCFirmware.bin"
	case bytes.Contains(data, []byte("AppleStorageProcessorANS2")):
		return "AppleStorageProcessorANS2.bin"
	default:
		return fmt.Sprintf("iboot_blob%02d.bin", idx)
	}
}
