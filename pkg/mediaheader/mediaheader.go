// Package mediaheader packs and unpacks the one-byte A2DP SBC media payload
// header that precedes the SBC frames inside each RTP payload (A2DP v1.3.2
// §12.4): a 4-bit frame-count field plus fragmentation flags this module
// never sets (no fragmentation support here), packed with mediacommon's
// bit-packer rather than hand-rolled shifts.
package mediaheader

import "github.com/bluenviron/mediacommon/v2/pkg/bits"

// Header is the decoded form of the one-byte A2DP media payload header.
type Header struct {
	Fragmented bool
	StartOfFragment bool
	LastFragment    bool
	NumFrames       int // 0-15: the field is 4 bits wide
}

// Marshal packs h into a single byte.
func (h Header) Marshal() byte {
	buf := make([]byte, 1)
	pos := 0
	bits.WriteBitsUnsafe(buf, &pos, boolBit(h.Fragmented), 1)
	bits.WriteBitsUnsafe(buf, &pos, boolBit(h.StartOfFragment), 1)
	bits.WriteBitsUnsafe(buf, &pos, boolBit(h.LastFragment), 1)
	bits.WriteBitsUnsafe(buf, &pos, 0, 1) // RFA
	bits.WriteBitsUnsafe(buf, &pos, uint64(h.NumFrames), 4)
	return buf[0]
}

// Unmarshal decodes a single media payload header byte.
func Unmarshal(b byte) (Header, error) {
	buf := []byte{b}
	pos := 0
	frag, err := bits.ReadBits(buf, &pos, 1)
	if err != nil {
		return Header{}, err
	}
	start, err := bits.ReadBits(buf, &pos, 1)
	if err != nil {
		return Header{}, err
	}
	last, err := bits.ReadBits(buf, &pos, 1)
	if err != nil {
		return Header{}, err
	}
	if _, err := bits.ReadBits(buf, &pos, 1); err != nil { // RFA
		return Header{}, err
	}
	n, err := bits.ReadBits(buf, &pos, 4)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Fragmented:      frag != 0,
		StartOfFragment: start != 0,
		LastFragment:    last != 0,
		NumFrames:       int(n),
	}, nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
