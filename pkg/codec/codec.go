// Package codec defines the SBC encoder collaborator interface. The SBC
// codec itself — the psychoacoustic bit allocation, sub-band analysis
// filter and bitstream packer — lives outside this module; this package
// only names the boundary the Packetizer calls across.
package codec

// Params is the encoder configuration an SBC codec implementation needs to
// reconfigure itself. It mirrors the fields of sbcfeeder.EncoderConfig that
// affect the bitstream, without importing the root package (to avoid an
// import cycle, since the root package configures codecs).
type Params struct {
	ChannelMode  int // see ratemodel.ChannelMode values
	SubBands     int
	Blocks       int
	Allocation   int
	SamplingFreq int // Hz
	NumChannels  int
	BitPool      int
}

// SBCEncoder is the boundary between the feeder/packetizer and a concrete
// SBC implementation. Reconfigure is called whenever the Negotiator commits
// a new bit pool or the feeding sampling rate changes.
// EncodeFrame consumes exactly one SBC frame's worth of PCM (NS·NB·NC
// samples, interleaved, 16-bit) and appends the encoded bitstream to dst,
// returning the number of bytes appended.
type SBCEncoder interface {
	Reconfigure(p Params) error
	EncodeFrame(pcm []int16, dst []byte) (n int, err error)
}
