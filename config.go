package sbcfeeder

import (
	"fmt"

	"github.com/a2dpgo/sbcfeeder/pkg/ratemodel"
)

// The enumerated configuration types live in pkg/ratemodel, the pure leaf
// package every other part of the module depends on; they are re-exported
// here so callers of the root package don't need a second import.
type (
	ChannelMode  = ratemodel.ChannelMode
	SubBands     = ratemodel.SubBands
	Blocks       = ratemodel.Blocks
	Allocation   = ratemodel.Allocation
	SamplingFreq = ratemodel.SamplingFreq
)

// Channel modes, sub-band counts, block counts, allocation methods and
// sampling frequencies, re-exported from pkg/ratemodel.
const (
	ChannelModeMono        = ratemodel.ChannelModeMono
	ChannelModeDual        = ratemodel.ChannelModeDual
	ChannelModeStereo      = ratemodel.ChannelModeStereo
	ChannelModeJointStereo = ratemodel.ChannelModeJointStereo

	SubBands4 = ratemodel.SubBands4
	SubBands8 = ratemodel.SubBands8

	Blocks4  = ratemodel.Blocks4
	Blocks8  = ratemodel.Blocks8
	Blocks12 = ratemodel.Blocks12
	Blocks16 = ratemodel.Blocks16

	AllocationLoudness = ratemodel.AllocationLoudness
	AllocationSNR      = ratemodel.AllocationSNR

	SamplingFreq16000 = ratemodel.SamplingFreq16000
	SamplingFreq32000 = ratemodel.SamplingFreq32000
	SamplingFreq44100 = ratemodel.SamplingFreq44100
	SamplingFreq48000 = ratemodel.SamplingFreq48000
)

// EncoderConfig is the encoder configuration. Between Init/Update calls it
// changes only through negotiation results (BitPool, BitRateTarget, the
// clamped TxMTU and defensively reset SubBands/Blocks/NumChannels) and
// through FeedingInit (SamplingFreq, ChannelMode, NumChannels).
type EncoderConfig struct {
	ChannelMode  ChannelMode
	SubBands     SubBands
	Blocks       Blocks
	Allocation   Allocation
	SamplingFreq SamplingFreq
	NumChannels  int

	BitPool       int
	BitRateTarget int // kbps

	TxMTU int // bytes

	PeerIsEDR         bool
	PeerSupports3Mbps bool

	// SCMSTEnabled reserves one extra header byte; no content-protection
	// logic is implemented here.
	SCMSTEnabled bool
}

// Validate checks that NumChannels == 1 iff ChannelMode == Mono, and that
// BitPool falls within [2, 250].
func (c *EncoderConfig) Validate() error {
	if c.ChannelMode == ChannelModeMono && c.NumChannels != 1 {
		return fmt.Errorf("sbcfeeder: mono channel mode requires NumChannels == 1, got %d", c.NumChannels)
	}
	if c.ChannelMode != ChannelModeMono && c.NumChannels != 2 {
		return fmt.Errorf("sbcfeeder: non-mono channel mode requires NumChannels == 2, got %d", c.NumChannels)
	}
	if c.BitPool < 2 || c.BitPool > 250 {
		return fmt.Errorf("sbcfeeder: bit pool %d out of range [2, 250]", c.BitPool)
	}
	return nil
}

// rateModelParams projects an EncoderConfig (plus the defensive clamps the
// Negotiator may have already applied) into a ratemodel.Params value.
func (c *EncoderConfig) rateModelParams() ratemodel.Params {
	return ratemodel.Params{
		ChannelMode:       c.ChannelMode,
		SubBands:          c.SubBands,
		Blocks:            c.Blocks,
		NumChannels:       c.NumChannels,
		BitPool:           c.BitPool,
		SamplingFreq:      c.SamplingFreq,
		PeerIsEDR:         c.PeerIsEDR,
		PeerSupports3Mbps: c.PeerSupports3Mbps,
		TxMTU:             c.TxMTU,
		SCMSTEnabled:      c.SCMSTEnabled,
	}
}
