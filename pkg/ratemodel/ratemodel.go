// Package ratemodel implements the pure arithmetic of the SBC encoder:
// frame length, bit-pool estimation, PCM-bytes-per-frame, and
// max-frames-per-packet. Every function here is a pure function of its
// inputs — no I/O, no mutable state — so it is also where the enumerated
// configuration types for channel mode, sub-bands, blocks and sampling
// frequency live; the rest of the module imports them from here rather
// than duplicating them.
package ratemodel

import "fmt"

// ChannelMode selects the SBC channel-coding mode.
type ChannelMode int

// Channel modes supported by SBC.
const (
	ChannelModeMono ChannelMode = iota
	ChannelModeDual
	ChannelModeStereo
	ChannelModeJointStereo
)

// String implements fmt.Stringer.
func (m ChannelMode) String() string {
	switch m {
	case ChannelModeMono:
		return "mono"
	case ChannelModeDual:
		return "dual"
	case ChannelModeStereo:
		return "stereo"
	case ChannelModeJointStereo:
		return "joint-stereo"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

// NumChannels returns the channel count implied by the mode.
func (m ChannelMode) NumChannels() int {
	if m == ChannelModeMono {
		return 1
	}
	return 2
}

// jointBitsPerSubBand is the "(mode − 2)" term of A2DP Spec v1.3 §12.4,
// tabulated explicitly rather than relying on the numeric coincidence that
// JOINT_STEREO happens to be adjacent to STEREO in the bluedroid enum. Mono
// and dual never reach the formula that uses this term.
func (m ChannelMode) jointBitsPerSubBand() int {
	if m == ChannelModeJointStereo {
		return 1
	}
	return 0
}

// SubBands is the SBC sub-band count.
type SubBands int

// Legal sub-band counts.
const (
	SubBands4 SubBands = 4
	SubBands8 SubBands = 8
)

// Blocks is the SBC block count.
type Blocks int

// Legal block counts.
const (
	Blocks4  Blocks = 4
	Blocks8  Blocks = 8
	Blocks12 Blocks = 12
	Blocks16 Blocks = 16
)

// Allocation selects the SBC bit-allocation method. It does not affect any
// formula in this package; the codec collaborator uses it directly.
type Allocation int

// Allocation methods.
const (
	AllocationLoudness Allocation = iota
	AllocationSNR
)

// SamplingFreq is a codec-rate sampling frequency, in Hz.
type SamplingFreq int

// Sampling frequencies the SBC codec may run at.
const (
	SamplingFreq16000 SamplingFreq = 16000
	SamplingFreq32000 SamplingFreq = 32000
	SamplingFreq44100 SamplingFreq = 44100
	SamplingFreq48000 SamplingFreq = 48000
)

// Params is the subset of the encoder configuration the rate model needs.
type Params struct {
	ChannelMode  ChannelMode
	SubBands     SubBands
	Blocks       Blocks
	NumChannels  int
	BitPool      int
	SamplingFreq SamplingFreq

	PeerIsEDR         bool
	PeerSupports3Mbps bool
	TxMTU             int

	// SCMSTEnabled reserves one extra header byte for content-protection
	// framing. No content-protection logic is implemented; this is only
	// the size reservation.
	SCMSTEnabled bool
}

const (
	frameHeaderSizeBytes = 4 // A2DP Spec v1.3 §12.4, Table 12.12
	scaleFactorBits      = 4 // A2DP Spec v1.3 §12.4, Table 12.13

	nonEDRSourceRateKbps = 229
	edrSourceRateKbps    = 328

	max2MbpsAVDTPMTU = 663 // 2DH5 payload: 679 - 4 (L2CAP) - 12 (AVDTP)

	maxHQFrameSize44100 = 119
	maxHQFrameSize48000 = 115
)

// SourceRate returns the target bit rate in kbps used to seed the bit-pool
// negotiation: the "high quality at 44.1 kHz" rate for EDR peers, or the
// non-EDR cap otherwise.
func SourceRate(peerIsEDR bool) int {
	if peerIsEDR {
		return edrSourceRateKbps
	}
	return nonEDRSourceRateKbps
}

// FrameLength computes the SBC frame length in bytes per A2DP Spec v1.3
// §12.4, given the channel mode, sub-bands, blocks, channel count and
// bit-pool in p. SamplingFreq and MTU-related fields are ignored.
func FrameLength(p Params) int {
	ns := int(p.SubBands)
	nb := int(p.Blocks)
	nc := p.NumChannels
	bp := p.BitPool

	header := frameHeaderSizeBytes + (scaleFactorBits*ns*nc)/8

	switch p.ChannelMode {
	case ChannelModeMono, ChannelModeDual:
		return header + (nb*nc*bp)/8
	case ChannelModeStereo:
		return header + (nb*bp)/8
	case ChannelModeJointStereo:
		return header + (ns+nb*bp)/8
	default:
		return 0
	}
}

// EstimateBitPool computes the bit pool that yields a frame length closest
// to rateKbps at samplingHz. Negative outcomes are clamped to zero. The
// stereo/joint-stereo branch clamps to 255 (8 sub-bands) or 128 (4
// sub-bands); the mono/dual branch clamps to 16·NS.
//
// EstimateBitPool panics if SubBands, Blocks, or NumChannels is zero: the
// caller (the Negotiator) is responsible for a defensive reset before
// calling in.
func EstimateBitPool(p Params, rateKbps int, samplingHz int) int {
	ns := int(p.SubBands)
	nb := int(p.Blocks)
	nc := p.NumChannels
	if ns == 0 || nb == 0 || nc == 0 {
		panic("ratemodel: EstimateBitPool called with a zero sub-bands/blocks/channels")
	}

	switch p.ChannelMode {
	case ChannelModeStereo, ChannelModeJointStereo:
		joint := p.ChannelMode.jointBitsPerSubBand() * ns

		bp := (rateKbps*ns*1000)/samplingHz - (32+4*ns*nc+joint)/nb

		frameLen := frameHeaderSizeBytes + (4*ns*nc)/8 + (joint+nb*bp)/8
		effectiveRate := (8 * frameLen * samplingHz) / (ns * nb * 1000)
		if effectiveRate > rateKbps {
			bp--
		}

		maxBP := 128
		if ns == 8 {
			maxBP = 255
		}
		if bp > maxBP {
			bp = maxBP
		}
		if bp < 0 {
			bp = 0
		}
		return bp

	default: // mono, dual
		bp := (ns*rateKbps*1000)/(samplingHz*nc) - (32/nc+4*ns)/nb

		maxBP := 16 * ns
		if bp > maxBP {
			bp = maxBP
		}
		if bp < 0 {
			bp = 0
		}
		return bp
	}
}

// PCMBytesPerSBCFrame returns the number of source-channel PCM bytes that
// make up one SBC frame's worth of input, using numChannelSrc and
// bytesPerSample from the feeding parameters (NOT the codec channel count:
// the PCM slab is consumed before any channel-count forcing takes effect on
// the encoder side, matching the original's use of feeding_params fields in
// this computation).
func PCMBytesPerSBCFrame(p Params, numChannelSrc, bytesPerSample int) int {
	return int(p.SubBands) * int(p.Blocks) * numChannelSrc * bytesPerSample
}

// MaxFramesPerPacket computes the number of SBC frames that fit in one RTP
// payload under the configured MTU. It returns the frame count and, when
// the 2-Mbps MTU clamp applies, the clamped MTU the caller should persist
// back onto its configuration (the clamp is returned rather than mutated
// in place, since Params is a value type).
func MaxFramesPerPacket(p Params) (frames int, effectiveMTU int) {
	mtu := p.TxMTU
	if p.PeerIsEDR && !p.PeerSupports3Mbps && mtu > max2MbpsAVDTPMTU {
		mtu = max2MbpsAVDTPMTU
	}

	frameLen := FrameLength(p)
	if frameLen == 0 {
		switch p.SamplingFreq {
		case SamplingFreq48000:
			frameLen = maxHQFrameSize48000
		default:
			frameLen = maxHQFrameSize44100
		}
	}

	hdrSize := 1
	if p.SCMSTEnabled {
		hdrSize = 2
	}

	if frameLen <= 0 {
		return 0, mtu
	}
	return (mtu - hdrSize) / frameLen, mtu
}
