// Package negotiate implements the bit-pool negotiation loop: given a
// peer's [MinBitPool, MaxBitPool] window, bracket the target bit rate
// until the rate model's estimated bit pool lands inside the window.
package negotiate

import (
	"github.com/a2dpgo/sbcfeeder/pkg/ratemodel"
)

const bitRateStepKbps = 5

// protect bits: 1 = rate was decreased at least once, 2 = rate was
// increased at least once. protect == 3 means the loop walked both
// directions without converging and aborted. Kept as a bitmask to match
// the observable abort condition; callers should depend only on the
// Aborted flag, not this value.
const (
	protectDecreased = 1 << 0
	protectIncreased = 1 << 1
)

// Input is the subset of encoder configuration the Negotiator needs. Zero
// SubBands, Blocks, or NumChannels trigger a defensive reset to their
// maxima before anything divides by them.
type Input struct {
	ChannelMode ratemodel.ChannelMode
	SubBands    ratemodel.SubBands
	Blocks      ratemodel.Blocks
	NumChannels int

	SamplingFreq ratemodel.SamplingFreq
	PeerIsEDR    bool

	MinBitPool int
	MaxBitPool int
}

// Result is the outcome of a negotiation run.
type Result struct {
	// SubBands, Blocks, NumChannels are echoed back, defensively reset to
	// their maxima if the input had a zero value in any of them.
	SubBands    ratemodel.SubBands
	Blocks      ratemodel.Blocks
	NumChannels int

	BitPool       int
	BitRateTarget int // kbps, final target used to reach BitPool

	// Aborted is true if the bracketing loop walked both directions
	// (protect == 3) without landing inside [MinBitPool, MaxBitPool]. The
	// committed BitPool is still usable: it is committed unconditionally at
	// the end regardless of Aborted.
	Aborted bool

	// Warnings/Errors collect the non-fatal log lines the Negotiator would
	// emit, in order, so callers can route them through their own logger
	// without the package importing one.
	Warnings []string
	Errors   []string
}

// Negotiate runs the bit-pool bracketing loop.
func Negotiate(in Input) Result {
	res := Result{
		SubBands:    in.SubBands,
		Blocks:      in.Blocks,
		NumChannels: in.NumChannels,
	}

	if res.SubBands == 0 {
		res.Warnings = append(res.Warnings, "sub-bands were 0, resetting to max (8)")
		res.SubBands = ratemodel.SubBands8
	}
	if res.Blocks == 0 {
		res.Warnings = append(res.Warnings, "blocks were 0, resetting to max (16)")
		res.Blocks = ratemodel.Blocks16
	}
	if res.NumChannels == 0 {
		res.Warnings = append(res.Warnings, "channels were 0, resetting to max (2)")
		res.NumChannels = 2
	}

	rate := ratemodel.SourceRate(in.PeerIsEDR)
	protect := 0
	bp := 0

	params := ratemodel.Params{
		ChannelMode: in.ChannelMode,
		SubBands:    res.SubBands,
		Blocks:      res.Blocks,
		NumChannels: res.NumChannels,
	}

	for {
		bp = ratemodel.EstimateBitPool(params, rate, int(in.SamplingFreq))

		if bp > in.MaxBitPool {
			rate -= bitRateStepKbps
			protect |= protectDecreased
		} else if bp < in.MinBitPool {
			prev := rate
			rate += bitRateStepKbps
			protect |= protectIncreased
			if rate < prev {
				protect |= protectDecreased | protectIncreased
			}
		} else {
			break
		}

		if protect == (protectDecreased | protectIncreased) {
			res.Errors = append(res.Errors, "could not find a bit pool in range")
			break
		}
	}

	res.BitPool = bp
	res.BitRateTarget = rate
	res.Aborted = protect == (protectDecreased | protectIncreased)
	return res
}
