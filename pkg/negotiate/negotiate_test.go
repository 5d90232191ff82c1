package negotiate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2dpgo/sbcfeeder/pkg/ratemodel"
)

func TestNegotiateConverges(t *testing.T) {
	in := Input{
		ChannelMode:  ratemodel.ChannelModeJointStereo,
		SubBands:     ratemodel.SubBands8,
		Blocks:       ratemodel.Blocks16,
		NumChannels:  2,
		SamplingFreq: ratemodel.SamplingFreq44100,
		PeerIsEDR:    true,
		MinBitPool:   2,
		MaxBitPool:   53,
	}
	res := Negotiate(in)
	require.False(t, res.Aborted, "unexpected abort: %+v", res)
	require.GreaterOrEqual(t, res.BitPool, in.MinBitPool)
	require.LessOrEqual(t, res.BitPool, in.MaxBitPool)
}

func TestNegotiateAbortsOnImpossibleWindow(t *testing.T) {
	// E6: min==max==250 at 44.1/stereo/16x8 cannot be reached by a 5 kbps
	// step search from the default source rate; the loop must eventually
	// walk both directions and abort, but still commit a bit pool.
	in := Input{
		ChannelMode:  ratemodel.ChannelModeStereo,
		SubBands:     ratemodel.SubBands8,
		Blocks:       ratemodel.Blocks16,
		NumChannels:  2,
		SamplingFreq: ratemodel.SamplingFreq44100,
		PeerIsEDR:    true,
		MinBitPool:   250,
		MaxBitPool:   250,
	}
	res := Negotiate(in)
	require.True(t, res.Aborted, "expected abort, got %+v", res)
	if res.BitPool == 0 {
		require.NotEmpty(t, res.Errors, "expected an error to be recorded on abort")
	}
}

func TestNegotiateDefensiveReset(t *testing.T) {
	in := Input{
		ChannelMode:  ratemodel.ChannelModeJointStereo,
		SubBands:     0,
		Blocks:       0,
		NumChannels:  0,
		SamplingFreq: ratemodel.SamplingFreq44100,
		PeerIsEDR:    true,
		MinBitPool:   2,
		MaxBitPool:   53,
	}
	res := Negotiate(in)
	require.Equal(t, ratemodel.SubBands8, res.SubBands, "defensive reset not applied: %+v", res)
	require.Equal(t, ratemodel.Blocks16, res.Blocks, "defensive reset not applied: %+v", res)
	require.Equal(t, 2, res.NumChannels, "defensive reset not applied: %+v", res)
	require.Len(t, res.Warnings, 3)
}

func TestNegotiateRateMonotoneUntilAbort(t *testing.T) {
	// The negotiator never oscillates: rates visited move strictly in one
	// direction until protect==3. We reconstruct the
	// visited-rate sequence by re-running EstimateBitPool with the same
	// stepping the loop itself uses, and check it never reverses direction
	// before the abort.
	in := Input{
		ChannelMode:  ratemodel.ChannelModeStereo,
		SubBands:     ratemodel.SubBands8,
		Blocks:       ratemodel.Blocks16,
		NumChannels:  2,
		SamplingFreq: ratemodel.SamplingFreq44100,
		PeerIsEDR:    true,
		MinBitPool:   250,
		MaxBitPool:   250,
	}

	rate := ratemodel.SourceRate(in.PeerIsEDR)
	protect := 0
	params := ratemodel.Params{ChannelMode: in.ChannelMode, SubBands: in.SubBands, Blocks: in.Blocks, NumChannels: in.NumChannels}

	direction := 0 // 0 = undecided, 1 = decreasing, 2 = increasing
	directionChanges := 0
	for i := 0; i < 10000; i++ {
		bp := ratemodel.EstimateBitPool(params, rate, int(in.SamplingFreq))
		if bp > in.MaxBitPool {
			if direction == 2 {
				directionChanges++
			}
			direction = 1
			rate -= bitRateStepKbps
			protect |= protectDecreased
		} else if bp < in.MinBitPool {
			if direction == 1 {
				directionChanges++
			}
			direction = 2
			rate += bitRateStepKbps
			protect |= protectIncreased
		} else {
			return
		}
		if protect == (protectDecreased | protectIncreased) {
			require.LessOrEqual(t, directionChanges, 1, "rate direction changed more than once before abort")
			return
		}
	}
	require.Fail(t, "loop did not terminate")
}
