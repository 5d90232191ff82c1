package budget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTickBudgetFirstCallUsesDefaultTick(t *testing.T) {
	b := &Budgeter{
		BytesPerTick:        4 * 1000 * 2 * 20 / 1000, // arbitrary bytes/tick
		PCMBytesPerSBCFrame: 8 * 16 * 2 * 2,
		PeerIsEDR:           false,
	}
	noi, nof := b.ComputeTickBudget(123456)
	require.GreaterOrEqual(t, noi, 0)
	require.GreaterOrEqual(t, nof, 0)
	require.EqualValues(t, 1, b.Stats.ExpectedCount)
	// One default 20ms tick of credit (160 bytes), not 123456us worth;
	// less than a frame, so none of it was consumed.
	require.EqualValues(t, 160, b.counter)
}

func TestComputeTickBudgetNonEDRSingleIteration(t *testing.T) {
	b := &Budgeter{
		BytesPerTick:        44100 * 2 * 2 * 20 / 1000,
		PCMBytesPerSBCFrame: 8 * 16 * 2 * 2,
		PeerIsEDR:           false,
	}
	now := uint64(20000)
	for i := 0; i < 10; i++ {
		noi, _ := b.ComputeTickBudget(now)
		require.Equalf(t, 1, noi, "non-EDR iteration count must always be 1, got %d at tick %d", noi, i)
		now += 20000
	}
}

func TestComputeTickBudgetFirstCapClampsAndRecordsLimited(t *testing.T) {
	b := &Budgeter{
		BytesPerTick:        8 * 16 * 2 * 2 * 100, // way more than one tick's worth
		PCMBytesPerSBCFrame: 8 * 16 * 2 * 2,
		PeerIsEDR:           false,
	}
	_, nof := b.ComputeTickBudget(20000)
	require.LessOrEqual(t, nof, MaxPCMFrameNumPerTick)
	require.EqualValues(t, 1, b.Stats.LimitedCount)
}

func TestComputeTickBudgetEDRIterationCapDrainsCredit(t *testing.T) {
	frameBytes := 8 * 16 * 2 * 2
	b := &Budgeter{
		BytesPerTick:        frameBytes * 13, // just under MaxPCMFrameNumPerTick=14
		PCMBytesPerSBCFrame: frameBytes,
		PeerIsEDR:           true,
		TxSBCFrames:         2, // small nof forces noi = projected/nof > 3
	}
	noi, nof := b.ComputeTickBudget(40000)
	require.LessOrEqual(t, noi, MaxPCMIterNumPerTick)
	if noi > 1 {
		require.Equal(t, 2, nof, "expected nof to settle to tx_sbc_frames (2) when clamped")
	}
}

func TestCreditRefundsUnderrun(t *testing.T) {
	b := &Budgeter{
		BytesPerTick:        1000,
		PCMBytesPerSBCFrame: 512,
		PeerIsEDR:           false,
	}
	b.ComputeTickBudget(20000)
	before := b.counter
	b.Credit(512)
	require.Equal(t, before+512, b.counter, "Credit did not add to counter")
}

func TestFlushPreservesLastFrameUsResetClearsIt(t *testing.T) {
	b := &Budgeter{BytesPerTick: 1000, PCMBytesPerSBCFrame: 512}
	b.ComputeTickBudget(50000)
	require.NotZero(t, b.lastFrameUs, "expected lastFrameUs to be set")

	b.Flush()
	require.NotZero(t, b.lastFrameUs, "Flush must preserve last_frame_us")
	require.Zero(t, b.counter, "Flush must zero counter")

	b.Reset()
	require.Zero(t, b.lastFrameUs, "Reset must zero last_frame_us")
}
