package resample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeMono(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[2*i] = byte(uint16(s))
		b[2*i+1] = byte(uint16(s) >> 8)
	}
	return b
}

func decodeStereo(b []byte) (l, r []int16) {
	n := len(b) / 4
	l = make([]int16, n)
	r = make([]int16, n)
	for i := 0; i < n; i++ {
		l[i] = int16(uint16(b[4*i]) | uint16(b[4*i+1])<<8)
		r[i] = int16(uint16(b[4*i+2]) | uint16(b[4*i+3])<<8)
	}
	return
}

func TestFixedRatioRejectsBadParams(t *testing.T) {
	var f FixedRatio
	require.Error(t, f.Init(16000, 48000, 8, 1), "expected error for non-16-bit input")
	require.Error(t, f.Init(16000, 48000, 16, 3), "expected error for unsupported channel count")
	require.Error(t, f.Init(0, 48000, 16, 1), "expected error for zero source rate")
}

func TestFixedRatioUpsamplesMonoToStereo(t *testing.T) {
	var f FixedRatio
	require.NoError(t, f.Init(16000, 48000, 16, 1))

	src := encodeMono([]int16{100, 200, 300, 400, 500, 600, 700, 800})
	dst := make([]byte, 4*64)

	srcUsed, dstUsed, err := f.Process(src, dst)
	require.NoError(t, err)
	require.NotZero(t, srcUsed, "expected forward progress")
	require.NotZero(t, dstUsed, "expected forward progress")
	require.LessOrEqual(t, srcUsed, len(src))
	require.LessOrEqual(t, dstUsed, len(dst))
	require.Zero(t, dstUsed%4, "dstUsed not a whole number of stereo frames")

	l, r := decodeStereo(dst[:dstUsed])
	require.Equal(t, l, r, "mono source must duplicate to stereo")

	// Output should roughly track the ratio: 3x more output frames than
	// source frames consumed, within rounding.
	consumedFrames := srcUsed / 2
	outFrames := dstUsed / 4
	wantApprox := consumedFrames * 3
	require.InDelta(t, wantApprox, outFrames, 3, "output frame count too far from expected")
}

func TestFixedRatioContinuityAcrossCalls(t *testing.T) {
	var f FixedRatio
	require.NoError(t, f.Init(16000, 48000, 16, 1))

	src1 := encodeMono([]int16{0, 1000, 2000, 3000})
	dst1 := make([]byte, 4*20)
	used1, out1, err := f.Process(src1, dst1)
	require.NoError(t, err)

	src2 := encodeMono([]int16{3000, 2000, 1000, 0})
	dst2 := make([]byte, 4*20)
	_, out2, err := f.Process(src2, dst2)
	require.NoError(t, err)

	require.NotZero(t, used1, "expected forward progress on both calls")
	require.NotZero(t, out1, "expected forward progress on both calls")
	require.NotZero(t, out2, "expected forward progress on both calls")
}

func TestFixedRatioHandlesShortInput(t *testing.T) {
	var f FixedRatio
	require.NoError(t, f.Init(16000, 48000, 16, 2))
	src := make([]byte, 2) // less than one stereo frame
	dst := make([]byte, 64)
	srcUsed, dstUsed, err := f.Process(src, dst)
	require.NoError(t, err)
	require.Zero(t, srcUsed, "expected no progress on a partial frame")
	require.Zero(t, dstUsed, "expected no progress on a partial frame")
}
