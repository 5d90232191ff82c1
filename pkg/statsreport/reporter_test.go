package statsreport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMaybeReportNilBeforeFirstPacket(t *testing.T) {
	r := &Reporter{ClockRate: 44100, Period: time.Second}
	require.Nil(t, r.MaybeReport(time.Now()), "expected nil before any packet observed")
}

func TestMaybeReportRespectsPeriod(t *testing.T) {
	r := &Reporter{ClockRate: 44100, Period: time.Second}
	base := time.Unix(1000, 0)
	r.Observe(0x1234, 100, 64)

	first := r.MaybeReport(base)
	require.NotNil(t, first, "expected a report on first poll after observing a packet")
	require.EqualValues(t, 0x1234, first.SSRC)
	require.EqualValues(t, 100, first.RTPTime)
	require.EqualValues(t, 64, first.OctetCount)
	require.EqualValues(t, 1, first.PacketCount)

	second := r.MaybeReport(base.Add(500 * time.Millisecond))
	require.Nil(t, second, "expected nil before Period elapses")

	third := r.MaybeReport(base.Add(1100 * time.Millisecond))
	require.NotNil(t, third, "expected a report once Period has elapsed")
}

func TestObserveAccumulatesAcrossPackets(t *testing.T) {
	r := &Reporter{ClockRate: 44100, Period: time.Second}
	r.Observe(1, 10, 100)
	r.Observe(1, 20, 150)
	r.Observe(1, 30, 200)

	report := r.MaybeReport(time.Unix(0, 0))
	require.EqualValues(t, 3, report.PacketCount)
	require.EqualValues(t, 450, report.OctetCount)
	require.EqualValues(t, 30, report.RTPTime)
}
