// Package statsreport periodically summarizes the session's stream state
// as an RTCP sender report, supplementing the session's text-only debug
// dump with a machine-readable stream heartbeat. Unlike a
// goroutine-and-ticker sender, it is polled from the single media task on
// every tick, never runs its own goroutine, and is driven purely by
// SendFrames observing packets as they're emitted — keeping the core free
// of internal locking.
package statsreport

import (
	"time"

	"github.com/pion/rtcp"

	"github.com/a2dpgo/sbcfeeder/pkg/ntp"
)

// Reporter accumulates per-packet counters and emits an rtcp.SenderReport
// no more often than Period, when polled via MaybeReport.
type Reporter struct {
	ClockRate int
	Period    time.Duration

	havePacket     bool
	lastReportAt   time.Time
	lastTimestamp  uint32
	ssrc           uint32
	packetCount    uint32
	octetCount     uint32
}

// Observe records one emitted RTP packet's contribution to the next
// report. Call this from the Packetizer's enqueue path.
func (r *Reporter) Observe(ssrc uint32, timestamp uint32, payloadLen int) {
	r.havePacket = true
	r.ssrc = ssrc
	r.lastTimestamp = timestamp
	r.packetCount++
	r.octetCount += uint32(payloadLen)
}

// MaybeReport returns a sender report if at least Period has elapsed since
// the last one (or none has ever been sent), and nil otherwise. Call this
// once per send_frames tick.
func (r *Reporter) MaybeReport(now time.Time) *rtcp.SenderReport {
	if !r.havePacket {
		return nil
	}
	if !r.lastReportAt.IsZero() && now.Sub(r.lastReportAt) < r.Period {
		return nil
	}
	r.lastReportAt = now

	return &rtcp.SenderReport{
		SSRC:        r.ssrc,
		NTPTime:     ntp.Encode(now),
		RTPTime:     r.lastTimestamp,
		PacketCount: r.packetCount,
		OctetCount:  r.octetCount,
	}
}
