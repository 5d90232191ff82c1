package sbcfeeder

import (
	"fmt"
	"io"

	"github.com/a2dpgo/sbcfeeder/pkg/budget"
	"github.com/a2dpgo/sbcfeeder/pkg/debugserver"
)

// Statistics is a cumulative, write-mostly counter set: it is updated on
// every tick but only ever read for diagnostics, never on the hot path. It
// is never reset across FeedingReset/FeedingFlush — only Init and Cleanup
// zero it.
type Statistics struct {
	ExpectedTotal int64
	ExpectedMax   int
	ExpectedCount int64

	LimitedTotal int64
	LimitedMax   int
	LimitedCount int64
}

func fromBudgetStats(s budget.Stats) Statistics {
	return Statistics{
		ExpectedTotal: s.ExpectedTotal,
		ExpectedMax:   s.ExpectedMax,
		ExpectedCount: s.ExpectedCount,
		LimitedTotal:  s.LimitedTotal,
		LimitedMax:    s.LimitedMax,
		LimitedCount:  s.LimitedCount,
	}
}

// DebugDump writes a text report of cumulative stats to sink.
func (s *Session) DebugDump(sink io.Writer) error {
	stats := fromBudgetStats(s.budgeter.Stats)
	_, err := fmt.Fprintf(sink,
		"sbcfeeder session %s\n"+
			"  timestamp=%d bit_pool=%d tx_mtu=%d tx_sbc_frames=%d\n"+
			"  expected: total=%d max=%d count=%d\n"+
			"  limited:  total=%d max=%d count=%d\n",
		s.id,
		s.timestampSnapshot(),
		s.cfg.BitPool,
		s.cfg.TxMTU,
		s.budgeter.TxSBCFrames,
		stats.ExpectedTotal, stats.ExpectedMax, stats.ExpectedCount,
		stats.LimitedTotal, stats.LimitedMax, stats.LimitedCount,
	)
	return err
}

// Snapshot builds the JSON-serializable stats view debugserver.Server
// broadcasts to connected websocket clients. Callers own the Server's
// lifecycle and call this on whatever cadence they want the live stats
// feed refreshed (it does not have to match the media tick).
func (s *Session) Snapshot() debugserver.Snapshot {
	stats := fromBudgetStats(s.budgeter.Stats)
	return debugserver.Snapshot{
		ExpectedTotal: stats.ExpectedTotal,
		ExpectedMax:   stats.ExpectedMax,
		ExpectedCount: stats.ExpectedCount,
		LimitedTotal:  stats.LimitedTotal,
		LimitedMax:    stats.LimitedMax,
		LimitedCount:  stats.LimitedCount,
		Timestamp:     s.timestampSnapshot(),
		BitPool:       s.cfg.BitPool,
	}
}
