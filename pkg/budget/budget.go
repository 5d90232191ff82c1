// Package budget implements the frame budgeter: the per-tick scheduler
// that turns elapsed wall-clock time into a (iterations,
// frames-per-iteration) pair, under a per-tick frame cap and an EDR
// iteration cap.
package budget

// MaxPCMFrameNumPerTick is a platform constant bounding PCM frames
// produced per tick, typically 14.
const MaxPCMFrameNumPerTick = 14

// MaxPCMIterNumPerTick bounds how many packet-building iterations a single
// tick may run under the EDR drain path.
const MaxPCMIterNumPerTick = 3

// defaultTickUs is the assumed elapsed time on the very first call, when
// there is no previous timestamp to diff against.
const defaultTickUs = 20000

// Stats accumulates a write-mostly counter set. Never reset during a
// session; read only for diagnostics.
type Stats struct {
	ExpectedTotal int64
	ExpectedMax   int
	ExpectedCount int64

	LimitedTotal int64
	LimitedMax   int
	LimitedCount int64
}

func (s *Stats) observeExpected(projected int) {
	s.ExpectedTotal += int64(projected)
	if projected > s.ExpectedMax {
		s.ExpectedMax = projected
	}
	s.ExpectedCount++
}

func (s *Stats) observeLimited(projected int) {
	s.LimitedTotal += int64(projected)
	if projected > s.LimitedMax {
		s.LimitedMax = projected
	}
	s.LimitedCount++
}

// Budgeter holds the credit-accounting state: bytes_per_tick, counter,
// last_frame_us and the current tx_sbc_frames hint the Negotiator last
// computed.
type Budgeter struct {
	BytesPerTick       int
	PCMBytesPerSBCFrame int
	PeerIsEDR          bool
	TxSBCFrames        int // last value the Negotiator computed; 0 means stale

	counter    int64
	lastFrameUs uint64

	Stats Stats
}

// Credit adds bytes back to the counter. Used by the Packetizer to refund
// an under-run: the refund happens here, at the point the Packetizer
// discovers it couldn't fill a frame, not inside ComputeTickBudget.
func (b *Budgeter) Credit(bytes int) {
	b.counter += int64(bytes)
}

// Reset zeroes the counter and last-tick timestamp. Recomputing
// bytes_per_tick is the caller's responsibility, since it depends on
// feeding params this package doesn't own.
func (b *Budgeter) Reset() {
	b.counter = 0
	b.lastFrameUs = 0
}

// Flush zeroes only the counter, preserving last_frame_us.
func (b *Budgeter) Flush() {
	b.counter = 0
}

// ComputeTickBudget turns elapsed wall-clock time since the last call into
// an (iterations, frames-per-iteration) pair for the current tick.
func (b *Budgeter) ComputeTickBudget(nowUs uint64) (iterations, framesPerIteration int) {
	var delta uint64
	if b.lastFrameUs == 0 {
		delta = defaultTickUs
	} else {
		delta = nowUs - b.lastFrameUs
	}
	b.lastFrameUs = nowUs

	b.counter += int64(b.BytesPerTick) * int64(delta) / defaultTickUs

	if b.PCMBytesPerSBCFrame <= 0 {
		return 0, 0
	}
	projected := int(b.counter / int64(b.PCMBytesPerSBCFrame))
	b.Stats.observeExpected(projected)

	if projected > MaxPCMFrameNumPerTick {
		b.Stats.observeLimited(projected)
		projected = MaxPCMFrameNumPerTick
	}

	var noi, nof int
	if b.PeerIsEDR {
		if b.TxSBCFrames == 0 {
			// TxSBCFrames stale: this package does not recompute it via
			// the rate model; the Session assigns it after every
			// negotiation. Fall through to the projected/1 pair, same as
			// the nof >= projected branch below.
			nof = projected
			noi = 1
		} else {
			nof = b.TxSBCFrames
			if nof < projected {
				noi = projected / nof
				if noi > MaxPCMIterNumPerTick {
					noi = MaxPCMIterNumPerTick
					b.counter = int64(noi) * int64(nof) * int64(b.PCMBytesPerSBCFrame)
					projected = nof
				}
			} else {
				nof = projected
				noi = 1
			}
		}
	} else {
		noi = 1
		if projected > MaxPCMFrameNumPerTick {
			b.counter = int64(projected) * int64(b.PCMBytesPerSBCFrame)
		}
		nof = projected
	}

	b.counter -= int64(noi) * int64(nof) * int64(b.PCMBytesPerSBCFrame)
	return noi, nof
}
