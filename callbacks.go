package sbcfeeder

import "github.com/pion/rtp"

// ReadFunc is the PCM source callback: it must never write more than
// len(dst) bytes and may return fewer, including 0. Bytes are
// little-endian signed 16-bit PCM interleaved across channels at
// FeedingParams.SamplingFreqSrc.
type ReadFunc func(dst []byte) (n int)

// EnqueueFunc hands a completed AVDTP media payload, wrapped as an RTP
// packet (A2DP media rides RTP over L2CAP), to the transport. true means
// accepted and ownership taken; false means refused, and the Session stops
// emitting for this tick (transport back-pressure).
type EnqueueFunc func(pkt *rtp.Packet, framesConsumedThisCall int) (accepted bool)

// WarnFunc and ErrFunc are the Session's logging hooks: the core never
// decides how a warning or error is rendered, only that one occurred.
// Either may be nil, in which case the event is silently dropped — nothing
// here is fatal to the owning process.
type WarnFunc func(msg string)
type ErrFunc func(msg string)
