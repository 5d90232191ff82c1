package sbcfeeder

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/a2dpgo/sbcfeeder/pkg/budget"
	"github.com/a2dpgo/sbcfeeder/pkg/codec"
	"github.com/a2dpgo/sbcfeeder/pkg/feeding"
	"github.com/a2dpgo/sbcfeeder/pkg/negotiate"
	"github.com/a2dpgo/sbcfeeder/pkg/packetizer"
	"github.com/a2dpgo/sbcfeeder/pkg/ratemodel"
	"github.com/a2dpgo/sbcfeeder/pkg/resample"
	"github.com/a2dpgo/sbcfeeder/pkg/statsreport"
)

// senderReportPeriod is the minimum interval between the periodic
// RTCP-style stream heartbeats PollSenderReport hands back.
const senderReportPeriod = 5 * time.Second

// mediaBufferCapacity bounds the reserved media buffer this session draws
// packets from, mirroring a fixed host-stack buffer pool size: tx_mtu is
// clamped to buffer_size minus offset and header, in addition to the
// peer's advertised MTU. 663 matches the 2-Mbps EDR packet size cap since
// nothing downstream of this module needs a larger single packet.
const mediaBufferCapacity = 663

// InitParams seeds a freshly created Session, combining the peer's
// negotiated capabilities with the bit-pool window the Negotiator works
// within.
type InitParams struct {
	ChannelMode  ChannelMode
	SubBands     SubBands
	Blocks       Blocks
	Allocation   Allocation
	SamplingFreq SamplingFreq
	NumChannels  int

	MTU               int
	MinBitPool        int
	MaxBitPool        int
	PeerIsEDR         bool
	PeerSupports3Mbps bool
	SCMSTEnabled      bool
}

// UpdateParams reruns the Negotiator against a possibly-changed MTU and
// bit-pool window.
type UpdateParams struct {
	MinMtuSize int
	MinBitPool int
	MaxBitPool int
}

// Session holds one A2DP source stream's full state: configuration,
// feeding state, statistics, and the collaborators wired together from
// pkg/. It is driven exclusively from a single media task and holds no
// internal locking.
type Session struct {
	id uuid.UUID

	cfg           EncoderConfig
	feedingParams FeedingParams

	onWarning WarnFunc
	onError   ErrFunc

	encoder   codec.SBCEncoder
	upsampler resample.Upsampler

	feed       *feeding.Buffer
	budgeter   *budget.Budgeter
	packetizer *packetizer.Packetizer

	read    ReadFunc
	enqueue EnqueueFunc

	payloadType uint8
	ssrc        uint32

	sessionStartUs uint64

	reporter statsreport.Reporter

	// pendingTxSBCFrames holds the Negotiator's tx_sbc_frames result
	// between applyNegotiation and the point where a Budgeter exists to
	// receive it (Init creates the Budgeter after the first negotiation).
	pendingTxSBCFrames int
}

// New allocates a Session. Init must be called before SendFrames.
func New() *Session {
	return &Session{id: uuid.New()}
}

// ID returns the Session's identity, stable for its lifetime.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SetLogHooks installs the warning/error callbacks described in
// callbacks.go. Either may be nil.
func (s *Session) SetLogHooks(onWarning WarnFunc, onError ErrFunc) {
	s.onWarning = onWarning
	s.onError = onError
}

func (s *Session) warn(format string, args ...any) {
	if s.onWarning != nil {
		s.onWarning(fmt.Sprintf(format, args...))
	}
}

func (s *Session) errorf(format string, args ...any) {
	if s.onError != nil {
		s.onError(fmt.Sprintf(format, args...))
	}
}

// Init resets the session to a fresh state, stamps the session start time,
// configures the encoder, chooses the source bit rate, computes tx_mtu,
// initializes the SBC codec and computes the per-tick SBC frame count.
func (s *Session) Init(
	params InitParams,
	nowUs uint64,
	read ReadFunc,
	enqueue EnqueueFunc,
	enc codec.SBCEncoder,
	ups resample.Upsampler,
) error {
	*s = Session{id: s.id, onWarning: s.onWarning, onError: s.onError}

	s.sessionStartUs = nowUs
	s.read = read
	s.enqueue = enqueue
	s.encoder = enc
	s.upsampler = ups

	s.cfg = EncoderConfig{
		ChannelMode:       params.ChannelMode,
		SubBands:          params.SubBands,
		Blocks:            params.Blocks,
		Allocation:        params.Allocation,
		SamplingFreq:      params.SamplingFreq,
		NumChannels:       params.NumChannels,
		BitRateTarget:     ratemodel.SourceRate(params.PeerIsEDR),
		PeerIsEDR:         params.PeerIsEDR,
		PeerSupports3Mbps: params.PeerSupports3Mbps,
		SCMSTEnabled:      params.SCMSTEnabled,
	}

	if s.cfg.SubBands == 0 || s.cfg.Blocks == 0 || s.cfg.NumChannels == 0 {
		return fmt.Errorf("sbcfeeder: Init requires non-zero sub_bands, blocks and num_channels")
	}

	if mediaBufferCapacity < params.MTU {
		s.cfg.TxMTU = mediaBufferCapacity
	} else {
		s.cfg.TxMTU = params.MTU
	}

	res := negotiate.Negotiate(negotiate.Input{
		ChannelMode:  s.cfg.ChannelMode,
		SubBands:     s.cfg.SubBands,
		Blocks:       s.cfg.Blocks,
		NumChannels:  s.cfg.NumChannels,
		SamplingFreq: s.cfg.SamplingFreq,
		PeerIsEDR:    s.cfg.PeerIsEDR,
		MinBitPool:   params.MinBitPool,
		MaxBitPool:   params.MaxBitPool,
	})
	s.applyNegotiation(res)

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.encoder.Reconfigure(s.codecParams()); err != nil {
		return fmt.Errorf("sbcfeeder: encoder reconfigure: %w", err)
	}

	var ssrcBuf [4]byte
	rand.Read(ssrcBuf[:]) //nolint:errcheck
	s.ssrc = uint32(ssrcBuf[0])<<24 | uint32(ssrcBuf[1])<<16 | uint32(ssrcBuf[2])<<8 | uint32(ssrcBuf[3])
	s.payloadType = 96 // dynamic RTP payload type range

	s.budgeter = &budget.Budgeter{PeerIsEDR: s.cfg.PeerIsEDR, TxSBCFrames: s.pendingTxSBCFrames}
	s.wireDownstream()

	return nil
}

// Update re-chooses tx_mtu using MinMtuSize, reruns the Negotiator,
// reinitializes the SBC codec and refreshes the per-tick SBC frame count.
func (s *Session) Update(params UpdateParams) error {
	if mediaBufferCapacity < params.MinMtuSize {
		s.cfg.TxMTU = mediaBufferCapacity
	} else {
		s.cfg.TxMTU = params.MinMtuSize
	}

	res := negotiate.Negotiate(negotiate.Input{
		ChannelMode:  s.cfg.ChannelMode,
		SubBands:     s.cfg.SubBands,
		Blocks:       s.cfg.Blocks,
		NumChannels:  s.cfg.NumChannels,
		SamplingFreq: s.cfg.SamplingFreq,
		PeerIsEDR:    s.cfg.PeerIsEDR,
		MinBitPool:   params.MinBitPool,
		MaxBitPool:   params.MaxBitPool,
	})
	s.applyNegotiation(res)

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.encoder.Reconfigure(s.codecParams()); err != nil {
		return fmt.Errorf("sbcfeeder: encoder reconfigure: %w", err)
	}
	s.wireDownstream()
	return nil
}

func (s *Session) applyNegotiation(res negotiate.Result) {
	for _, w := range res.Warnings {
		s.warn("%s", w)
	}
	for _, e := range res.Errors {
		s.errorf("%s", e)
	}
	s.cfg.SubBands = res.SubBands
	s.cfg.Blocks = res.Blocks
	s.cfg.NumChannels = res.NumChannels
	s.cfg.BitPool = res.BitPool
	s.cfg.BitRateTarget = res.BitRateTarget

	frames, effectiveMTU := ratemodel.MaxFramesPerPacket(s.cfg.rateModelParams())
	s.cfg.TxMTU = effectiveMTU
	s.pendingTxSBCFrames = frames
	if s.budgeter != nil {
		s.budgeter.TxSBCFrames = frames
	}
}

// FeedingInit stores the source parameters, possibly forcing the codec
// rate and stereo output, and reinitializes the SBC codec on change.
func (s *Session) FeedingInit(params FeedingParams) error {
	s.feedingParams = params

	codecRate, ok := codecRateForSource(params.SamplingFreqSrc)
	if !ok {
		s.warn("unsupported source sampling rate %d Hz, codec rate left unchanged", params.SamplingFreqSrc)
	}
	changed := false
	if ok && codecRate != s.cfg.SamplingFreq {
		s.cfg.SamplingFreq = codecRate
		changed = true
	}
	if params.NumChannelSrc == 1 && s.cfg.ChannelMode != ChannelModeJointStereo {
		s.cfg.ChannelMode = ChannelModeJointStereo
		s.cfg.NumChannels = 2
		changed = true
	}

	if changed {
		if err := s.encoder.Reconfigure(s.codecParams()); err != nil {
			return fmt.Errorf("sbcfeeder: encoder reconfigure: %w", err)
		}
	}

	bytesPerTick := params.SamplingFreqSrc * 2 * params.NumChannelSrc * 20 / 1000
	s.budgeter.BytesPerTick = bytesPerTick
	s.budgeter.PCMBytesPerSBCFrame = ratemodel.PCMBytesPerSBCFrame(s.cfg.rateModelParams(), params.NumChannelSrc, 2)

	s.feed = feeding.New(feeding.Params{
		SrcHz:          params.SamplingFreqSrc,
		CodecHz:        int(s.cfg.SamplingFreq),
		SrcChannels:    params.NumChannelSrc,
		BytesPerSample: 2,
		SubBands:       int(s.cfg.SubBands),
		Blocks:         int(s.cfg.Blocks),
		NumChannels:    s.cfg.NumChannels,
	}, feeding.ReadFunc(s.read), s.upsampler)

	s.wireDownstream()
	return nil
}

// FeedingReset zeroes the entire feeding state and recomputes the
// per-tick byte budget.
func (s *Session) FeedingReset() {
	s.budgeter.Reset()
	if s.feed != nil {
		s.feed.Reset(feeding.Params{
			SrcHz:          s.feedingParams.SamplingFreqSrc,
			CodecHz:        int(s.cfg.SamplingFreq),
			SrcChannels:    s.feedingParams.NumChannelSrc,
			BytesPerSample: 2,
			SubBands:       int(s.cfg.SubBands),
			Blocks:         int(s.cfg.Blocks),
			NumChannels:    s.cfg.NumChannels,
		})
	}
	s.budgeter.BytesPerTick = s.feedingParams.SamplingFreqSrc * 2 * s.feedingParams.NumChannelSrc * 20 / 1000
}

// FeedingFlush zeroes the budget counter and feeding residue only; the
// RTP timestamp and cumulative session stats survive.
func (s *Session) FeedingFlush() {
	s.budgeter.Flush()
	if s.feed != nil {
		s.feed.Flush()
	}
}

// Cleanup zeroes the whole control block except for the session's identity
// and logging hooks.
func (s *Session) Cleanup() {
	id := s.id
	onWarning, onError := s.onWarning, s.onError
	*s = Session{id: id, onWarning: onWarning, onError: onError}
}

// EncoderIntervalMS returns the fixed 20ms media tick interval.
func (s *Session) EncoderIntervalMS() int {
	return 20
}

// SendFrames drives one tick of the Packetizer.
func (s *Session) SendFrames(nowUs uint64) {
	if s.packetizer == nil {
		return
	}
	s.packetizer.SendFrames(nowUs)
}

// PollSenderReport returns an RTCP sender report summarizing the stream
// since the last report, or nil if less than senderReportPeriod has
// elapsed or no packet has been sent yet. Call this once per media tick,
// alongside SendFrames.
func (s *Session) PollSenderReport(now time.Time) *rtcp.SenderReport {
	return s.reporter.MaybeReport(now)
}

// timestampSnapshot exposes the Packetizer's current RTP timestamp for
// diagnostics (DebugDump). Returns 0 before the first packet is built.
func (s *Session) timestampSnapshot() uint32 {
	if s.packetizer == nil {
		return 0
	}
	return s.packetizer.Timestamp()
}

func (s *Session) codecParams() codec.Params {
	return codec.Params{
		ChannelMode:  int(s.cfg.ChannelMode),
		SubBands:     int(s.cfg.SubBands),
		Blocks:       int(s.cfg.Blocks),
		Allocation:   int(s.cfg.Allocation),
		SamplingFreq: int(s.cfg.SamplingFreq),
		NumChannels:  s.cfg.NumChannels,
		BitPool:      s.cfg.BitPool,
	}
}

// wireDownstream (re)builds the Packetizer from current state. Called
// after any change to cfg or feed so the Packetizer always sees a
// consistent snapshot; it is cheap enough to rebuild rather than mutate
// in place, matching the reference's "recompute, don't patch" style.
func (s *Session) wireDownstream() {
	if s.feed == nil || s.budgeter == nil {
		return
	}

	frameLen := ratemodel.FrameLength(s.cfg.rateModelParams())

	s.reporter.ClockRate = int(s.cfg.SamplingFreq)
	if s.reporter.Period == 0 {
		s.reporter.Period = senderReportPeriod
	}

	s.packetizer = packetizer.New(
		packetizer.Config{
			TxMTU:               s.cfg.TxMTU,
			SCMSTEnabled:        s.cfg.SCMSTEnabled,
			SubBands:            int(s.cfg.SubBands),
			Blocks:              int(s.cfg.Blocks),
			PCMBytesPerSBCFrame: s.budgeter.PCMBytesPerSBCFrame,
			FrameLength:         frameLen,
			PayloadType:         s.payloadType,
			SSRC:                s.ssrc,
		},
		s.budgeter,
		s.feed,
		s.encoder,
		func(pkt *rtp.Packet, framesConsumed int) bool {
			s.reporter.Observe(pkt.SSRC, pkt.Timestamp, len(pkt.Payload))
			return s.enqueue(pkt, framesConsumed)
		},
	)
}
