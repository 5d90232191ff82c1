// Package packetizer drains the frame budgeter's per-tick allowance into
// one or more AVDTP media payloads, each carried as a pion/rtp.Packet the
// way A2DP media actually rides RTP over L2CAP, and hands finished packets
// to an enqueue callback that may refuse delivery under transport
// back-pressure.
package packetizer

import (
	"github.com/pion/rtp"

	"github.com/a2dpgo/sbcfeeder/pkg/budget"
	"github.com/a2dpgo/sbcfeeder/pkg/codec"
	"github.com/a2dpgo/sbcfeeder/pkg/feeding"
	"github.com/a2dpgo/sbcfeeder/pkg/mediaheader"
)

// maxFramesPerPacket is the 4-bit frame-count field's hard ceiling: a
// packet holds at most 15 frames.
const maxFramesPerPacket = 15

// EnqueueFunc hands a finished RTP packet to the transport. framesConsumed
// is the number of SBC frames packed into pkt, for caller-side accounting.
// Returning false signals back-pressure: the Packetizer stops for the rest
// of the tick immediately without refunding the current iteration.
type EnqueueFunc func(pkt *rtp.Packet, framesConsumed int) (accepted bool)

// Config is the subset of session configuration the Packetizer needs on
// every encode_packet call.
type Config struct {
	TxMTU        int
	SCMSTEnabled bool

	SubBands int
	Blocks   int

	PCMBytesPerSBCFrame int
	FrameLength         int // ratemodel.FrameLength(cfg), used for the MTU continuation check

	PayloadType uint8
	SSRC        uint32
}

func (c Config) headerSize() int {
	if c.SCMSTEnabled {
		return 2
	}
	return 1
}

// Packetizer turns budgeted PCM frames into RTP packets. It is not safe
// for concurrent use; it is driven exclusively from the single media task.
type Packetizer struct {
	cfg Config

	budgeter *budget.Budgeter
	feed     *feeding.Buffer
	enc      codec.SBCEncoder
	enqueue  EnqueueFunc

	sequenceNumber uint16
	timestamp      uint32

	pcmSlab []byte
}

// New creates a Packetizer over its collaborators. The caller owns
// budgeter/feed/enc's lifecycle (init, reconfiguration on renegotiation).
func New(cfg Config, budgeter *budget.Budgeter, feed *feeding.Buffer, enc codec.SBCEncoder, enqueue EnqueueFunc) *Packetizer {
	return &Packetizer{
		cfg:      cfg,
		budgeter: budgeter,
		feed:     feed,
		enc:      enc,
		enqueue:  enqueue,
		pcmSlab:  make([]byte, cfg.PCMBytesPerSBCFrame),
	}
}

// Timestamp returns the next RTP timestamp that will be stamped on an
// outgoing packet, for diagnostics.
func (p *Packetizer) Timestamp() uint32 {
	return p.timestamp
}

// SendFrames runs one tick: it asks the budgeter for this tick's
// allowance and builds that many packets.
func (p *Packetizer) SendFrames(nowUs uint64) {
	noi, nof := p.budgeter.ComputeTickBudget(nowUs)
	if nof == 0 {
		return
	}
	for i := 0; i < noi; i++ {
		if !p.encodePacket(nof) {
			return
		}
	}
}

// encodePacket packs up to nbFrame SBC frames into one or more RTP
// packets, stopping early on starvation or transport back-pressure. It
// returns false when the enqueue callback refused a packet.
func (p *Packetizer) encodePacket(nbFrame int) bool {
	for nbFrame > 0 {
		payload := make([]byte, 1, estimatePacketCapacity(p.cfg))
		frameCount := 0

		for {
			for i := range p.pcmSlab {
				p.pcmSlab[i] = 0
			}

			status := p.feed.ReadOneFrame(p.pcmSlab)
			if status == feeding.Starved {
				p.budgeter.Credit(nbFrame * p.cfg.PCMBytesPerSBCFrame)
				nbFrame = 0
				break
			}

			before := len(payload)
			n, err := p.enc.EncodeFrame(asInt16(p.pcmSlab), payload)
			if err != nil {
				p.budgeter.Credit(nbFrame * p.cfg.PCMBytesPerSBCFrame)
				nbFrame = 0
				break
			}
			payload = payload[:before+n]
			frameCount++
			nbFrame--

			if len(payload)+p.cfg.FrameLength >= p.cfg.TxMTU || frameCount >= maxFramesPerPacket || nbFrame <= 0 {
				break
			}
		}

		if frameCount == 0 {
			return true
		}

		h := mediaheader.Header{NumFrames: frameCount}
		payload[0] = h.Marshal()

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    p.cfg.PayloadType,
				SequenceNumber: p.sequenceNumber,
				Timestamp:      p.timestamp,
				SSRC:           p.cfg.SSRC,
			},
			Payload: payload,
		}
		p.sequenceNumber++
		p.timestamp += uint32(frameCount * p.cfg.SubBands * p.cfg.Blocks)

		if !p.enqueue(pkt, frameCount) {
			return false
		}
	}
	return true
}

// estimatePacketCapacity sizes the payload allocation for one packet. The
// capacity is a hard bound: EncodeFrame receives payload by value and
// appends into its backing array, and encodePacket reslices payload to the
// appended length, which fails if the encoder had to reallocate. The MTU
// check in encodePacket keeps frames of FrameLength bytes within it.
func estimatePacketCapacity(cfg Config) int {
	if cfg.TxMTU > 0 {
		return cfg.TxMTU
	}
	return 1 + cfg.headerSize()
}

func asInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return out
}
