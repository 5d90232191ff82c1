// Package feeding implements the feeding buffer: the PCM ingestion stage
// that fills one codec frame's worth of codec-rate PCM per call, either
// directly from the read callback or through a resampling path when the
// source and codec sampling rates differ.
package feeding

import "github.com/a2dpgo/sbcfeeder/pkg/resample"

// ReadFunc mirrors the session's PCM source callback: it must never write
// more than len(dst) bytes and may return fewer, including 0.
type ReadFunc func(dst []byte) (n int)

// Status is the outcome of a ReadOneFrame call.
type Status int

const (
	// Ready means dst_pcm_slab was filled with exactly BytesNeeded bytes.
	Ready Status = iota
	// Starved means not enough source PCM was available this call; the
	// caller should retry on the next tick. Partial progress is retained
	// internally (residue).
	Starved
)

// Params configures a Buffer. SrcHz/CodecHz/SrcChannels select between the
// fast path and the resampling path; BytesPerSample is always 2 (16-bit).
type Params struct {
	SrcHz          int
	CodecHz        int
	SrcChannels    int
	BytesPerSample int

	// SubBands, Blocks, NumChannels determine BytesNeeded = NS*NB*NC*bps,
	// the exact size of one SBC frame's PCM input.
	SubBands    int
	Blocks      int
	NumChannels int
}

func (p Params) bytesNeeded() int {
	return p.SubBands * p.Blocks * p.NumChannels * p.BytesPerSample
}

func (p Params) resampling() bool {
	return p.SrcHz != p.CodecHz
}

// maxUpsampledBufferBytes bounds the resampler's residue buffer, sized for
// the largest frame this module supports: 8 sub-bands, 16 blocks, stereo,
// 16-bit samples.
const maxUpsampledBufferBytes = 8 * 16 * 2 * 2 * 4

// Buffer is the feeding buffer. It is not safe for concurrent use; like the
// rest of the core, it is driven exclusively from the single media task.
type Buffer struct {
	params Params
	read   ReadFunc

	upsampler resample.Upsampler

	// residue holds codec-rate PCM bytes already produced but not yet
	// handed out to a caller, on both the fast path and the resampling
	// path.
	residue    [maxUpsampledBufferBytes]byte
	residueLen int

	aaFeedCounter int // fractional-rate compensation cycle position

	// rawReadBuf is scratch space for the resampling path's source read,
	// sized generously for the largest supported src_samples count.
	rawReadBuf [8 * 16 * 2 * 2]byte
}

// New creates a Buffer. upsampler may be nil if params never requires
// resampling for the lifetime of the Buffer; it is only Init'd and used
// lazily on the resampling path.
func New(params Params, read ReadFunc, upsampler resample.Upsampler) *Buffer {
	return &Buffer{params: params, read: read, upsampler: upsampler}
}

// Reset replaces the params and zeroes the feeding state held here:
// residue and cycle position are cleared. The credit counter lives in the
// Budgeter, not here.
func (b *Buffer) Reset(params Params) {
	b.params = params
	b.residueLen = 0
	b.aaFeedCounter = 0
	for i := range b.residue {
		b.residue[i] = 0
	}
}

// Flush zeroes only the residue and cycle position, preserving the RTP
// timestamp and cumulative session stats that live elsewhere. The credit
// counter itself lives in the Budgeter, not here.
func (b *Buffer) Flush() {
	b.residueLen = 0
	b.aaFeedCounter = 0
}

// ReadOneFrame fills dst with exactly BytesNeeded bytes of codec-rate PCM.
// dst must be at least that long; only the first BytesNeeded bytes are
// touched.
func (b *Buffer) ReadOneFrame(dst []byte) Status {
	needed := b.params.bytesNeeded()
	if b.params.resampling() {
		return b.readResampling(dst, needed)
	}
	return b.readFastPath(dst, needed)
}

// readFastPath keeps its partial reads in the internal residue buffer
// rather than the caller's dst slab: the Packetizer zeroes dst on every
// call, so a starved read's bytes would otherwise be lost before the next
// attempt resumes them.
func (b *Buffer) readFastPath(dst []byte, needed int) Status {
	n := b.read(b.residue[b.residueLen:needed])
	b.residueLen += n
	if b.residueLen < needed {
		return Starved
	}
	copy(dst[:needed], b.residue[:needed])
	b.residueLen = 0
	return Ready
}

func (b *Buffer) readResampling(dst []byte, needed int) Status {
	srcSamples := b.params.SubBands * b.params.Blocks * b.params.SrcHz / b.params.CodecHz
	srcSamples += b.fractionalCompensation()

	readSize := srcSamples * b.params.SrcChannels * b.params.BytesPerSample
	if readSize > len(b.rawReadBuf) {
		readSize = len(b.rawReadBuf)
	}

	n := b.read(b.rawReadBuf[:readSize])
	if n == 0 {
		return Starved
	}
	if n < readSize {
		for i := n; i < readSize; i++ {
			b.rawReadBuf[i] = 0
		}
	}

	b.upsampler.Init(b.params.SrcHz, b.params.CodecHz, b.params.BytesPerSample*8, b.params.SrcChannels)
	_, dstUsed, _ := b.upsampler.Process(b.rawReadBuf[:readSize], b.residue[b.residueLen:])
	b.residueLen += dstUsed

	if b.residueLen < needed {
		return Starved
	}

	copy(dst[:needed], b.residue[:needed])
	remaining := b.residueLen - needed
	copy(b.residue[:remaining], b.residue[needed:b.residueLen])
	b.residueLen = remaining
	return Ready
}

// fractionalCompensation is the split-read schedule that keeps
// integer-truncated src_samples from silently dropping a rational fraction
// of a sample per read.
func (b *Buffer) fractionalCompensation() int {
	var period, bonusMask int
	switch b.params.SrcHz {
	case 32000, 8000:
		period, bonusMask = 3, 1<<0
	case 16000:
		period, bonusMask = 3, 1<<0|1<<1
	default:
		return 0
	}

	bonus := 0
	if bonusMask&(1<<b.aaFeedCounter) != 0 {
		bonus = 1
	}
	b.aaFeedCounter = (b.aaFeedCounter + 1) % period
	return bonus
}
