// Package testcodec provides a deterministic fake SBCEncoder for tests.
// It stands in for a real SBC bitstream encoder wherever a test needs to
// drive the Packetizer end to end.
package testcodec

import "github.com/a2dpgo/sbcfeeder/pkg/codec"

// Fake is a codec.SBCEncoder that appends a fixed-size marker frame per
// call instead of real SBC bits. FrameBytes controls how many bytes
// EncodeFrame appends, mimicking sbc_frame_length() for a given config.
type Fake struct {
	FrameBytes int

	LastParams  codec.Params
	ReconfigureCalls int
	EncodeCalls int

	// FailAfter, if > 0, makes EncodeFrame return an error starting on
	// call number FailAfter (1-indexed). 0 means never fail.
	FailAfter int
}

func (f *Fake) Reconfigure(p codec.Params) error {
	f.LastParams = p
	f.ReconfigureCalls++
	return nil
}

func (f *Fake) EncodeFrame(pcm []int16, dst []byte) (int, error) {
	f.EncodeCalls++
	if f.FailAfter > 0 && f.EncodeCalls >= f.FailAfter {
		return 0, errFakeEncode{}
	}
	n := f.FrameBytes
	for i := 0; i < n; i++ {
		dst = append(dst, byte(i))
	}
	return n, nil
}

type errFakeEncode struct{}

func (errFakeEncode) Error() string { return "testcodec: simulated encode failure" }
