package sbcfeeder

// FeedingParams describes the PCM source: its sampling frequency, sample
// width, and channel count.
type FeedingParams struct {
	SamplingFreqSrc int // Hz; one of the enumerated source rates
	BitsPerSample   int // only 16 is supported by the upsampler
	NumChannelSrc   int // 1 or 2
}

// codecRateForSource resolves the forced codec rate for a given source
// rate. ok is false for an unrecognized rate, in which case the caller must
// leave the existing codec rate untouched: the switch below is total, not
// partial, for any recognized source rate.
func codecRateForSource(srcHz int) (rate SamplingFreq, ok bool) {
	switch srcHz {
	case 8000, 12000, 16000, 24000, 32000, 48000:
		return SamplingFreq48000, true
	case 11025, 22050, 44100:
		return SamplingFreq44100, true
	default:
		return 0, false
	}
}
