// Package sbcfeeder implements the real-time PCM-to-SBC feeder and AVDTP
// media packetizer for a Bluetooth A2DP source role.
//
// It consumes linear PCM from a caller-supplied read callback, resamples it
// when the source rate doesn't match the negotiated SBC rate, drives a
// caller-supplied SBC encoder one frame at a time, and hands completed AVDTP
// media packets to a caller-supplied enqueue callback. The SBC codec itself,
// the PCM upsampler, and the AVDTP/L2CAP transport are collaborators: this
// package only implements the driver logic that sits between them.
package sbcfeeder
