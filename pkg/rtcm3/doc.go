// Package rtcm3 turns a raw, noisy byte stream into a sequence of
// validated RTCM 10403.x correction frames.
//
// A Framer is restartable mid-stream, tolerant of interleaved NMEA text
// and arbitrary garbage, and indifferent to how its input is chunked: one
// byte at a time or in bulk reads produce the same frames in the same
// order.
package rtcm3
