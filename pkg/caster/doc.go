// Package caster implements an NTRIP caster: a TCP listener that speaks
// the minimal HTTP/1.1-shaped NTRIP protocol, admits clients against a
// fixed set of mountpoints and an optional credential table, and fans
// out RTCM3 frames from a single producer to every admitted subscriber.
//
// The protocol surface is deliberately narrow — a GET for "/" returns a
// source-table, a GET for a known mountpoint either streams or rejects —
// so the whole session is handled over a raw net.Conn rather than
// net/http; subscribers hold their connection open indefinitely once
// admitted, which net/http's request/response model does not express
// cleanly.
package caster
