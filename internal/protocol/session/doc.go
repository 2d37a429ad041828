// Package session owns the client side of an RTMP session.
//
// Ownership boundary:
// - rtmp/rtmps url parsing and transport security
// - handshake and connect
// - protocol control handling (chunk size, acknowledgements, pings)
// - createStream/play follow-up commands
//
// Packets are handed to the caller unmodified; interpreting command bodies beyond
// the session's own transaction results is the caller's concern.
package session
