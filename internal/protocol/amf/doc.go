// Package amf owns the AMF0 value contract used by RTMP command messages.
//
// Ownership boundary:
// - type markers and the tagged Value shape
// - body decoding into top-level value lists
// - encoding of outbound session commands
package amf
