// Package signaling contains the WebSocket surface of the mesh signaling
// server: the wire protocol for room lifecycle and negotiation relay, and
// the per-connection handling that feeds the room coordinator.
//
// Negotiation payloads (SDP, ICE candidates) are opaque to this package;
// they are validated for presence only and relayed verbatim.
package signaling
