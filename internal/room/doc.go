// Package room implements the signaling coordinator: per-room rosters,
// join/leave lifecycle, and directed relay of opaque negotiation messages.
//
// Glare avoidance is by convention: the joining participant receives the
// roster as it was before its own insertion and is the sole initiator
// toward every member of that snapshot. Join order is total per room
// (operations on one room are serialized), so every pair has exactly one
// initiator for the lifetime of the room.
package room
