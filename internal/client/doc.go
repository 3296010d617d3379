// Package client implements a reference mesh participant: it speaks the
// signaling wire protocol over WebSocket and brings up a pion data channel
// to every other participant in the room.
//
// The initiation rule is fixed by the server's join snapshot. A client
// offers to every peer listed in its own room_joined snapshot and answers
// offers from peers that join later. Each connected pair therefore has
// exactly one offerer.
package client
