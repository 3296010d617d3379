package room

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomClosed is returned when an operation races with the teardown of
	// an emptied room. Callers surface it as ErrRoomNotFound; by the time the
	// caller retries, the code resolves to nothing (or to a fresh room).
	ErrRoomClosed   = errors.New("room closed")
	ErrRoomFull     = errors.New("room full")
	ErrTooManyRooms = errors.New("too many rooms")

	ErrAlreadyJoined = errors.New("participant already joined")

	ErrUnknownSender    = errors.New("unknown sender")
	ErrUnknownRecipient = errors.New("unknown recipient")
	ErrSelfTarget       = errors.New("self-targeted signal")
)
