package room

import (
	"crypto/rand"
	"encoding/hex"
)

const defaultRoomCodeBytes = 4

func newRoomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
