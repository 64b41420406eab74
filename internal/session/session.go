package session

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet drops visually confusable symbols (0/O, 1/I) so codes survive
// being read off a projector.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of symbols in a room code.
const CodeLength = 6

// Prefix namespaces session ids on the shared peer directory.
const Prefix = "ff-quiz-"

// GenerateRoomCode draws six independent uniform samples from Alphabet.
// Codes are not globally unique; a collision surfaces at bind time as
// peer.ErrAddressUnavailable.
func GenerateRoomCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[num.Int64()]
	}
	return string(code), nil
}

// SessionID maps a room code to its globally addressable session id. Entry
// is case-insensitive: the code is uppercased before the prefix is applied.
func SessionID(code string) string {
	return Prefix + strings.ToUpper(strings.TrimSpace(code))
}
