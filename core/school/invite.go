package school

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I).
// 32 symbols: each random byte maps uniformly with a plain mask.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLen      = 6

	// maxCodeAttempts bounds the retries against the invite_code unique index.
	maxCodeAttempts = 5
)

var readRandFunc = rand.Read // mockable

// generateInviteCode draws a 6-character class invite code.
// The code is the sole credential to join a class, hence crypto/rand.
func generateInviteCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := readRandFunc(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	code := make([]byte, codeLen)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)&(len(codeAlphabet)-1)]
	}
	return string(code), nil
}
