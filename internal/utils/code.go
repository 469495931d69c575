package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// CodeAlphabet is the character set of profile codes.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a profile code.
const CodeLength = 6

const maxCodeAttempts = 100

var ErrCodeSpaceExhausted = errors.New("could not generate a unique code")

// GenerateCode returns a random code of CodeLength characters from
// CodeAlphabet.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = CodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GenerateUniqueCode returns a code that is not in existing.
func GenerateUniqueCode(existing []string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c] = struct{}{}
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, ok := taken[code]; !ok {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
