package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// JoinCodeLength is the number of characters in a classroom join code
const JoinCodeLength = 6

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateJoinCode generates a random classroom join code of uppercase
// letters and digits
func GenerateJoinCode() (string, error) {
	code := make([]byte, JoinCodeLength)

	for i := 0; i < JoinCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = joinCodeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// NormalizeJoinCode trims and uppercases a code typed by a student
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidJoinCode reports whether code has the join code shape
func IsValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(joinCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
