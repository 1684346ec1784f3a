package verification

import (
	"math/rand"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// GenerateCode returns a short alphanumeric verification token for a user to
// place in their profile bio. Matching is case-insensitive, so the token is
// not a secret and does not need a crypto source.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// VerifyCodeInBio reports whether the code appears in the bio text.
// Whitespace runs in the bio collapse to a single space before matching, so a
// code split across lines only matches if the collapse reunites it. Empty
// inputs never match.
func VerifyCodeInBio(bio, code string) bool {
	bio = strings.Join(strings.Fields(bio), " ")
	code = strings.TrimSpace(code)
	if bio == "" || code == "" {
		return false
	}
	return strings.Contains(strings.ToLower(bio), strings.ToLower(code))
}
