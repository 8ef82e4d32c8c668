// Package uniuri generates cryptographically secure random strings used for
// gallery identifiers and secret keys.
package uniuri

import "crypto/rand"

const (
	// IdentifierLen is the length of a gallery's URL slug.
	IdentifierLen = 12
	// SecretKeyLen is the length of a generated gallery secret key.
	SecretKeyLen = 24
)

// StdChars is the character set used for generated strings.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// identifierChars avoids upper case so slugs survive case-insensitive
// lookups and copy-paste into URLs.
var identifierChars = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

// NewIdentifier returns a new random gallery slug.
func NewIdentifier() string {
	return NewLenChars(IdentifierLen, identifierChars)
}

// NewSecretKey returns a new random gallery secret key.
func NewSecretKey() string {
	return NewLenChars(SecretKeyLen, StdChars)
}

// NewLenChars returns a random string of the given length drawn uniformly
// from chars. The charset must hold between 2 and 256 bytes.
func NewLenChars(length int, chars []byte) string {
	if length == 0 {
		return ""
	}
	clen := len(chars)
	if clen < 2 || clen > 256 {
		panic("uniuri: wrong charset length for NewLenChars")
	}

	// Reject bytes above maxRb to avoid modulo bias.
	maxRb := 255 - (256 % clen)
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			if int(rb) > maxRb {
				continue
			}
			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				return string(out)
			}
		}
	}
}
