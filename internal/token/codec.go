// Package token implements the redemption token codec: generation of
// human-typeable plaintexts, normalization of user input, and the keyed
// digest that is the only form ever persisted. All functions are pure
// and safe for concurrent use.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Alphabet excludes visually ambiguous characters (no 0/O, no 1/I) so
// tokens survive being read aloud or copied by hand.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Default token shape: XXXX-XXXX-XXXX.
const (
	DefaultParts   = 3
	DefaultPartLen = 4
)

// ErrInvalidFormatParams is returned by Generate for non-positive shape
// parameters.
var ErrInvalidFormatParams = errors.New("invalid token format params")

var whitespace = regexp.MustCompile(`\s+`)

// Normalize trims the input, strips all internal whitespace and
// uppercases the rest. It is applied both to generated plaintexts and to
// user-submitted tokens before matching, so redemption tolerates
// copy-paste noise.
func Normalize(raw string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// Generate produces a separator-joined plaintext of parts segments, each
// partLen characters drawn from Alphabet using crypto/rand.
func Generate(parts, partLen int) (string, error) {
	if parts <= 0 || partLen <= 0 {
		return "", ErrInvalidFormatParams
	}
	segments := make([]string, parts)
	for p := range segments {
		s, err := randomChars(partLen)
		if err != nil {
			return "", err
		}
		segments[p] = s
	}
	return strings.Join(segments, "-"), nil
}

// ValidFormat reports whether the normalized input matches the expected
// token shape. It checks format only; it says nothing about whether the
// token exists.
func ValidFormat(raw string, parts, partLen int) bool {
	if parts <= 0 || partLen <= 0 {
		return false
	}
	re := regexp.MustCompile(fmt.Sprintf(`^[%s]{%d}(-[%s]{%d}){%d}$`,
		Alphabet, partLen, Alphabet, partLen, parts-1))
	return re.MatchString(Normalize(raw))
}

// Digest returns the HMAC-SHA256 hex digest of the normalized plaintext,
// keyed with the process-wide token secret. An unkeyed hash would make
// tokens brute-forceable from leaked digests, so the secret is mandatory
// and enforced at startup by the config loader.
func Digest(raw, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Normalize(raw)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Pair bundles a generated plaintext with its digest. The plaintext is
// returned to the issuing admin exactly once; only the digest is stored.
type Pair struct {
	Plaintext string
	Digest    string
}

// NewPair generates one default-shaped token and digests it.
func NewPair(secret string) (Pair, error) {
	plain, err := Generate(DefaultParts, DefaultPartLen)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Plaintext: plain, Digest: Digest(plain, secret)}, nil
}

// randomChars returns n characters picked from Alphabet. The alphabet
// has 32 entries, so a byte modulo its length introduces no bias.
func randomChars(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out), nil
}
