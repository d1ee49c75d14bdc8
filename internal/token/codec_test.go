package token_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchportal/completion-ledger/internal/token"
)

func TestGenerateShape(t *testing.T) {
	plain, err := token.Generate(token.DefaultParts, token.DefaultPartLen)
	require.NoError(t, err)

	parts := strings.Split(plain, "-")
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.Len(t, p, 4)
		for _, r := range p {
			assert.Contains(t, token.Alphabet, string(r))
		}
	}
	assert.True(t, token.ValidFormat(plain, token.DefaultParts, token.DefaultPartLen))
}

func TestGenerateRejectsBadParams(t *testing.T) {
	_, err := token.Generate(0, 4)
	assert.ErrorIs(t, err, token.ErrInvalidFormatParams)
	_, err = token.Generate(3, -1)
	assert.ErrorIs(t, err, token.ErrInvalidFormatParams)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  abcd-efgh-jklm  ": "ABCD-EFGH-JKLM",
		"ABCD -EFGH- JKLM":   "ABCD-EFGH-JKLM",
		"abcd\t-efgh\n-jklm": "ABCD-EFGH-JKLM",
		"":                   "",
		"   ":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, token.Normalize(in), "input %q", in)
	}
}

func TestValidFormat(t *testing.T) {
	assert.True(t, token.ValidFormat("ABCD-EFGH-JKLM", 3, 4))
	assert.True(t, token.ValidFormat(" abcd-efgh-jklm ", 3, 4), "normalized before matching")
	assert.False(t, token.ValidFormat("ABCD-EFGH", 3, 4), "too few segments")
	assert.False(t, token.ValidFormat("ABC0-EFGH-JKLM", 3, 4), "0 is not in the alphabet")
	assert.False(t, token.ValidFormat("ABCI-EFGH-JKLM", 3, 4), "I is not in the alphabet")
	assert.False(t, token.ValidFormat("", 3, 4))
}

func TestDigestKeyedAndCaseInsensitive(t *testing.T) {
	d1 := token.Digest("ABCD-EFGH-JKLM", "secret-a")
	d2 := token.Digest("abcd-efgh-jklm", "secret-a")
	d3 := token.Digest("ABCD-EFGH-JKLM", "secret-b")

	assert.Equal(t, d1, d2, "digest is computed over the normalized form")
	assert.NotEqual(t, d1, d3, "different keys must produce different digests")
	assert.Len(t, d1, 64, "hex-encoded SHA-256")
}

func TestNewPairUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		p, err := token.NewPair("secret")
		require.NoError(t, err)
		require.False(t, seen[p.Digest], "duplicate token generated")
		seen[p.Digest] = true
		assert.Equal(t, token.Digest(p.Plaintext, "secret"), p.Digest)
	}
}
