package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskName(t *testing.T) {
	cases := []struct {
		name   string
		userID uint64
		want   string
	}{
		{"Ada Lovelace", 7, "Ada L."},
		{"Grace Brewster Murray Hopper", 8, "Grace H."},
		{"Plato", 9, "Plato"},
		{"  ", 1234567, "Student 4567"},
		{"", 42, "Student 42"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, maskName(tc.name, tc.userID), "name %q", tc.name)
	}
}
