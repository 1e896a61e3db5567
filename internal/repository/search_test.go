package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"ana", "%ana%"},
		{"100%", "%100!%%"},
		{"a_b", "%a!_b%"},
		{"wow!", "%wow!!%"},
		{"", "%%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPattern(tt.query), tt.query)
	}
}
