package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSizerClampsMinAndMax(t *testing.T) {
	s := NewSizer(0, 8)
	assert.Equal(t, 1, s.min)

	s = NewSizer(10, 4)
	assert.Equal(t, 10, s.max)
}

func TestRecommendFirstCallReturnsMax(t *testing.T) {
	s := NewSizer(2, 8)
	assert.Equal(t, 8, s.Recommend())
}

func TestRecommendStaysWithinBounds(t *testing.T) {
	s := NewSizer(2, 8)
	s.Recommend() // first sample
	got := s.Recommend()
	assert.GreaterOrEqual(t, got, 2)
	assert.LessOrEqual(t, got, 8)
}
