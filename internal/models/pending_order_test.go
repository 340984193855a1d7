package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusSubmitted, StatusPartiallyFilled, true},
		{StatusSubmitted, StatusExecuted, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusCancelled, true},
		{StatusPendingIDResolution, StatusSubmitted, true},
		{StatusPartiallyFilled, StatusExecuted, true},
		{StatusPartiallyFilled, StatusCancelled, true},
		{StatusPartiallyFilled, StatusRejected, false},
		{StatusExecuted, StatusSubmitted, false},
		{StatusExecuted, StatusPartiallyFilled, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusCancelled, StatusExecuted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusExecuted))
	assert.True(t, IsTerminal(StatusRejected))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.False(t, IsTerminal(StatusSubmitted))
	assert.False(t, IsTerminal(StatusPartiallyFilled))
	assert.False(t, IsTerminal(StatusPendingIDResolution))
}
