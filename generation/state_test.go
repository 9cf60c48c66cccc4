package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateValidating, true},
		{StateIdle, StateSuccess, false},
		{StateValidating, StateFailed, true},
		{StateValidating, StateSuccess, false},
		{StateDispatching, StateStreaming, true},
		{StateStreaming, StateStreaming, true},
		{StateStreaming, StateSuccess, true},
		{StateSuccess, StateValidating, true},
		{StateSuccess, StateStreaming, false},
		{StateFailed, StateIdle, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestState_Predicates(t *testing.T) {
	assert.True(t, StateSuccess.Settled())
	assert.True(t, StateFailed.Settled())
	assert.False(t, StateStreaming.Settled())

	assert.True(t, StateValidating.Busy())
	assert.True(t, StateStreaming.Busy())
	assert.False(t, StateIdle.Busy())
	assert.False(t, StateSuccess.Busy())
}

func TestErrInvalidTransition(t *testing.T) {
	err := ErrInvalidTransition{From: StateIdle, To: StateSuccess}
	assert.Equal(t, "invalid state transition: idle -> success", err.Error())
}
