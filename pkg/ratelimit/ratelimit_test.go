package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBurstOfTwentyAllowsFive(t *testing.T) {
	lim := New(Config{PerSecond: 5, Burst: 5})

	allowed := 0

	for i := 0; i < 20; i++ {
		if lim.Allow("dsp-1") {
			allowed++
		}
	}

	// The bucket starts full with 5 tokens and refills at 5/s; an
	// instantaneous burst of 20 gets exactly the burst through.
	assert.Equal(t, 5, allowed)
}

func TestBucketsAreIndependentPerKey(t *testing.T) {
	lim := New(Config{PerSecond: 1, Burst: 1})

	assert.True(t, lim.Allow("dsp-1"))
	assert.False(t, lim.Allow("dsp-1"))

	// Another client's bucket is untouched.
	assert.True(t, lim.Allow("dsp-2"))
}

func TestForgetResetsBucket(t *testing.T) {
	lim := New(Config{PerSecond: 1, Burst: 1})

	assert.True(t, lim.Allow("dsp-1"))
	assert.False(t, lim.Allow("dsp-1"))

	lim.Forget("dsp-1")

	assert.True(t, lim.Allow("dsp-1"))
}

func TestZeroConfigFallsBackToDefaults(t *testing.T) {
	lim := New(Config{})

	allowed := 0

	for i := 0; i < 10; i++ {
		if lim.Allow("dsp-1") {
			allowed++
		}
	}

	assert.Equal(t, DefaultConfig().Burst, allowed)
}
