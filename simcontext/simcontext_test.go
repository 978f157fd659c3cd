package simcontext

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateNowAndAdvance(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	assert.Equal(t, int64(0), s.Now())
	s.Advance()
	s.Advance()
	assert.Equal(t, int64(2), s.Now())
}

func TestStateNextVINIsMonotonicAndUnique(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	assert.Equal(t, 1, s.NextVIN())
	assert.Equal(t, 2, s.NextVIN())
	assert.Equal(t, 3, s.NextVIN())
}

func TestWithStateAndFromRoundTrip(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	ctx := WithState(context.Background(), s)
	assert.Same(t, s, From(ctx))
}

func TestFromPanicsWithoutInstalledState(t *testing.T) {
	assert.Panics(t, func() { From(context.Background()) })
}

func TestRNGReturnsInjectedSource(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New(rng)
	assert.Same(t, rng, s.RNG())
}
