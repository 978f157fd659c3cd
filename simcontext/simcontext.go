// Package simcontext threads the process-wide now/VIN-counter state a
// Simulator owns through context.Context, per the design notes: a singleton
// with an init -> run -> teardown lifecycle, never a free package-level
// global (spec §9).
package simcontext

import (
	"context"
	"math/rand"
)

type contextKey struct{}

// State is the mutable process-wide simulation state carried by a context
// value: the current timestep and the monotonic VIN counter, plus the
// injected random source every stochastic draw (spawner Bernoulli trials,
// factory Gaussian parameters, auction tie-breaks) must use instead of the
// ambient math/rand functions.
type State struct {
	now       int64
	vinSeq    int
	rng       *rand.Rand
}

// New constructs a fresh State at now=0 with the given seeded RNG.
func New(rng *rand.Rand) *State {
	return &State{rng: rng}
}

// WithState returns a derived context carrying state.
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// From extracts the State a context carries, panicking if none was
// installed -- a programming error, not a runtime condition callers should
// recover from.
func From(ctx context.Context) *State {
	s, ok := ctx.Value(contextKey{}).(*State)
	if !ok {
		panic("simcontext: context has no State")
	}
	return s
}

// Now returns the current simulated timestep.
func (s *State) Now() int64 { return s.now }

// Advance moves now forward by one timestep.
func (s *State) Advance() { s.now++ }

// NextVIN returns the next process-wide unique vehicle identification number.
func (s *State) NextVIN() int {
	s.vinSeq++
	return s.vinSeq
}

// RNG returns the injected random source.
func (s *State) RNG() *rand.Rand { return s.rng }
