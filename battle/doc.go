// Package battle holds the elimination engine: stage classification, the
// per-round decision engine, round pacing and narrative resolution.
//
// Nothing in this package performs persistence. Randomness always flows
// through a Sampler so callers can replay a battle from a seed.
package battle
