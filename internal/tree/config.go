package tree

import (
	"errors"
	"fmt"
)

// BoardState identifies the street at which a node (or the whole tree)
// sits.
type BoardState uint8

const (
	StateFlop BoardState = iota
	StateTurn
	StateRiver
)

func (s BoardState) String() string {
	switch s {
	case StateFlop:
		return "flop"
	case StateTurn:
		return "turn"
	case StateRiver:
		return "river"
	default:
		return "unknown"
	}
}

// streetsToRiver returns the number of betting rounds from this street to
// the river, inclusive.
func (s BoardState) streetsToRiver() int {
	return int(StateRiver-s) + 1
}

// Config describes the betting abstraction. Chip amounts are integers in
// whatever unit the caller uses consistently (the CLI uses bb x 100).
type Config struct {
	// InitialState is the street of the root node.
	InitialState BoardState

	// StartingPot is the pot size at the root.
	StartingPot int32

	// EffectiveStack is each player's remaining stack behind at the root.
	EffectiveStack int32

	// RakeRate and RakeCap configure the rake taken from showdown pots.
	RakeRate float64
	RakeCap  float64

	// Per-street candidate sizes, indexed [OOP, IP].
	FlopBetSizes  [2]BetSizeCandidates
	TurnBetSizes  [2]BetSizeCandidates
	RiverBetSizes [2]BetSizeCandidates

	// Optional OOP lead sizes used when the opponent was the last
	// aggressor on the previous street. Nil falls back to the normal
	// bet sizes.
	TurnDonkSizes  []BetSize
	RiverDonkSizes []BetSize

	// AddAllInThreshold appends an all-in when the largest candidate bet
	// is at most this multiple of the pot.
	AddAllInThreshold float64

	// ForceAllInThreshold replaces a candidate with all-in when the
	// stack-to-pot ratio after the opponent's call would not exceed it.
	ForceAllInThreshold float64

	// MergingThreshold collapses candidates closer than this relative
	// distance: |a-b| / max(a,b) < MergingThreshold keeps the larger.
	MergingThreshold float64
}

// Validate checks the configuration before tree construction.
func (c *Config) Validate() error {
	if c.InitialState > StateRiver {
		return fmt.Errorf("invalid initial state: %d", c.InitialState)
	}
	if c.StartingPot <= 0 {
		return fmt.Errorf("starting pot must be positive, got %d", c.StartingPot)
	}
	if c.EffectiveStack <= 0 {
		return fmt.Errorf("effective stack must be positive, got %d", c.EffectiveStack)
	}
	if c.RakeRate < 0 || c.RakeRate > 1 {
		return fmt.Errorf("rake rate must be in [0, 1], got %v", c.RakeRate)
	}
	if c.RakeCap < 0 {
		return fmt.Errorf("rake cap must be non-negative, got %v", c.RakeCap)
	}
	if c.AddAllInThreshold < 0 {
		return errors.New("add all-in threshold must be non-negative")
	}
	if c.ForceAllInThreshold < 0 {
		return errors.New("force all-in threshold must be non-negative")
	}
	if c.MergingThreshold < 0 || c.MergingThreshold >= 1 {
		return errors.New("merging threshold must be in [0, 1)")
	}
	return nil
}

// betSizes returns the candidate table for a street.
func (c *Config) betSizes(street BoardState) [2]BetSizeCandidates {
	switch street {
	case StateFlop:
		return c.FlopBetSizes
	case StateTurn:
		return c.TurnBetSizes
	default:
		return c.RiverBetSizes
	}
}

// donkSizes returns the OOP lead sizes for a street, or nil.
func (c *Config) donkSizes(street BoardState) []BetSize {
	switch street {
	case StateTurn:
		return c.TurnDonkSizes
	case StateRiver:
		return c.RiverDonkSizes
	default:
		return nil
	}
}
