package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/game"
	"github.com/lox/postflop/internal/handrange"
	"github.com/lox/postflop/internal/icm"
	"github.com/lox/postflop/internal/solver"
	"github.com/lox/postflop/internal/tree"
)

// RunConfig is the HCL run file: the spot, the betting abstraction and the
// solver parameters.
type RunConfig struct {
	Game   GameBlock    `hcl:"game,block"`
	Bets   []BetsBlock  `hcl:"bets,block"`
	Donks  []DonkBlock  `hcl:"donk,block"`
	Solver *SolverBlock `hcl:"solver,block"`
}

// GameBlock describes the spot being solved.
type GameBlock struct {
	OOPRange string `hcl:"oop_range"`
	IPRange  string `hcl:"ip_range"`

	Flop  string `hcl:"flop"`
	Turn  string `hcl:"turn,optional"`
	River string `hcl:"river,optional"`

	StartingPot    int `hcl:"starting_pot"`
	EffectiveStack int `hcl:"effective_stack"`

	RakeRate float64 `hcl:"rake_rate,optional"`
	RakeCap  float64 `hcl:"rake_cap,optional"`

	AddAllInThreshold   float64 `hcl:"add_allin_threshold,optional"`
	ForceAllInThreshold float64 `hcl:"force_allin_threshold,optional"`
	MergingThreshold    float64 `hcl:"merging_threshold,optional"`

	// UtilityFile points at an ICM utility document; empty solves for
	// chip EV.
	UtilityFile string `hcl:"utility_file,optional"`
}

// BetsBlock sets the candidate sizes for one street ("flop", "turn",
// "river").
type BetsBlock struct {
	Street   string `hcl:"street,label"`
	OOPBet   string `hcl:"oop_bet,optional"`
	OOPRaise string `hcl:"oop_raise,optional"`
	IPBet    string `hcl:"ip_bet,optional"`
	IPRaise  string `hcl:"ip_raise,optional"`
}

// DonkBlock sets OOP lead sizes for a street after surrendering the
// previous one.
type DonkBlock struct {
	Street string `hcl:"street,label"`
	Sizes  string `hcl:"sizes"`
}

// SolverBlock configures the CFR run.
type SolverBlock struct {
	MaxIterations int     `hcl:"max_iterations,optional"`
	TargetPercent float64 `hcl:"target_exploitability_percent,optional"`
	Algorithm     string  `hcl:"algorithm,optional"`
	Compressed    bool    `hcl:"compressed,optional"`
	ParallelDepth int     `hcl:"parallel_depth,optional"`
}

// LoadRunConfig parses and validates a run file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config: %s", diags.Error())
	}
	var cfg RunConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %s", diags.Error())
	}
	return &cfg, nil
}

// BuildGame turns the run file into a solvable game.
func (c *RunConfig) BuildGame() (*game.PostFlopGame, error) {
	oop, err := handrange.Parse(c.Game.OOPRange)
	if err != nil {
		return nil, fmt.Errorf("oop_range: %w", err)
	}
	ip, err := handrange.Parse(c.Game.IPRange)
	if err != nil {
		return nil, fmt.Errorf("ip_range: %w", err)
	}

	flop, err := deck.FlopFromString(c.Game.Flop)
	if err != nil {
		return nil, fmt.Errorf("flop: %w", err)
	}
	turn, river := deck.NotDealt, deck.NotDealt
	if c.Game.Turn != "" {
		if turn, err = deck.CardFromString(c.Game.Turn); err != nil {
			return nil, fmt.Errorf("turn: %w", err)
		}
	}
	if c.Game.River != "" {
		if river, err = deck.CardFromString(c.Game.River); err != nil {
			return nil, fmt.Errorf("river: %w", err)
		}
	}

	initial := tree.StateFlop
	switch {
	case river != deck.NotDealt:
		initial = tree.StateRiver
	case turn != deck.NotDealt:
		initial = tree.StateTurn
	}

	treeCfg := tree.Config{
		InitialState:        initial,
		StartingPot:         int32(c.Game.StartingPot),
		EffectiveStack:      int32(c.Game.EffectiveStack),
		RakeRate:            c.Game.RakeRate,
		RakeCap:             c.Game.RakeCap,
		AddAllInThreshold:   c.Game.AddAllInThreshold,
		ForceAllInThreshold: c.Game.ForceAllInThreshold,
		MergingThreshold:    c.Game.MergingThreshold,
	}

	for _, bets := range c.Bets {
		oopSizes, err := tree.NewBetSizeCandidates(bets.OOPBet, bets.OOPRaise)
		if err != nil {
			return nil, fmt.Errorf("bets %q: %w", bets.Street, err)
		}
		ipSizes, err := tree.NewBetSizeCandidates(bets.IPBet, bets.IPRaise)
		if err != nil {
			return nil, fmt.Errorf("bets %q: %w", bets.Street, err)
		}
		candidates := [2]tree.BetSizeCandidates{oopSizes, ipSizes}
		switch bets.Street {
		case "flop":
			treeCfg.FlopBetSizes = candidates
		case "turn":
			treeCfg.TurnBetSizes = candidates
		case "river":
			treeCfg.RiverBetSizes = candidates
		default:
			return nil, fmt.Errorf("bets: unknown street %q", bets.Street)
		}
	}

	for _, donk := range c.Donks {
		sizes, err := tree.ParseBetSizes(donk.Sizes, false)
		if err != nil {
			return nil, fmt.Errorf("donk %q: %w", donk.Street, err)
		}
		switch donk.Street {
		case "turn":
			treeCfg.TurnDonkSizes = sizes
		case "river":
			treeCfg.RiverDonkSizes = sizes
		default:
			return nil, fmt.Errorf("donk: unknown street %q", donk.Street)
		}
	}

	actionTree, err := tree.New(treeCfg)
	if err != nil {
		return nil, fmt.Errorf("build action tree: %w", err)
	}

	var utility *icm.Table
	if c.Game.UtilityFile != "" {
		if utility, err = icm.LoadFile(c.Game.UtilityFile); err != nil {
			return nil, err
		}
		if configured := icm.Global(); configured == nil {
			// best effort: the process-wide table mirrors the run file
			_ = icm.Configure(utility)
		}
	}

	return game.New(game.CardConfig{
		Ranges: [2]*handrange.Range{oop, ip},
		Flop:   flop,
		Turn:   turn,
		River:  river,
	}, actionTree, utility)
}

// SolverConfig converts the solver block, scaling the pot-relative target
// into payoff units.
func (c *RunConfig) SolverConfig(startingPot int32) (solver.Config, bool, error) {
	out := solver.Config{
		MaxIterations: 1000,
		ParallelDepth: 4,
	}
	compressed := false
	if c.Solver == nil {
		return out, compressed, nil
	}

	if c.Solver.MaxIterations > 0 {
		out.MaxIterations = c.Solver.MaxIterations
	}
	if c.Solver.TargetPercent > 0 {
		out.TargetExploitability = float32(c.Solver.TargetPercent / 100 * float64(startingPot))
	}
	if c.Solver.ParallelDepth > 0 {
		out.ParallelDepth = c.Solver.ParallelDepth
	}
	switch c.Solver.Algorithm {
	case "", "dcfr":
		out.Algorithm = solver.AlgorithmDCFR
	case "cfr+":
		out.Algorithm = solver.AlgorithmCFRPlus
	case "linear":
		out.Algorithm = solver.AlgorithmLinear
	default:
		return out, compressed, fmt.Errorf("solver: unknown algorithm %q", c.Solver.Algorithm)
	}
	compressed = c.Solver.Compressed
	return out, compressed, nil
}
