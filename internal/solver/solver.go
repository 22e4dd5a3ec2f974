// Package solver implements vector-form counterfactual regret minimization
// over an abstract game contract. The engine is written against the minimal
// capability set below rather than a concrete tree type, so the production
// postflop game and small test games share it.
package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

// IsomorphicChance marks a chance branch whose subtree is value-equivalent
// to the canonical child at Index under a per-player permutation of private
// hands. The canonical child is solved; siblings reuse its result vector
// with the swap list applied.
type IsomorphicChance struct {
	Index    int
	SwapList [2][][2]uint16
}

// GameNode is one node of a solvable game tree.
//
// Regret and strategy-sum buffers are exposed through load/store pairs so
// implementations may store them compressed; for plain float32 storage the
// load returns the backing slice and the store is a no-op.
type GameNode interface {
	IsTerminal() bool
	IsChance() bool

	// Player returns the acting player (0 or 1) at a decision node.
	Player() int
	NumActions() int
	Play(action int) GameNode

	// ChanceFactor is the per-outcome weight applied after summing chance
	// children (including isomorphic replicas).
	ChanceFactor() float32
	IsomorphicChances() []IsomorphicChance

	Regrets() []float32
	StoreRegrets([]float32)
	StrategySum() []float32
	StoreStrategySum([]float32)
}

// Game is the capability set the engine requires.
type Game interface {
	Root() GameNode
	NumPrivateHands(player int) int

	// InitialReach returns the prior reach probabilities of the player's
	// private hands at the root.
	InitialReach(player int) []float32

	// Evaluate writes the counterfactual value of every private hand of
	// player at a terminal node, given the opponent's reach vector.
	Evaluate(result []float32, node GameNode, player int, cfreach []float32)
}

// Algorithm selects the discounting scheme.
type Algorithm uint8

const (
	// AlgorithmDCFR applies the discounted-CFR weights t^a/(t^a+1) to
	// positive regrets, t^b/(t^b+1) to negatives, and (t/(t+1))^g to the
	// average strategy.
	AlgorithmDCFR Algorithm = iota
	// AlgorithmCFRPlus floors cumulative regrets at zero and averages
	// linearly.
	AlgorithmCFRPlus
	// AlgorithmLinear weighs both regrets and the average by t.
	AlgorithmLinear
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmDCFR:
		return "dcfr"
	case AlgorithmCFRPlus:
		return "cfr+"
	case AlgorithmLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Config controls a solve run.
type Config struct {
	// MaxIterations bounds the number of iterations.
	MaxIterations int

	// TargetExploitability stops the run early once reached (same units
	// as the game's payoffs). Zero disables the check.
	TargetExploitability float32

	// ExploitabilityEvery controls how often the stop criterion is
	// evaluated. Defaults to every 10 iterations.
	ExploitabilityEvery int

	Algorithm Algorithm

	// DCFR exponents; zero values take the defaults (1.5, 0, 2).
	Alpha, Beta, Gamma float64

	// ParallelDepth bounds the tree depth at which child subtrees fork
	// onto new goroutines. Zero solves sequentially.
	ParallelDepth int

	// Logger, when set, receives progress lines.
	Logger *log.Logger

	// Clock is used for progress timing; defaults to the real clock.
	Clock quartz.Clock
}

func (c *Config) WithDefaults() Config {
	out := *c
	if out.MaxIterations <= 0 {
		out.MaxIterations = 1000
	}
	if out.ExploitabilityEvery <= 0 {
		out.ExploitabilityEvery = 10
	}
	if out.Algorithm == AlgorithmDCFR {
		if out.Alpha == 0 {
			out.Alpha = 1.5
		}
		if out.Gamma == 0 {
			out.Gamma = 2
		}
	}
	if out.Clock == nil {
		out.Clock = quartz.NewReal()
	}
	return out
}

// Validate checks the solve configuration.
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return errors.New("max iterations must be non-negative")
	}
	if c.TargetExploitability < 0 {
		return errors.New("target exploitability must be non-negative")
	}
	if c.ParallelDepth < 0 {
		return errors.New("parallel depth must be non-negative")
	}
	return nil
}

// discounts are the per-iteration multipliers applied to accumulated
// values before new contributions are added.
type discounts struct {
	positive float64
	negative float64
	strategy float64
	plus     bool // floor cumulative regrets at zero
}

func (c *Config) discountsFor(iteration int) discounts {
	t := float64(iteration)
	switch c.Algorithm {
	case AlgorithmCFRPlus:
		return discounts{positive: 1, negative: 1, strategy: t / (t + 1), plus: true}
	case AlgorithmLinear:
		return discounts{positive: t / (t + 1), negative: t / (t + 1), strategy: t / (t + 1)}
	default:
		return discounts{
			positive: math.Pow(t, c.Alpha) / (math.Pow(t, c.Alpha) + 1),
			negative: math.Pow(t, c.Beta) / (math.Pow(t, c.Beta) + 1),
			strategy: math.Pow(t/(t+1), c.Gamma),
		}
	}
}

// Solve runs CFR until the iteration budget or the exploitability target
// is hit, and returns the final exploitability.
func Solve(ctx context.Context, game Game, cfg Config) (float32, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	cfg = cfg.WithDefaults()

	start := cfg.Clock.Now()
	exploitability := float32(math.Inf(1))

	for t := 1; t <= cfg.MaxIterations; t++ {
		if err := ctx.Err(); err != nil {
			return exploitability, err
		}

		SolveStep(game, t, &cfg)

		if t%cfg.ExploitabilityEvery == 0 || t == cfg.MaxIterations {
			exploitability = ComputeExploitability(game, cfg.ParallelDepth)
			if cfg.Logger != nil {
				cfg.Logger.Info("solve progress",
					"iteration", t,
					"exploitability", exploitability,
					"elapsed", cfg.Clock.Since(start).Round(time.Millisecond))
			}
			if cfg.TargetExploitability > 0 && exploitability <= cfg.TargetExploitability {
				return exploitability, nil
			}
		}
	}
	return exploitability, nil
}

// SolveStep performs one CFR iteration: a regret-updating traversal for
// each player in turn.
func SolveStep(game Game, iteration int, cfg *Config) {
	d := cfg.discountsFor(iteration)
	for player := 0; player < 2; player++ {
		result := make([]float32, game.NumPrivateHands(player))
		params := traversalParams{
			game:          game,
			player:        player,
			discounts:     d,
			parallelDepth: cfg.ParallelDepth,
		}
		solveRecursive(result, game.Root(), params, game.InitialReach(player^1), 0)
	}
}

type traversalParams struct {
	game          Game
	player        int
	discounts     discounts
	parallelDepth int
}

// solveRecursive descends the tree computing the counterfactual value
// vector of params.player, updating that player's regrets and the
// opponent's average strategy along the way.
func solveRecursive(result []float32, node GameNode, params traversalParams, cfreach []float32, depth int) {
	if node.IsTerminal() {
		params.game.Evaluate(result, node, params.player, cfreach)
		return
	}

	numActions := node.NumActions()
	numHands := len(result)

	if node.IsChance() {
		cfvActions := forEachChild(node, numHands, depth, params.parallelDepth, func(action int, out []float32) {
			solveRecursive(out, node.Play(action), params, cfreach, depth+1)
		})

		sum := make([]float64, numHands)
		for _, cfv := range cfvActions {
			addTo(sum, cfv)
		}
		for _, iso := range node.IsomorphicChances() {
			replica := append([]float32(nil), cfvActions[iso.Index]...)
			applySwap(replica, iso.SwapList[params.player])
			addTo(sum, replica)
		}

		factor := float64(node.ChanceFactor())
		for i := range result {
			result[i] = float32(sum[i] * factor)
		}
		return
	}

	if node.Player() == params.player {
		regrets := node.Regrets()
		strategy := regretMatching(regrets, numActions, numHands)

		cfvActions := forEachChild(node, numHands, depth, params.parallelDepth, func(action int, out []float32) {
			solveRecursive(out, node.Play(action), params, cfreach, depth+1)
		})

		for i := range result {
			result[i] = 0
		}
		for a := 0; a < numActions; a++ {
			row := strategy[a*numHands : (a+1)*numHands]
			cfv := cfvActions[a]
			for h := 0; h < numHands; h++ {
				result[h] += row[h] * cfv[h]
			}
		}

		// regret update with the configured discounts
		d := params.discounts
		for a := 0; a < numActions; a++ {
			cfv := cfvActions[a]
			for h := 0; h < numHands; h++ {
				i := a*numHands + h
				prev := float64(regrets[i])
				if prev > 0 {
					prev *= d.positive
				} else {
					prev *= d.negative
				}
				next := prev + float64(cfv[h]-result[h])
				if d.plus && next < 0 {
					next = 0
				}
				regrets[i] = float32(next)
			}
		}
		node.StoreRegrets(regrets)
		return
	}

	// opponent decision node: accumulate their average strategy weighted
	// by their own reach, then descend with scaled reach vectors. All
	// per-hand rows here are over the opponent's private hands.
	opponentHands := len(cfreach)
	regrets := node.Regrets()
	strategy := regretMatching(regrets, numActions, opponentHands)

	strategySum := node.StrategySum()
	d := params.discounts
	for i := range strategySum {
		h := i % opponentHands
		strategySum[i] = float32(float64(strategySum[i])*d.strategy) + strategy[i]*cfreach[h]
	}
	node.StoreStrategySum(strategySum)

	cfvActions := forEachChild(node, numHands, depth, params.parallelDepth, func(action int, out []float32) {
		childReach := make([]float32, opponentHands)
		row := strategy[action*opponentHands : (action+1)*opponentHands]
		empty := true
		for h := 0; h < opponentHands; h++ {
			childReach[h] = row[h] * cfreach[h]
			if childReach[h] != 0 {
				empty = false
			}
		}
		if empty {
			return
		}
		solveRecursive(out, node.Play(action), params, childReach, depth+1)
	})

	for i := range result {
		result[i] = 0
	}
	for _, cfv := range cfvActions {
		for h := 0; h < numHands; h++ {
			result[h] += cfv[h]
		}
	}
}

// regretMatching derives the current strategy: positive regrets normalized
// per hand, uniform when all regrets are non-positive.
func regretMatching(regrets []float32, numActions, numHands int) []float32 {
	strategy := make([]float32, numActions*numHands)
	for h := 0; h < numHands; h++ {
		var total float64
		for a := 0; a < numActions; a++ {
			if r := regrets[a*numHands+h]; r > 0 {
				total += float64(r)
			}
		}
		if total > 0 {
			for a := 0; a < numActions; a++ {
				if r := regrets[a*numHands+h]; r > 0 {
					strategy[a*numHands+h] = float32(float64(r) / total)
				}
			}
		} else {
			uniform := 1 / float32(numActions)
			for a := 0; a < numActions; a++ {
				strategy[a*numHands+h] = uniform
			}
		}
	}
	return strategy
}

// forEachChild evaluates fn for every action, forking child subtrees onto
// goroutines while above the parallel depth cutoff. Each child writes into
// its own result vector, so no synchronization beyond the join is needed.
func forEachChild(node GameNode, numHands, depth, parallelDepth int, fn func(action int, out []float32)) [][]float32 {
	numActions := node.NumActions()
	out := make([][]float32, numActions)
	for a := range out {
		out[a] = make([]float32, numHands)
	}

	if depth >= parallelDepth || numActions < 2 {
		for a := 0; a < numActions; a++ {
			fn(a, out[a])
		}
		return out
	}

	var g errgroup.Group
	for a := 0; a < numActions; a++ {
		g.Go(func() error {
			fn(a, out[a])
			return nil
		})
	}
	// subtrees touch disjoint node buffers; the join is the only fence
	_ = g.Wait()
	return out
}

func addTo(sum []float64, v []float32) {
	for i := range sum {
		sum[i] += float64(v[i])
	}
}

// applySwap exchanges vector entries for each listed hand-index pair.
func applySwap(v []float32, swaps [][2]uint16) {
	for _, s := range swaps {
		v[s[0]], v[s[1]] = v[s[1]], v[s[0]]
	}
}
