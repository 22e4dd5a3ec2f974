// Package game materializes an abstract betting tree against concrete card
// state: per-hand buffers, board-aware index tables, isomorphic chance
// folding, the terminal evaluation kernels and the public game cursor.
package game

import (
	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/solver"
	"github.com/lox/postflop/internal/tree"
)

// PostFlopNode is one node of the materialized game tree. Decision nodes
// own flat regret and strategy-sum buffers of length numActions x
// numPrivateHands(acting player); chance nodes carry one child per
// canonical dealt card plus isomorphic descriptors for the folded ones.
type PostFlopNode struct {
	player uint16
	turn   deck.Card
	river  deck.Card
	amount int32

	actions  []tree.Action
	children []*PostFlopNode

	isoChances   []solver.IsomorphicChance
	isoCards     []deck.Card
	chanceFactor float32

	// float32 storage, or 16-bit fixed point with per-node scales
	regrets       []float32
	strategySum   []float32
	cRegrets      []int16
	cStrategySum  []int16
	regretScale   float32
	strategyScale float32
	compressed    bool
}

// IsTerminal reports whether the node ends the hand.
func (n *PostFlopNode) IsTerminal() bool {
	return n.player&tree.TerminalFlag != 0
}

// IsFold reports whether the node is a fold terminal.
func (n *PostFlopNode) IsFold() bool {
	return n.player&tree.FoldFlag == tree.FoldFlag
}

// IsChance reports whether the node deals a card.
func (n *PostFlopNode) IsChance() bool {
	return n.player == tree.PlayerChance
}

// Player returns the acting player at a decision node.
func (n *PostFlopNode) Player() int {
	return int(n.player)
}

// NumActions returns the number of children.
func (n *PostFlopNode) NumActions() int {
	return len(n.children)
}

// Play returns the child reached by the given action index.
func (n *PostFlopNode) Play(action int) solver.GameNode {
	return n.children[action]
}

// ChanceFactor is the per-outcome weight of this chance node.
func (n *PostFlopNode) ChanceFactor() float32 {
	return n.chanceFactor
}

// IsomorphicChances lists the folded chance branches.
func (n *PostFlopNode) IsomorphicChances() []solver.IsomorphicChance {
	return n.isoChances
}

// Actions returns the edge labels of this node.
func (n *PostFlopNode) Actions() []tree.Action {
	return n.actions
}

// Amount returns the per-player chips committed beyond the starting pot.
func (n *PostFlopNode) Amount() int32 {
	return n.amount
}

const fixedPointMax = 32767

// Regrets loads the cumulative regret buffer. Uncompressed nodes hand out
// the backing slice; compressed nodes decode a copy.
func (n *PostFlopNode) Regrets() []float32 {
	if !n.compressed {
		return n.regrets
	}
	out := make([]float32, len(n.cRegrets))
	scale := n.regretScale / fixedPointMax
	for i, v := range n.cRegrets {
		out[i] = float32(v) * scale
	}
	return out
}

// StoreRegrets writes the buffer back. For compressed nodes the values are
// re-quantized against a fresh per-node scale with saturation.
func (n *PostFlopNode) StoreRegrets(vals []float32) {
	if !n.compressed {
		if len(n.regrets) > 0 && &n.regrets[0] != &vals[0] {
			copy(n.regrets, vals)
		}
		return
	}
	n.regretScale = encodeFixedPoint(n.cRegrets, vals)
}

// StrategySum loads the cumulative strategy buffer.
func (n *PostFlopNode) StrategySum() []float32 {
	if !n.compressed {
		return n.strategySum
	}
	out := make([]float32, len(n.cStrategySum))
	scale := n.strategyScale / fixedPointMax
	for i, v := range n.cStrategySum {
		out[i] = float32(v) * scale
	}
	return out
}

// StoreStrategySum writes the strategy buffer back.
func (n *PostFlopNode) StoreStrategySum(vals []float32) {
	if !n.compressed {
		if len(n.strategySum) > 0 && &n.strategySum[0] != &vals[0] {
			copy(n.strategySum, vals)
		}
		return
	}
	n.strategyScale = encodeFixedPoint(n.cStrategySum, vals)
}

// encodeFixedPoint quantizes vals into 16-bit fixed point, returning the
// scale (the largest magnitude). Values beyond the scale saturate.
func encodeFixedPoint(dst []int16, vals []float32) float32 {
	var scale float32
	for _, v := range vals {
		if v > scale {
			scale = v
		} else if -v > scale {
			scale = -v
		}
	}
	if scale == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}
	factor := fixedPointMax / scale
	for i, v := range vals {
		q := v * factor
		switch {
		case q > fixedPointMax:
			dst[i] = fixedPointMax
		case q < -fixedPointMax:
			dst[i] = -fixedPointMax
		default:
			dst[i] = int16(q)
		}
	}
	return scale
}
