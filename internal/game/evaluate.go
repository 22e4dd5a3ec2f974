package game

import (
	"math"

	"github.com/lox/postflop/internal/evaluator"
	"github.com/lox/postflop/internal/solver"
)

// FoldedPlayer returns the player who folded at a fold terminal.
func (n *PostFlopNode) FoldedPlayer() int {
	return int(n.player & 0xff)
}

// Evaluate writes player's counterfactual values at a terminal node given
// the opponent's reach vector, applying the utility transformation to the
// monetary outcomes. Implements solver.Game.
//
// Payoffs are normalized by the prior-weighted combination count so that
// summing cfv x reach over hands yields the node EV.
func (g *PostFlopGame) Evaluate(result []float32, gn solver.GameNode, player int, cfreach []float32) {
	node := gn.(*PostFlopNode)
	cfg := &g.actionTree.Config

	pot := float64(cfg.StartingPot + 2*node.amount)
	half := 0.5 * pot
	rake := math.Min(pot*cfg.RakeRate, cfg.RakeCap)

	for i := range result {
		result[i] = 0
	}

	if node.IsFold() {
		amountWin, amountLose := g.payoffAmounts(player, half, 0)
		payoff := amountWin
		if node.FoldedPlayer() == player {
			payoff = amountLose
		}
		g.foldKernel(result, node, player, cfreach, payoff)
		return
	}

	if rake == 0 {
		amountWin, amountLose := g.payoffAmounts(player, half, 0)
		g.showdownKernelUnraked(result, node, player, cfreach, amountWin, amountLose)
		return
	}

	amountWin, amountLose := g.payoffAmounts(player, half, rake)
	amountTie := -0.5 * rake / g.numCombinations
	g.showdownKernelRaked(result, node, player, cfreach, amountWin, amountTie, amountLose)
}

// payoffAmounts converts winning and losing half the pot into per-
// combination utility deltas. Without a utility table this is plain chip
// EV, where amountWin + amountLose == -rake/numCombinations.
func (g *PostFlopGame) payoffAmounts(player int, half, rake float64) (amountWin, amountLose float64) {
	if g.utility == nil {
		return (half - rake) / g.numCombinations, -half / g.numCombinations
	}
	stack := g.utility.StartingStack(player)
	base := g.utility.StartingValue(player)
	// a busted stack clamps to the utility table's zero point
	amountWin = (g.utility.Lookup(stack+half-rake, player) - base) / g.numCombinations
	amountLose = (g.utility.Lookup(stack-half, player) - base) / g.numCombinations
	return amountWin, amountLose
}

// foldKernel computes payoff x (live opponent reach compatible with each
// hand) using the inclusion-exclusion sweep: one pass accumulates the
// total and per-card sums, the second subtracts the blocked mass.
func (g *PostFlopGame) foldKernel(result []float32, node *PostFlopNode, player int, cfreach []float32, payoff float64) {
	valid := g.validIndices(node)
	opponentCards := g.privateCards[player^1]

	var sum float64
	var minus [52]float64
	for _, i := range valid[player^1] {
		w := float64(cfreach[i])
		if w == 0 {
			continue
		}
		hole := opponentCards[i]
		sum += w
		minus[hole.Lo] += w
		minus[hole.Hi] += w
	}
	if sum == 0 {
		return
	}

	playerCards := g.privateCards[player]
	sameHand := g.sameHandIndex[player]
	for _, i := range valid[player] {
		hole := playerCards[i]
		var same float64
		if si := sameHand[i]; si != 0xffff {
			same = float64(cfreach[si])
		}
		compatible := sum + same - minus[hole.Lo] - minus[hole.Hi]
		result[i] = float32(payoff * compatible)
	}
}

// showdownKernelUnraked runs the strength-sorted two-pointer walk twice:
// a forward sweep accumulating strictly-weaker opponent hands for the win
// term and a reverse sweep accumulating strictly-stronger ones for the
// loss term. Ties contribute nothing.
func (g *PostFlopGame) showdownKernelUnraked(result []float32, node *PostFlopNode, player int, cfreach []float32, amountWin, amountLose float64) {
	strength := g.ensureStrength(node.turn, node.river)
	playerStrength := strength[player]
	opponentStrength := strength[player^1]
	playerCards := g.privateCards[player]
	opponentCards := g.privateCards[player^1]

	validPlayer := playerStrength[1 : len(playerStrength)-1]

	var sum float64
	var minus [52]float64

	i := 1
	for _, item := range validPlayer {
		for opponentStrength[i].Strength < item.Strength {
			oi := opponentStrength[i].Index
			if w := float64(cfreach[oi]); w != 0 {
				hole := opponentCards[oi]
				sum += w
				minus[hole.Lo] += w
				minus[hole.Hi] += w
			}
			i++
		}
		hole := playerCards[item.Index]
		compatible := sum - minus[hole.Lo] - minus[hole.Hi]
		result[item.Index] = float32(amountWin * compatible)
	}

	sum = 0
	minus = [52]float64{}
	i = len(opponentStrength) - 2
	for k := len(validPlayer) - 1; k >= 0; k-- {
		item := validPlayer[k]
		for opponentStrength[i].Strength > item.Strength {
			oi := opponentStrength[i].Index
			if w := float64(cfreach[oi]); w != 0 {
				hole := opponentCards[oi]
				sum += w
				minus[hole.Lo] += w
				minus[hole.Hi] += w
			}
			i--
		}
		hole := playerCards[item.Index]
		compatible := sum - minus[hole.Lo] - minus[hole.Hi]
		result[item.Index] += float32(amountLose * compatible)
	}
}

// showdownKernelRaked is the three-pointer variant: win accumulators hold
// strictly-weaker opponent hands, tie accumulators additionally hold
// equal-strength ones. At each new distinct strength the win state is
// first promoted to the previous tie state (previously tied hands are now
// beaten), then both pointers are extended.
func (g *PostFlopGame) showdownKernelRaked(result []float32, node *PostFlopNode, player int, cfreach []float32, amountWin, amountTie, amountLose float64) {
	strength := g.ensureStrength(node.turn, node.river)
	playerStrength := strength[player]
	opponentStrength := strength[player^1]
	playerCards := g.privateCards[player]
	opponentCards := g.privateCards[player^1]
	sameHand := g.sameHandIndex[player]

	validPlayer := playerStrength[1 : len(playerStrength)-1]
	validOpponent := opponentStrength[1 : len(opponentStrength)-1]

	var sum float64
	var minus [52]float64
	for _, item := range validOpponent {
		if w := float64(cfreach[item.Index]); w != 0 {
			hole := opponentCards[item.Index]
			sum += w
			minus[hole.Lo] += w
			minus[hole.Hi] += w
		}
	}
	if sum == 0 {
		return
	}

	var winSum, tieSum float64
	var winMinus, tieMinus [52]float64

	i, j := 1, 1
	prevStrength := evaluator.SentinelWeak

	for _, item := range validPlayer {
		if item.Strength > prevStrength {
			prevStrength = item.Strength

			if i < j {
				winSum = tieSum
				winMinus = tieMinus
				i = j
			}
			for opponentStrength[i].Strength < item.Strength {
				oi := opponentStrength[i].Index
				hole := opponentCards[oi]
				w := float64(cfreach[oi])
				winSum += w
				winMinus[hole.Lo] += w
				winMinus[hole.Hi] += w
				i++
			}
			if j < i {
				tieSum = winSum
				tieMinus = winMinus
				j = i
			}
			for opponentStrength[j].Strength == item.Strength {
				oi := opponentStrength[j].Index
				hole := opponentCards[oi]
				w := float64(cfreach[oi])
				tieSum += w
				tieMinus[hole.Lo] += w
				tieMinus[hole.Hi] += w
				j++
			}
		}

		hole := playerCards[item.Index]
		total := sum - minus[hole.Lo] - minus[hole.Hi]
		win := winSum - winMinus[hole.Lo] - winMinus[hole.Hi]
		tie := tieSum - tieMinus[hole.Lo] - tieMinus[hole.Hi]
		var same float64
		if si := sameHand[item.Index]; si != 0xffff {
			same = float64(cfreach[si])
		}
		cfv := amountWin*win + amountTie*(tie-win+same) + amountLose*(total-tie)
		result[item.Index] = float32(cfv)
	}
}

// equityKernel is the pot-share variant of Evaluate: win counts 1, ties
// half, losses nothing, with no utility transform.
func (g *PostFlopGame) equityKernel(result []float32, gn solver.GameNode, player int, cfreach []float32) {
	node := gn.(*PostFlopNode)
	for i := range result {
		result[i] = 0
	}
	if node.IsFold() {
		if node.FoldedPlayer() == player {
			return
		}
		g.foldKernel(result, node, player, cfreach, 1)
		return
	}
	g.showdownKernelRaked(result, node, player, cfreach, 1, 0.5, 0)
}

// reachMassKernel accumulates the compatible live opponent reach at any
// terminal; it is the denominator for per-hand equity and EV readouts.
func (g *PostFlopGame) reachMassKernel(result []float32, gn solver.GameNode, player int, cfreach []float32) {
	node := gn.(*PostFlopNode)
	for i := range result {
		result[i] = 0
	}
	g.foldKernel(result, node, player, cfreach, 1)
}
