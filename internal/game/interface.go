package game

import (
	"fmt"

	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/solver"
	"github.com/lox/postflop/internal/tree"
)

// The game-state cursor. The solved tree stores values for canonical
// chance branches only; when an isomorphic card is played the cursor
// descends the canonical sibling and records the suit-swap permutation,
// which is applied to every per-hand readout on the way out. Vectors
// handed to callers are therefore always indexed by the original
// private-card lists and valid for the cards actually played.

// BackToRoot resets the cursor to the root node.
func (g *PostFlopGame) BackToRoot() {
	g.node = g.root
	g.history = g.history[:0]
	g.swaps = g.swaps[:0]
	g.dealt = g.dealt[:0]
	for p := 0; p < 2; p++ {
		g.weights[p] = append(g.weights[p][:0], g.initialWeights[p]...)
	}
	g.normalizedOK = false
}

// IsChanceNode reports whether the cursor sits at a chance node.
func (g *PostFlopGame) IsChanceNode() bool {
	return g.node.IsChance()
}

// IsTerminalNode reports whether the cursor sits at a terminal.
func (g *PostFlopGame) IsTerminalNode() bool {
	return g.node.IsTerminal()
}

// CurrentPlayer returns the acting player at the cursor, or false at
// chance and terminal nodes.
func (g *PostFlopGame) CurrentPlayer() (int, bool) {
	if g.node.IsChance() || g.node.IsTerminal() {
		return 0, false
	}
	return g.node.Player(), true
}

// AvailableActions lists the actions at the cursor. At chance nodes these
// are the canonical deals; PossibleCards covers the folded ones too.
func (g *PostFlopGame) AvailableActions() []tree.Action {
	return g.node.actions
}

// History returns the action indices (card ids at chance nodes) played
// from the root.
func (g *PostFlopGame) History() []int {
	return append([]int(nil), g.history...)
}

// Board returns the community cards as actually played.
func (g *PostFlopGame) Board() []deck.Card {
	board := append([]deck.Card(nil), g.cardConfig.Flop[:]...)
	if g.cardConfig.Turn != deck.NotDealt {
		board = append(board, g.cardConfig.Turn)
	}
	if g.cardConfig.River != deck.NotDealt {
		board = append(board, g.cardConfig.River)
	}
	return append(board, g.dealt...)
}

// Pot returns the matched pot size at the cursor.
func (g *PostFlopGame) Pot() int32 {
	return g.actionTree.Config.StartingPot + 2*g.node.amount
}

// PossibleCards returns the bitmask of cards dealable at a chance node:
// cards not on the board with at least one live hand, canonical or
// isomorphic.
func (g *PostFlopGame) PossibleCards() uint64 {
	if !g.node.IsChance() {
		return 0
	}
	var mask uint64
	for _, a := range g.node.actions {
		mask |= 1 << uint(a.Amount)
	}
	for _, c := range g.node.isoCards {
		mask |= 1 << uint(c)
	}
	return mask
}

// Play advances the cursor. At decision nodes the argument is the action
// index; at chance nodes it is the dealt card id, validated against
// PossibleCards.
func (g *PostFlopGame) Play(action int) error {
	if g.node.IsTerminal() {
		return fmt.Errorf("cannot play at a terminal node")
	}

	if g.node.IsChance() {
		card := deck.Card(action)
		if card >= deck.NumCards || g.PossibleCards()&(1<<uint(action)) == 0 {
			return fmt.Errorf("card %s cannot be dealt here", card)
		}

		for idx, a := range g.node.actions {
			if deck.Card(a.Amount) == card {
				g.dealt = append(g.dealt, card)
				g.descend(idx, action)
				return nil
			}
		}
		for k, c := range g.node.isoCards {
			if c != card {
				continue
			}
			iso := g.node.isoChances[k]
			for p := 0; p < 2; p++ {
				applySwap32(g.weights[p], iso.SwapList[p])
			}
			g.swaps = append(g.swaps, iso.SwapList)
			g.dealt = append(g.dealt, card)
			g.descend(iso.Index, action)
			return nil
		}
		return fmt.Errorf("card %s cannot be dealt here", card)
	}

	if action < 0 || action >= g.node.NumActions() {
		return fmt.Errorf("action index %d out of range (%d actions)", action, g.node.NumActions())
	}
	strategy, err := g.Strategy()
	if err != nil {
		return err
	}
	player := g.node.Player()
	numHands := len(g.privateCards[player])
	row := strategy[action*numHands : (action+1)*numHands]
	for h := range row {
		g.weights[player][h] *= row[h]
	}
	g.descend(action, action)
	return nil
}

func (g *PostFlopGame) descend(childIndex, historyEntry int) {
	g.node = g.node.children[childIndex]
	g.history = append(g.history, historyEntry)
	g.normalizedOK = false
}

// ApplyHistory replays a line from the root.
func (g *PostFlopGame) ApplyHistory(history []int) error {
	g.BackToRoot()
	for _, action := range history {
		if err := g.Play(action); err != nil {
			return err
		}
	}
	return nil
}

// Strategy returns the acting player's averaged strategy at the cursor as
// a flat numActions x numHands vector. Rows sum to one per live hand;
// hands with no accumulated mass resolve to uniform.
func (g *PostFlopGame) Strategy() ([]float32, error) {
	if g.node.IsChance() || g.node.IsTerminal() {
		return nil, fmt.Errorf("no strategy at chance or terminal nodes")
	}
	if !g.allocated {
		return nil, fmt.Errorf("memory is not allocated")
	}
	player := g.node.Player()
	numHands := len(g.privateCards[player])
	strategy := solver.AverageStrategy(g.node, numHands)
	for a := 0; a < g.node.NumActions(); a++ {
		g.toView(strategy[a*numHands:(a+1)*numHands], player)
	}
	return strategy, nil
}

// Weights returns the player's current reach (prior times strategy
// products along the line played).
func (g *PostFlopGame) Weights(player int) []float32 {
	return g.weights[player]
}

// CacheNormalizedWeights snapshots, at the cursor, each player's reach
// multiplied by the compatible opponent reach mass, normalized to sum 1.
// Hands blocked by the board get weight zero.
func (g *PostFlopGame) CacheNormalizedWeights() {
	board := g.Board()
	for p := 0; p < 2; p++ {
		opp := p ^ 1

		var sum float64
		var minus [52]float64
		for j, hole := range g.privateCards[opp] {
			if blocksAny(hole, board) {
				continue
			}
			w := float64(g.weights[opp][j])
			sum += w
			minus[hole.Lo] += w
			minus[hole.Hi] += w
		}

		mass := make([]float32, len(g.privateCards[p]))
		normalized := make([]float32, len(g.privateCards[p]))
		var total float64
		for i, hole := range g.privateCards[p] {
			if blocksAny(hole, board) {
				continue
			}
			var same float64
			if si := g.sameHandIndex[p][i]; si != 0xffff {
				same = float64(g.weights[opp][si])
			}
			m := sum + same - minus[hole.Lo] - minus[hole.Hi]
			mass[i] = float32(m)
			normalized[i] = float32(float64(g.weights[p][i]) * m)
			total += float64(normalized[i])
		}
		if total > 0 {
			for i := range normalized {
				normalized[i] = float32(float64(normalized[i]) / total)
			}
		}
		g.oppMass[p] = mass
		g.normalized[p] = normalized
	}
	g.normalizedOK = true
}

// NormalizedWeights returns the cached normalized weights; call
// CacheNormalizedWeights at the current node first.
func (g *PostFlopGame) NormalizedWeights(player int) ([]float32, error) {
	if !g.normalizedOK {
		return nil, fmt.Errorf("normalized weights are not cached at this node")
	}
	return g.normalized[player], nil
}

// ExpectedValues returns per-hand counterfactual values for the player at
// the cursor, conditioned on holding each hand, with both players playing
// their average strategies below.
func (g *PostFlopGame) ExpectedValues(player int) ([]float32, error) {
	num, mass, err := g.readout(player, g.Evaluate)
	if err != nil {
		return nil, err
	}
	ev := make([]float32, len(num))
	for i := range num {
		if mass[i] > 0 {
			ev[i] = float32(float64(num[i]) * g.numCombinations / float64(mass[i]))
		}
	}
	return ev, nil
}

// Equity returns each hand's expected pot share at the cursor under the
// average strategies.
func (g *PostFlopGame) Equity(player int) ([]float32, error) {
	num, mass, err := g.readout(player, g.equityKernel)
	if err != nil {
		return nil, err
	}
	eq := make([]float32, len(num))
	for i := range num {
		if mass[i] > 0 {
			eq[i] = num[i] / mass[i]
		}
	}
	return eq, nil
}

// readout runs an average-strategy traversal from the cursor with the
// given terminal kernel, plus a matching reach-mass traversal for
// normalization. Results come back in view space.
func (g *PostFlopGame) readout(player int, kernel solver.TerminalKernel) (num, mass []float32, err error) {
	if !g.allocated {
		return nil, nil, fmt.Errorf("memory is not allocated")
	}
	opp := player ^ 1
	cfreach := append([]float32(nil), g.weights[opp]...)
	g.toCanonical(cfreach, opp)

	num = solver.TraverseAverage(g, g.node, player, cfreach, kernel, 0)
	mass = solver.TraverseAverage(g, g.node, player, cfreach, g.reachMassKernel, 0)
	g.toView(num, player)
	g.toView(mass, player)
	return num, mass, nil
}

// toView maps a canonical per-hand vector into the as-played indexing by
// applying the recorded suit swaps in order.
func (g *PostFlopGame) toView(v []float32, player int) {
	for _, swap := range g.swaps {
		applySwap32(v, swap[player])
	}
}

// toCanonical is the inverse: swaps applied in reverse order.
func (g *PostFlopGame) toCanonical(v []float32, player int) {
	for k := len(g.swaps) - 1; k >= 0; k-- {
		applySwap32(v, g.swaps[k][player])
	}
}

func applySwap32(v []float32, swaps [][2]uint16) {
	for _, s := range swaps {
		v[s[0]], v[s[1]] = v[s[1]], v[s[0]]
	}
}

func blocksAny(hole deck.Hole, board []deck.Card) bool {
	for _, c := range board {
		if hole.Blocks(c) {
			return true
		}
	}
	return false
}
