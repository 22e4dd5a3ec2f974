package solver

// AverageStrategy normalizes a node's accumulated strategy sums into a
// per-hand distribution over actions. Hands with zero mass resolve to
// uniform.
func AverageStrategy(node GameNode, numHands int) []float32 {
	numActions := node.NumActions()
	sums := node.StrategySum()
	strategy := make([]float32, numActions*numHands)
	for h := 0; h < numHands; h++ {
		var total float64
		for a := 0; a < numActions; a++ {
			total += float64(sums[a*numHands+h])
		}
		if total > 0 {
			for a := 0; a < numActions; a++ {
				strategy[a*numHands+h] = float32(float64(sums[a*numHands+h]) / total)
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

// bestResponseRecursive computes the per-hand value of a best response for
// player against the opponent's average strategy.
func bestResponseRecursive(result []float32, game Game, node GameNode, player int, cfreach []float32, parallelDepth, depth int) {
	if node.IsTerminal() {
		game.Evaluate(result, node, player, cfreach)
		return
	}

	numHands := len(result)

	if node.IsChance() {
		cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
			bestResponseRecursive(out, game, node.Play(action), player, cfreach, parallelDepth, depth+1)
		})
		sum := make([]float64, numHands)
		for _, cfv := range cfvActions {
			addTo(sum, cfv)
		}
		for _, iso := range node.IsomorphicChances() {
			replica := append([]float32(nil), cfvActions[iso.Index]...)
			applySwap(replica, iso.SwapList[player])
			addTo(sum, replica)
		}
		factor := float64(node.ChanceFactor())
		for i := range result {
			result[i] = float32(sum[i] * factor)
		}
		return
	}

	if node.Player() == player {
		cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
			bestResponseRecursive(out, game, node.Play(action), player, cfreach, parallelDepth, depth+1)
		})
		copy(result, cfvActions[0])
		for _, cfv := range cfvActions[1:] {
			for h := 0; h < numHands; h++ {
				if cfv[h] > result[h] {
					result[h] = cfv[h]
				}
			}
		}
		return
	}

	// opponent plays their average strategy; rows are over their hands
	opponentHands := len(cfreach)
	avg := AverageStrategy(node, opponentHands)
	cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
		childReach := make([]float32, opponentHands)
		row := avg[action*opponentHands : (action+1)*opponentHands]
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
		bestResponseRecursive(out, game, node.Play(action), player, childReach, parallelDepth, depth+1)
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

// TerminalKernel evaluates per-hand values at a terminal node. The game's
// own Evaluate is the usual kernel; readouts substitute others (equity,
// reach mass) over the same traversal.
type TerminalKernel func(result []float32, node GameNode, player int, cfreach []float32)

// TraverseAverage computes per-hand values from the given node with both
// players following their average strategies, evaluating terminals with
// the supplied kernel.
func TraverseAverage(game Game, node GameNode, player int, cfreach []float32, kernel TerminalKernel, parallelDepth int) []float32 {
	result := make([]float32, game.NumPrivateHands(player))
	averageStrategyRecursive(result, game, node, player, cfreach, kernel, parallelDepth, 0)
	return result
}

// averageStrategyRecursive computes per-hand counterfactual values with
// both players following their average strategies.
func averageStrategyRecursive(result []float32, game Game, node GameNode, player int, cfreach []float32, kernel TerminalKernel, parallelDepth, depth int) {
	if node.IsTerminal() {
		kernel(result, node, player, cfreach)
		return
	}

	numHands := len(result)
	numActions := node.NumActions()

	if node.IsChance() {
		cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
			averageStrategyRecursive(out, game, node.Play(action), player, cfreach, kernel, parallelDepth, depth+1)
		})
		sum := make([]float64, numHands)
		for _, cfv := range cfvActions {
			addTo(sum, cfv)
		}
		for _, iso := range node.IsomorphicChances() {
			replica := append([]float32(nil), cfvActions[iso.Index]...)
			applySwap(replica, iso.SwapList[player])
			addTo(sum, replica)
		}
		factor := float64(node.ChanceFactor())
		for i := range result {
			result[i] = float32(sum[i] * factor)
		}
		return
	}

	if node.Player() == player {
		avg := AverageStrategy(node, numHands)
		cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
			averageStrategyRecursive(out, game, node.Play(action), player, cfreach, kernel, parallelDepth, depth+1)
		})
		for i := range result {
			result[i] = 0
		}
		for a := 0; a < numActions; a++ {
			row := avg[a*numHands : (a+1)*numHands]
			cfv := cfvActions[a]
			for h := 0; h < numHands; h++ {
				result[h] += row[h] * cfv[h]
			}
		}
		return
	}

	opponentHands := game.NumPrivateHands(node.Player())
	avg := AverageStrategy(node, opponentHands)
	cfvActions := forEachChild(node, numHands, depth, parallelDepth, func(action int, out []float32) {
		childReach := make([]float32, opponentHands)
		row := avg[action*opponentHands : (action+1)*opponentHands]
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
		averageStrategyRecursive(out, game, node.Play(action), player, childReach, kernel, parallelDepth, depth+1)
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

// ComputeBestResponseValue returns the total value a best responder
// extracts against the opponent's average strategy, weighted by the
// responder's prior reach.
func ComputeBestResponseValue(game Game, player, parallelDepth int) float32 {
	result := make([]float32, game.NumPrivateHands(player))
	bestResponseRecursive(result, game, game.Root(), player, game.InitialReach(player^1), parallelDepth, 0)
	return dot(game.InitialReach(player), result)
}

// ComputeEV returns the expected value for player with both players
// following their average strategies.
func ComputeEV(game Game, player, parallelDepth int) float32 {
	result := TraverseAverage(game, game.Root(), player, game.InitialReach(player^1), game.Evaluate, parallelDepth)
	return dot(game.InitialReach(player), result)
}

// ComputeExploitability returns half the sum of both players' best-response
// values, the distance of the average profile from equilibrium.
func ComputeExploitability(game Game, parallelDepth int) float32 {
	br0 := ComputeBestResponseValue(game, 0, parallelDepth)
	br1 := ComputeBestResponseValue(game, 1, parallelDepth)
	return (br0 + br1) / 2
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
