package tree

import (
	"fmt"
	"math"
	"sort"
)

// Node is one node of the abstract betting tree.
type Node struct {
	// Player is the acting player, PlayerChance, or a terminal marker
	// (see the flag constants in action.go).
	Player uint16

	// Street is the node's street. For chance nodes it is the street the
	// dealt card starts (StateTurn or StateRiver).
	Street BoardState

	// Amount is the chips committed by each side beyond the starting pot.
	// Both sides are equal here: outstanding wagers are matched (call) or
	// abandoned (fold) before a node is created.
	Amount int32

	// Actions and Children run parallel.
	Actions  []Action
	Children []*Node
}

// IsTerminal reports whether the node ends the hand.
func (n *Node) IsTerminal() bool {
	return n.Player&TerminalFlag != 0
}

// IsFold reports whether the node is a fold terminal.
func (n *Node) IsFold() bool {
	return n.Player&FoldFlag == FoldFlag
}

// IsChance reports whether the node deals a card.
func (n *Node) IsChance() bool {
	return n.Player == PlayerChance
}

// FoldedPlayer returns the player who folded at a fold terminal.
func (n *Node) FoldedPlayer() int {
	return int(n.Player & PlayerMask)
}

// ActionTree is the card-independent betting abstraction.
type ActionTree struct {
	Config Config
	Root   *Node

	numNodes int
}

// buildState carries the within-street betting context down the recursion.
type buildState struct {
	lastAction    Action
	wager         [2]int32 // outstanding street wagers
	minRaiseTo    int32
	allIn         bool
	prevAggressor int // last aggressor of the completed street, or -1
}

// New validates the config and builds the betting tree.
func New(config Config) (*ActionTree, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &ActionTree{Config: config}
	t.Root = &Node{
		Player: PlayerOOP,
		Street: config.InitialState,
	}
	t.buildDecision(t.Root, buildState{
		lastAction:    Action{Kind: ActionNone},
		prevAggressor: -1,
	})
	return t, nil
}

// NumNodes returns the total node count.
func (t *ActionTree) NumNodes() int {
	return t.numNodes
}

func (t *ActionTree) buildDecision(node *Node, st buildState) {
	t.numNodes++
	if node.IsTerminal() {
		return
	}
	if node.IsChance() {
		t.buildChanceChild(node, st)
		return
	}

	player := int(node.Player)
	opponent := player ^ 1

	for _, cand := range t.candidates(node, st) {
		child := &Node{Street: node.Street, Amount: node.Amount}
		next := st
		next.lastAction = cand

		switch cand.Kind {
		case ActionFold:
			child.Player = FoldFlag | uint16(player)

		case ActionCheck:
			if player == int(PlayerOOP) {
				child.Player = uint16(opponent)
			} else if node.Street == StateRiver {
				child.Player = TerminalFlag | uint16(player)
			} else {
				// street checks through: no aggressor to lead into
				child.Player = PlayerChance
				child.Street = node.Street + 1
				next = buildState{lastAction: cand, prevAggressor: -1}
			}

		case ActionCall:
			child.Amount = node.Amount + st.wager[opponent]
			switch {
			case node.Street == StateRiver:
				child.Player = TerminalFlag | uint16(player)
			case st.allIn:
				// remaining streets still get dealt
				child.Player = PlayerChance
				child.Street = node.Street + 1
				next = buildState{lastAction: cand, allIn: true, prevAggressor: opponent}
			default:
				child.Player = PlayerChance
				child.Street = node.Street + 1
				next = buildState{lastAction: cand, prevAggressor: opponent}
			}

		case ActionBet, ActionRaise, ActionAllIn:
			child.Player = uint16(opponent)
			prevWager := st.wager[opponent]
			next.wager[player] = cand.Amount
			next.minRaiseTo = cand.Amount + (cand.Amount - prevWager)
			next.allIn = cand.Kind == ActionAllIn
		}

		node.Actions = append(node.Actions, cand)
		node.Children = append(node.Children, child)
		t.buildDecision(child, next)
	}
}

// buildChanceChild links a chance node to the next decision point (or
// onward chance/terminal when a player is already all-in).
func (t *ActionTree) buildChanceChild(node *Node, st buildState) {
	child := &Node{Street: node.Street, Amount: node.Amount}
	next := buildState{lastAction: Action{Kind: ActionChance}, prevAggressor: st.prevAggressor, allIn: st.allIn}

	switch {
	case st.allIn && node.Street == StateRiver:
		child.Player = TerminalFlag
	case st.allIn:
		child.Player = PlayerChance
		child.Street = node.Street + 1
	default:
		child.Player = PlayerOOP
	}

	node.Actions = append(node.Actions, Action{Kind: ActionChance})
	node.Children = append(node.Children, child)
	t.buildDecision(child, next)
}

// candidates generates the filtered action list for a decision node:
// legality bounds, all-in thresholds, then merging.
func (t *ActionTree) candidates(node *Node, st buildState) []Action {
	cfg := &t.Config
	player := int(node.Player)
	opponent := player ^ 1

	maxWager := cfg.EffectiveStack - node.Amount
	facingBet := st.wager[opponent] > st.wager[player]

	var actions []Action

	if !facingBet {
		actions = append(actions, Action{Kind: ActionCheck})
		if maxWager > 0 {
			sizes := t.openSizes(node, st)
			actions = append(actions, t.wagerActions(sizes, node, st, false)...)
		}
		return actions
	}

	actions = append(actions, Action{Kind: ActionFold}, Action{Kind: ActionCall})
	if !st.allIn && st.wager[opponent] < maxWager {
		sizes := cfg.betSizes(node.Street)[player].Raise
		actions = append(actions, t.wagerActions(sizes, node, st, true)...)
	}
	return actions
}

// openSizes picks the bet candidate list for a player opening the betting,
// substituting donk sizes for an OOP lead into the previous street's
// aggressor.
func (t *ActionTree) openSizes(node *Node, st buildState) []BetSize {
	cfg := &t.Config
	player := int(node.Player)
	if player == int(PlayerOOP) && st.prevAggressor == int(PlayerIP) {
		if donk := cfg.donkSizes(node.Street); donk != nil {
			return donk
		}
	}
	return cfg.betSizes(node.Street)[player].Bet
}

// wagerActions resolves sizing tokens into concrete wagers and filters
// them: (i) legality bounds, (ii) the add all-in rule, (iii) the force
// all-in rule, (iv) relative merging.
func (t *ActionTree) wagerActions(sizes []BetSize, node *Node, st buildState, raising bool) []Action {
	cfg := &t.Config
	player := int(node.Player)
	opponent := player ^ 1

	potMatched := cfg.StartingPot + 2*node.Amount
	outstanding := st.wager[opponent]
	potAfterCall := potMatched + 2*outstanding
	maxWager := cfg.EffectiveStack - node.Amount

	minLegal := int32(1)
	if raising {
		minLegal = st.minRaiseTo
	}

	// resolve tokens to street-total wagers, in textual order
	var resolved []int32
	for _, size := range sizes {
		var wager int32
		switch size.Kind {
		case BetSizePotRelative:
			wager = outstanding + int32(math.Round(size.Value*float64(potAfterCall)))
		case BetSizePrevRelative:
			wager = int32(math.Round(size.Value * float64(outstanding)))
		case BetSizeAbsolute:
			wager = outstanding + int32(math.Round(size.Value))
		case BetSizeGeometric:
			wager = outstanding + geometricWager(potAfterCall, cfg.StartingPot+2*cfg.EffectiveStack, node.Street)
		case BetSizeAllIn:
			wager = maxWager
		}

		// (i) legality: below the minimum or beyond the stack is dropped
		if wager < minLegal || wager > maxWager {
			continue
		}
		resolved = append(resolved, wager)
	}

	// (ii) append all-in when even the largest candidate stays small
	if len(sizes) > 0 {
		var largest int32
		for _, w := range resolved {
			if w > largest {
				largest = w
			}
		}
		if float64(largest) <= cfg.AddAllInThreshold*float64(potAfterCall) &&
			maxWager > outstanding && !contains(resolved, maxWager) {
			resolved = append(resolved, maxWager)
		}
	}

	// (iii) force all-in when the SPR after a call drops below threshold
	for i, w := range resolved {
		behind := float64(cfg.EffectiveStack - node.Amount - w)
		potAfter := float64(potMatched + 2*w)
		if behind/potAfter <= cfg.ForceAllInThreshold {
			resolved[i] = maxWager
		}
	}

	resolved = dedupe(resolved)
	resolved = merge(resolved, cfg.MergingThreshold)

	actions := make([]Action, 0, len(resolved))
	for _, w := range resolved {
		kind := ActionBet
		if raising {
			kind = ActionRaise
		}
		if w == maxWager {
			kind = ActionAllIn
		}
		actions = append(actions, Action{Kind: kind, Amount: w})
	}
	return actions
}

// geometricWager sizes the bet that splits the remaining streets into
// equal pot-growth steps ending exactly all-in.
func geometricWager(potAfterCall, finalPot int32, street BoardState) int32 {
	if potAfterCall <= 0 || finalPot <= potAfterCall {
		return 0
	}
	streets := float64(street.streetsToRiver())
	growth := math.Pow(float64(finalPot)/float64(potAfterCall), 1/streets)
	fraction := (growth - 1) / 2
	return int32(math.Round(fraction * float64(potAfterCall)))
}

func contains(values []int32, v int32) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// dedupe drops repeated wagers, keeping first occurrence order.
func dedupe(values []int32) []int32 {
	seen := make(map[int32]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// merge collapses wagers whose relative distance is below the threshold,
// keeping the larger of each colliding pair.
func merge(values []int32, threshold float64) []int32 {
	if threshold == 0 || len(values) < 2 {
		return values
	}

	sorted := append([]int32(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	kept := make(map[int32]bool, len(sorted))
	last := sorted[0]
	kept[last] = true
	for _, v := range sorted[1:] {
		if float64(last-v)/float64(last) < threshold {
			continue
		}
		kept[v] = true
		last = v
	}

	out := values[:0]
	for _, v := range values {
		if kept[v] {
			out = append(out, v)
		}
	}
	return out
}

// Describe returns a one-line summary for logs.
func (t *ActionTree) Describe() string {
	return fmt.Sprintf("action tree: %s root, pot %d, stack %d, %d nodes",
		t.Config.InitialState, t.Config.StartingPot, t.Config.EffectiveStack, t.NumNodes())
}
