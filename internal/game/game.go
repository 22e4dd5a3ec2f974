package game

import (
	"fmt"

	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/evaluator"
	"github.com/lox/postflop/internal/handrange"
	"github.com/lox/postflop/internal/icm"
	"github.com/lox/postflop/internal/solver"
	"github.com/lox/postflop/internal/tree"
)

// CardConfig binds a built action tree to concrete cards and ranges.
type CardConfig struct {
	Ranges [2]*handrange.Range
	Flop   [3]deck.Card
	Turn   deck.Card
	River  deck.Card
}

// Validate checks the card configuration against the tree's initial state.
func (c *CardConfig) Validate(initial tree.BoardState) error {
	if c.Ranges[0] == nil || c.Ranges[1] == nil {
		return fmt.Errorf("both ranges must be set")
	}
	seen := map[deck.Card]bool{}
	for _, card := range c.Flop {
		if card >= deck.NumCards {
			return fmt.Errorf("invalid flop card: %d", card)
		}
		if seen[card] {
			return fmt.Errorf("duplicate board card: %s", card)
		}
		seen[card] = true
	}
	for _, card := range []deck.Card{c.Turn, c.River} {
		if card == deck.NotDealt {
			continue
		}
		if card >= deck.NumCards {
			return fmt.Errorf("invalid board card: %d", card)
		}
		if seen[card] {
			return fmt.Errorf("duplicate board card: %s", card)
		}
		seen[card] = true
	}
	switch initial {
	case tree.StateFlop:
		if c.Turn != deck.NotDealt || c.River != deck.NotDealt {
			return fmt.Errorf("flop tree cannot fix turn or river cards")
		}
	case tree.StateTurn:
		if c.Turn == deck.NotDealt {
			return fmt.Errorf("turn tree requires a turn card")
		}
		if c.River != deck.NotDealt {
			return fmt.Errorf("turn tree cannot fix the river card")
		}
	case tree.StateRiver:
		if c.Turn == deck.NotDealt || c.River == deck.NotDealt {
			return fmt.Errorf("river tree requires turn and river cards")
		}
	}
	return nil
}

// knownBoard returns the board cards fixed by the configuration.
func (c *CardConfig) knownBoard() []deck.Card {
	board := append([]deck.Card(nil), c.Flop[:]...)
	if c.Turn != deck.NotDealt {
		board = append(board, c.Turn)
	}
	if c.River != deck.NotDealt {
		board = append(board, c.River)
	}
	return board
}

// PostFlopGame is the materialized, solvable game.
type PostFlopGame struct {
	cardConfig CardConfig
	actionTree *tree.ActionTree
	utility    *icm.Table

	root *PostFlopNode

	privateCards   [2][]deck.Hole
	initialWeights [2][]float32
	sameHandIndex  [2][]uint16
	handIndexOf    [2]map[int]int

	validIndicesFlop  [2][]uint16
	validIndicesTurn  map[deck.Card]*[2][]uint16
	validIndicesRiver map[int]*[2][]uint16
	handStrength      map[int]*[2][]evaluator.StrengthItem

	swapLists map[[2]deck.Suit]*[2][][2]uint16

	numCombinations float64

	allocated  bool
	compressed bool

	// cursor state (see interface.go)
	node         *PostFlopNode
	history      []int
	dealt        []deck.Card
	weights      [2][]float32
	swaps        [][2][][2]uint16
	oppMass      [2][]float32
	normalized   [2][]float32
	normalizedOK bool
}

const (
	turnChanceFactor  = 1.0 / 45
	riverChanceFactor = 1.0 / 44
)

// New materializes the action tree against the card configuration. The
// utility table may be nil, in which case payoffs are plain chip EV.
func New(cardCfg CardConfig, actionTree *tree.ActionTree, utility *icm.Table) (*PostFlopGame, error) {
	if err := cardCfg.Validate(actionTree.Config.InitialState); err != nil {
		return nil, err
	}
	if utility != nil && utility.NumPlayers() < 2 {
		return nil, fmt.Errorf("utility table must cover both players")
	}

	g := &PostFlopGame{
		cardConfig:        cardCfg,
		actionTree:        actionTree,
		utility:           utility,
		validIndicesTurn:  make(map[deck.Card]*[2][]uint16),
		validIndicesRiver: make(map[int]*[2][]uint16),
		handStrength:      make(map[int]*[2][]evaluator.StrengthItem),
		swapLists:         make(map[[2]deck.Suit]*[2][][2]uint16),
	}

	known := cardCfg.knownBoard()
	for p := 0; p < 2; p++ {
		g.handIndexOf[p] = make(map[int]int)
		weights := cardCfg.Ranges[p].RawData()
		for c1 := deck.Card(0); c1 < deck.NumCards; c1++ {
			for c2 := c1 + 1; c2 < deck.NumCards; c2++ {
				w := weights[deck.PairIndex(c1, c2)]
				if w == 0 || onBoard(known, c1) || onBoard(known, c2) {
					continue
				}
				g.handIndexOf[p][deck.PairIndex(c1, c2)] = len(g.privateCards[p])
				g.privateCards[p] = append(g.privateCards[p], deck.NewHole(c1, c2))
				g.initialWeights[p] = append(g.initialWeights[p], w)
			}
		}
		if len(g.privateCards[p]) == 0 {
			return nil, fmt.Errorf("player %d range has no live hands on this board", p)
		}
	}

	for p := 0; p < 2; p++ {
		g.sameHandIndex[p] = make([]uint16, len(g.privateCards[p]))
		for i, hole := range g.privateCards[p] {
			if j, ok := g.handIndexOf[p^1][hole.Index()]; ok {
				g.sameHandIndex[p][i] = uint16(j)
			} else {
				g.sameHandIndex[p][i] = 0xffff
			}
		}
		g.validIndicesFlop[p] = make([]uint16, len(g.privateCards[p]))
		for i := range g.validIndicesFlop[p] {
			g.validIndicesFlop[p][i] = uint16(i)
		}
	}

	g.numCombinations = 0
	for i, h0 := range g.privateCards[0] {
		for j, h1 := range g.privateCards[1] {
			if h0.Blocks(h1.Lo) || h0.Blocks(h1.Hi) {
				continue
			}
			g.numCombinations += float64(g.initialWeights[0][i]) * float64(g.initialWeights[1][j])
		}
	}
	if g.numCombinations == 0 {
		return nil, fmt.Errorf("ranges conflict: no compatible hand pair exists")
	}

	g.root = g.materialize(actionTree.Root, cardCfg.Turn, cardCfg.River)
	g.BackToRoot()
	return g, nil
}

func onBoard(board []deck.Card, c deck.Card) bool {
	for _, b := range board {
		if b == c {
			return true
		}
	}
	return false
}

// materialize mirrors the action tree into game nodes, expanding chance
// nodes into one child per canonical card.
func (g *PostFlopGame) materialize(an *tree.Node, turn, river deck.Card) *PostFlopNode {
	node := &PostFlopNode{
		player: an.Player,
		turn:   turn,
		river:  river,
		amount: an.Amount,
	}

	switch {
	case an.IsTerminal():
		g.registerTerminal(node)

	case an.IsChance():
		g.expandChance(node, an, turn, river)

	default:
		node.actions = append(node.actions, an.Actions...)
		for _, child := range an.Children {
			node.children = append(node.children, g.materialize(child, turn, river))
		}
	}
	return node
}

// registerTerminal precomputes the index and strength tables the terminal
// kernels will consult.
func (g *PostFlopGame) registerTerminal(node *PostFlopNode) {
	switch {
	case node.river != deck.NotDealt:
		g.ensureRiverIndices(node.turn, node.river)
		if !node.IsFold() {
			g.ensureStrength(node.turn, node.river)
		}
	case node.turn != deck.NotDealt:
		g.ensureTurnIndices(node.turn)
	}
}

// expandChance enumerates dealable cards, folding suit-isomorphic deals
// onto a canonical sibling.
func (g *PostFlopGame) expandChance(node *PostFlopNode, an *tree.Node, turn, river deck.Card) {
	dealingRiver := an.Street == tree.StateRiver
	if dealingRiver {
		node.chanceFactor = riverChanceFactor
	} else {
		node.chanceFactor = turnChanceFactor
	}

	board := append([]deck.Card(nil), g.cardConfig.Flop[:]...)
	if turn != deck.NotDealt {
		board = append(board, turn)
	}

	type canonical struct {
		card  deck.Card
		index int
	}
	var accepted []canonical

	for c := deck.Card(0); c < deck.NumCards; c++ {
		if onBoard(board, c) || !g.bothPlayersLive(c, turn) {
			continue
		}

		folded := false
		for _, canon := range accepted {
			if canon.card.Rank() != c.Rank() {
				continue
			}
			if g.suitsExchangeable(canon.card.Suit(), c.Suit(), board) {
				node.isoChances = append(node.isoChances, solver.IsomorphicChance{
					Index:    canon.index,
					SwapList: *g.swapList(canon.card.Suit(), c.Suit()),
				})
				node.isoCards = append(node.isoCards, c)
				folded = true
				break
			}
		}
		if folded {
			continue
		}

		childTurn, childRiver := turn, river
		if dealingRiver {
			childRiver = c
		} else {
			childTurn = c
		}
		accepted = append(accepted, canonical{card: c, index: len(node.children)})
		node.actions = append(node.actions, tree.Action{Kind: tree.ActionChance, Amount: int32(c)})
		node.children = append(node.children, g.materialize(an.Children[0], childTurn, childRiver))
	}
}

// bothPlayersLive reports whether each player still holds at least one
// hand if card c is dealt (turn is the in-tree turn card, or NotDealt).
func (g *PostFlopGame) bothPlayersLive(c, turn deck.Card) bool {
	for p := 0; p < 2; p++ {
		live := false
		for _, hole := range g.privateCards[p] {
			if hole.Blocks(c) {
				continue
			}
			if turn != deck.NotDealt && hole.Blocks(turn) {
				continue
			}
			live = true
			break
		}
		if !live {
			return false
		}
	}
	return true
}

// suitsExchangeable reports whether exchanging two suits fixes the board
// and both ranges, making the corresponding deals value-equivalent.
func (g *PostFlopGame) suitsExchangeable(a, b deck.Suit, board []deck.Card) bool {
	for _, c := range board {
		if !onBoard(board, c.SwapSuit(a, b)) {
			return false
		}
	}
	return g.cardConfig.Ranges[0].IsSuitIsomorphic(a, b) &&
		g.cardConfig.Ranges[1].IsSuitIsomorphic(a, b)
}

// swapList returns (building on demand) the per-player private-hand index
// transpositions induced by exchanging two suits.
func (g *PostFlopGame) swapList(a, b deck.Suit) *[2][][2]uint16 {
	if a > b {
		a, b = b, a
	}
	key := [2]deck.Suit{a, b}
	if cached, ok := g.swapLists[key]; ok {
		return cached
	}
	var lists [2][][2]uint16
	for p := 0; p < 2; p++ {
		for i, hole := range g.privateCards[p] {
			mapped := deck.NewHole(hole.Lo.SwapSuit(a, b), hole.Hi.SwapSuit(a, b))
			j, ok := g.handIndexOf[p][mapped.Index()]
			if ok && j > i {
				lists[p] = append(lists[p], [2]uint16{uint16(i), uint16(j)})
			}
		}
	}
	g.swapLists[key] = &lists
	return &lists
}

func (g *PostFlopGame) ensureTurnIndices(turnCard deck.Card) *[2][]uint16 {
	if cached, ok := g.validIndicesTurn[turnCard]; ok {
		return cached
	}
	var indices [2][]uint16
	for p := 0; p < 2; p++ {
		for i, hole := range g.privateCards[p] {
			if !hole.Blocks(turnCard) {
				indices[p] = append(indices[p], uint16(i))
			}
		}
	}
	g.validIndicesTurn[turnCard] = &indices
	return &indices
}

func (g *PostFlopGame) ensureRiverIndices(turnCard, riverCard deck.Card) *[2][]uint16 {
	key := deck.PairIndex(turnCard, riverCard)
	if cached, ok := g.validIndicesRiver[key]; ok {
		return cached
	}
	var indices [2][]uint16
	for p := 0; p < 2; p++ {
		for i, hole := range g.privateCards[p] {
			if !hole.Blocks(turnCard) && !hole.Blocks(riverCard) {
				indices[p] = append(indices[p], uint16(i))
			}
		}
	}
	g.validIndicesRiver[key] = &indices
	return &indices
}

func (g *PostFlopGame) ensureStrength(turnCard, riverCard deck.Card) *[2][]evaluator.StrengthItem {
	key := deck.PairIndex(turnCard, riverCard)
	if cached, ok := g.handStrength[key]; ok {
		return cached
	}
	board := [5]deck.Card{
		g.cardConfig.Flop[0], g.cardConfig.Flop[1], g.cardConfig.Flop[2],
		turnCard, riverCard,
	}
	ranked := evaluator.RankHands(board, g.privateCards)
	g.handStrength[key] = &ranked
	return &ranked
}

// validIndices returns the live-hand index table for a node's board.
func (g *PostFlopGame) validIndices(node *PostFlopNode) *[2][]uint16 {
	switch {
	case node.river != deck.NotDealt:
		return g.ensureRiverIndices(node.turn, node.river)
	case node.turn != deck.NotDealt:
		return g.ensureTurnIndices(node.turn)
	default:
		return &g.validIndicesFlop
	}
}

// Root implements solver.Game.
func (g *PostFlopGame) Root() solver.GameNode {
	return g.root
}

// NumPrivateHands implements solver.Game.
func (g *PostFlopGame) NumPrivateHands(player int) int {
	return len(g.privateCards[player])
}

// InitialReach implements solver.Game.
func (g *PostFlopGame) InitialReach(player int) []float32 {
	return g.initialWeights[player]
}

// PrivateCards returns the player's live weighted hands, in hand-index
// order.
func (g *PostFlopGame) PrivateCards(player int) []deck.Hole {
	return g.privateCards[player]
}

// TreeConfig returns the betting abstraction configuration.
func (g *PostFlopGame) TreeConfig() tree.Config {
	return g.actionTree.Config
}

// NumCombinations returns the prior-weighted count of compatible hand
// pairs.
func (g *PostFlopGame) NumCombinations() float64 {
	return g.numCombinations
}

// MemoryUsage reports the bytes needed for the regret and strategy buffers
// in plain float32 and in 16-bit fixed-point form.
func (g *PostFlopGame) MemoryUsage() (uncompressed, compressed uint64) {
	g.walk(func(n *PostFlopNode) {
		if n.IsTerminal() || n.IsChance() {
			return
		}
		cells := uint64(n.NumActions()) * uint64(len(g.privateCards[n.Player()]))
		uncompressed += 2 * cells * 4
		compressed += 2 * cells * 2
	})
	return uncompressed, compressed
}

// AllocateMemory zero-fills the per-node solve buffers. It must be called
// before solving; building and sizing the tree does not allocate them.
func (g *PostFlopGame) AllocateMemory(compressed bool) {
	g.compressed = compressed
	g.walk(func(n *PostFlopNode) {
		if n.IsTerminal() || n.IsChance() {
			return
		}
		cells := n.NumActions() * len(g.privateCards[n.Player()])
		n.compressed = compressed
		if compressed {
			n.cRegrets = make([]int16, cells)
			n.cStrategySum = make([]int16, cells)
			n.regrets, n.strategySum = nil, nil
		} else {
			n.regrets = make([]float32, cells)
			n.strategySum = make([]float32, cells)
			n.cRegrets, n.cStrategySum = nil, nil
		}
	})
	g.allocated = true
}

// Allocated reports whether solve buffers exist.
func (g *PostFlopGame) Allocated() bool {
	return g.allocated
}

// IsCompressionEnabled reports whether 16-bit storage is in use.
func (g *PostFlopGame) IsCompressionEnabled() bool {
	return g.compressed
}

func (g *PostFlopGame) walk(fn func(*PostFlopNode)) {
	var rec func(*PostFlopNode)
	rec = func(n *PostFlopNode) {
		fn(n)
		for _, child := range n.children {
			rec(child)
		}
	}
	rec(g.root)
}
