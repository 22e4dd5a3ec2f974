package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/handrange"
	"github.com/lox/postflop/internal/tree"
)

func mustFlop(t *testing.T, s string) [3]deck.Card {
	t.Helper()
	flop, err := deck.FlopFromString(s)
	require.NoError(t, err)
	return flop
}

// riverGame builds a river-only game: pot 200, stack 900, one 60% bet.
func riverGame(t *testing.T, oop, ip string, rakeRate, rakeCap float64) *PostFlopGame {
	t.Helper()
	sizes, err := tree.NewBetSizeCandidates("60%", "2.5x")
	require.NoError(t, err)
	actionTree, err := tree.New(tree.Config{
		InitialState:   tree.StateRiver,
		StartingPot:    200,
		EffectiveStack: 900,
		RakeRate:       rakeRate,
		RakeCap:        rakeCap,
		RiverBetSizes:  [2]tree.BetSizeCandidates{sizes, sizes},
	})
	require.NoError(t, err)

	g, err := New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse(oop), handrange.MustParse(ip)},
		Flop:   mustFlop(t, "2c7d9h"),
		Turn:   deck.MustCard("Jc"),
		River:  deck.MustCard("Qd"),
	}, actionTree, nil)
	require.NoError(t, err)
	return g
}

func TestNewRejectsBadConfigs(t *testing.T) {
	sizes, err := tree.NewBetSizeCandidates("60%", "")
	require.NoError(t, err)
	actionTree, err := tree.New(tree.Config{
		InitialState:   tree.StateRiver,
		StartingPot:    200,
		EffectiveStack: 900,
		RiverBetSizes:  [2]tree.BetSizeCandidates{sizes, sizes},
	})
	require.NoError(t, err)

	// river tree without river card
	_, err = New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("AA"), handrange.MustParse("KK")},
		Flop:   mustFlop(t, "2c7d9h"),
		Turn:   deck.MustCard("Jc"),
		River:  deck.NotDealt,
	}, actionTree, nil)
	assert.Error(t, err)

	// range dead on this board
	_, err = New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("QdQh"), handrange.MustParse("KK")},
		Flop:   mustFlop(t, "2c7d9h"),
		Turn:   deck.MustCard("Jc"),
		River:  deck.MustCard("Qd"),
	}, actionTree, nil)
	assert.Error(t, err)

	// ranges hold the same two cards: no compatible pair
	_, err = New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("AcAd"), handrange.MustParse("AcAd")},
		Flop:   mustFlop(t, "2c7d9h"),
		Turn:   deck.MustCard("Jc"),
		River:  deck.MustCard("Qd"),
	}, actionTree, nil)
	assert.Error(t, err)

	// duplicate board card
	_, err = New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("AA"), handrange.MustParse("KK")},
		Flop:   mustFlop(t, "2c7d9h"),
		Turn:   deck.MustCard("2c"),
		River:  deck.MustCard("Qd"),
	}, actionTree, nil)
	assert.Error(t, err)
}

func TestFoldPayoff(t *testing.T) {
	g := riverGame(t, "AsAh", "KsKh", 0, 0)
	require.InDelta(t, 1.0, g.NumCombinations(), 1e-9)

	// root -> Bet 120 -> Fold terminal
	betNode := g.root.children[1]
	foldNode := betNode.children[0]
	require.True(t, foldNode.IsFold())
	assert.Equal(t, 1, foldNode.FoldedPlayer())
	// the unmatched bet returns; the pot stays 200
	assert.Equal(t, int32(0), foldNode.Amount())

	// OOP wins half the 200 pot per unit of opponent reach
	result := make([]float32, 1)
	g.Evaluate(result, foldNode, 0, []float32{1})
	assert.InDelta(t, 100, float64(result[0]), 1e-6)

	// scaling by the opponent's reach probability
	g.Evaluate(result, foldNode, 0, []float32{0.25})
	assert.InDelta(t, 25, float64(result[0]), 1e-6)

	// the folder loses half the pot
	g.Evaluate(result, foldNode, 1, []float32{1})
	assert.InDelta(t, -100, float64(result[0]), 1e-6)
}

func TestFoldPayoffBlockerAccounting(t *testing.T) {
	// both players hold AKs: four combos each, same-hand pairs excluded
	g := riverGame(t, "AKs", "AKs", 0, 0)
	require.Len(t, g.PrivateCards(0), 4)

	// each hand is compatible with the 3 opponent combos in other suits
	require.InDelta(t, 12, g.NumCombinations(), 1e-9)

	foldNode := g.root.children[1].children[0]
	require.True(t, foldNode.IsFold())

	cfreach := []float32{1, 1, 1, 1}
	result := make([]float32, 4)
	g.Evaluate(result, foldNode, 0, cfreach)
	for i := range result {
		// payoff 100/12 per combination times 3 compatible combos
		assert.InDelta(t, 100.0/12.0*3.0, float64(result[i]), 1e-4, "hand %d", i)
	}
}

func TestShowdownPayoff(t *testing.T) {
	g := riverGame(t, "AsAh", "KsKh", 0, 0)

	// root -> Check -> Check: showdown with no extra chips
	showdown := g.root.children[0].children[0]
	require.True(t, showdown.IsTerminal())
	require.False(t, showdown.IsFold())

	result := make([]float32, 1)
	g.Evaluate(result, showdown, 0, []float32{1})
	assert.InDelta(t, 100, float64(result[0]), 1e-6)

	g.Evaluate(result, showdown, 1, []float32{1})
	assert.InDelta(t, -100, float64(result[0]), 1e-6)

	// bet 120, call: pot 440, each side wins/loses 220
	called := g.root.children[1].children[1]
	require.True(t, called.IsTerminal())
	require.Equal(t, int32(120), called.Amount())

	g.Evaluate(result, called, 0, []float32{1})
	assert.InDelta(t, 220, float64(result[0]), 1e-6)
}

func TestShowdownTieIsZero(t *testing.T) {
	// KsKh vs KcKd on a board where the kicker plays from the board
	g := riverGame(t, "KsKh", "KcKd", 0, 0)
	showdown := g.root.children[0].children[0]

	result := make([]float32, 1)
	g.Evaluate(result, showdown, 0, []float32{1})
	assert.InDelta(t, 0, float64(result[0]), 1e-6)
	g.Evaluate(result, showdown, 1, []float32{1})
	assert.InDelta(t, 0, float64(result[0]), 1e-6)
}

func TestRakedShowdown(t *testing.T) {
	g := riverGame(t, "AsAh", "KsKh", 0.05, 10)
	showdown := g.root.children[0].children[0]

	// rake = min(200 x 0.05, 10) = 10 comes off the winner's half
	result := make([]float32, 1)
	g.Evaluate(result, showdown, 0, []float32{1})
	assert.InDelta(t, 90, float64(result[0]), 1e-6)

	// the loser still loses the full half pot
	g.Evaluate(result, showdown, 1, []float32{1})
	assert.InDelta(t, -100, float64(result[0]), 1e-6)
}

func TestRakedTieSplitsRake(t *testing.T) {
	g := riverGame(t, "KsKh", "KcKd", 0.05, 10)
	showdown := g.root.children[0].children[0]

	result := make([]float32, 1)
	g.Evaluate(result, showdown, 0, []float32{1})
	assert.InDelta(t, -5, float64(result[0]), 1e-6)
	g.Evaluate(result, showdown, 1, []float32{1})
	assert.InDelta(t, -5, float64(result[0]), 1e-6)
}

func TestMemoryUsageAndAllocation(t *testing.T) {
	g := riverGame(t, "AA,KK,QQ", "JJ+,AKs", 0, 0)

	uncompressed, compressed := g.MemoryUsage()
	assert.Greater(t, uncompressed, uint64(0))
	assert.Equal(t, uncompressed/2, compressed)

	assert.False(t, g.Allocated())
	g.AllocateMemory(false)
	assert.True(t, g.Allocated())
	assert.False(t, g.IsCompressionEnabled())

	// buffers are zeroed and sized A x H
	root := g.root
	numHands := len(g.PrivateCards(0))
	require.Len(t, root.Regrets(), root.NumActions()*numHands)
	for _, v := range root.Regrets() {
		assert.Zero(t, v)
	}
}

func TestCompressedStorageRoundTrip(t *testing.T) {
	g := riverGame(t, "AA,KK", "QQ", 0, 0)
	g.AllocateMemory(true)
	assert.True(t, g.IsCompressionEnabled())

	node := g.root
	vals := node.Regrets()
	require.NotEmpty(t, vals)
	for i := range vals {
		vals[i] = float32(i) - 3.5
	}
	node.StoreRegrets(vals)

	decoded := node.Regrets()
	for i := range vals {
		// quantization error is bounded by scale / 32767
		assert.InDelta(t, float64(vals[i]), float64(decoded[i]), float64(vals[len(vals)-1])/32767.0+1e-6)
	}
}

func TestIsomorphicRiverFolding(t *testing.T) {
	// board Td 9d 6h Qh: clubs and spades are interchangeable for
	// rank-only ranges, so each rank's spade deal folds onto the club one
	sizes, err := tree.NewBetSizeCandidates("50%", "")
	require.NoError(t, err)
	actionTree, err := tree.New(tree.Config{
		InitialState:   tree.StateTurn,
		StartingPot:    200,
		EffectiveStack: 900,
		TurnBetSizes:   [2]tree.BetSizeCandidates{sizes, sizes},
		RiverBetSizes:  [2]tree.BetSizeCandidates{sizes, sizes},
	})
	require.NoError(t, err)

	g, err := New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("JJ,88"), handrange.MustParse("TT,99")},
		Flop:   mustFlop(t, "Td9d6h"),
		Turn:   deck.MustCard("Qh"),
		River:  deck.NotDealt,
	}, actionTree, nil)
	require.NoError(t, err)

	// check-check leads to the river chance node
	chance := g.root.children[0].children[0]
	require.True(t, chance.IsChance())

	// 48 dealable cards, 13 ranks fold spade onto club
	assert.Len(t, chance.isoChances, 13)
	assert.Len(t, chance.children, 48-13)

	for _, iso := range chance.isoChances {
		assert.NotEmpty(t, iso.SwapList[0])
	}
}

func TestNoIsomorphismWhenSuitOnBoard(t *testing.T) {
	sizes, err := tree.NewBetSizeCandidates("50%", "")
	require.NoError(t, err)
	actionTree, err := tree.New(tree.Config{
		InitialState:   tree.StateTurn,
		StartingPot:    200,
		EffectiveStack: 900,
		TurnBetSizes:   [2]tree.BetSizeCandidates{sizes, sizes},
		RiverBetSizes:  [2]tree.BetSizeCandidates{sizes, sizes},
	})
	require.NoError(t, err)

	// Qc on the turn breaks club/spade symmetry; no suit pair is
	// exchangeable on this board
	g, err := New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("JJ,88"), handrange.MustParse("TT,99")},
		Flop:   mustFlop(t, "Td9d6h"),
		Turn:   deck.MustCard("Qc"),
		River:  deck.NotDealt,
	}, actionTree, nil)
	require.NoError(t, err)

	chance := g.root.children[0].children[0]
	require.True(t, chance.IsChance())
	assert.Empty(t, chance.isoChances)
	assert.Len(t, chance.children, 48)
}

func TestSuitSpecificRangeBlocksIsomorphism(t *testing.T) {
	sizes, err := tree.NewBetSizeCandidates("50%", "")
	require.NoError(t, err)
	actionTree, err := tree.New(tree.Config{
		InitialState:   tree.StateTurn,
		StartingPot:    200,
		EffectiveStack: 900,
		TurnBetSizes:   [2]tree.BetSizeCandidates{sizes, sizes},
		RiverBetSizes:  [2]tree.BetSizeCandidates{sizes, sizes},
	})
	require.NoError(t, err)

	// AcKc without AsKs breaks the club/spade exchange
	g, err := New(CardConfig{
		Ranges: [2]*handrange.Range{handrange.MustParse("JJ,AcKc"), handrange.MustParse("TT,99")},
		Flop:   mustFlop(t, "Td9d6h"),
		Turn:   deck.MustCard("Qh"),
		River:  deck.NotDealt,
	}, actionTree, nil)
	require.NoError(t, err)

	chance := g.root.children[0].children[0]
	assert.Empty(t, chance.isoChances)
}
