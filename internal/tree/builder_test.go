package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSizes(t *testing.T, bet, raise string) BetSizeCandidates {
	t.Helper()
	c, err := NewBetSizeCandidates(bet, raise)
	require.NoError(t, err)
	return c
}

func riverConfig(t *testing.T, bet, raise string) Config {
	t.Helper()
	sizes := mustSizes(t, bet, raise)
	return Config{
		InitialState:   StateRiver,
		StartingPot:    100,
		EffectiveStack: 900,
		RiverBetSizes:  [2]BetSizeCandidates{sizes, sizes},
	}
}

func TestParseBetSizes(t *testing.T) {
	sizes, err := ParseBetSizes("25%,50%,100c,e,a", false)
	require.NoError(t, err)
	require.Len(t, sizes, 5)
	assert.Equal(t, BetSize{Kind: BetSizePotRelative, Value: 0.25}, sizes[0])
	assert.Equal(t, BetSize{Kind: BetSizePotRelative, Value: 0.5}, sizes[1])
	assert.Equal(t, BetSize{Kind: BetSizeAbsolute, Value: 100}, sizes[2])
	assert.Equal(t, BetSize{Kind: BetSizeGeometric}, sizes[3])
	assert.Equal(t, BetSize{Kind: BetSizeAllIn}, sizes[4])

	// raise-only token rejected in a bet list
	_, err = ParseBetSizes("2.5x", false)
	assert.Error(t, err)
	_, err = ParseBetSizes("2.5x", true)
	assert.NoError(t, err)

	// multiples must exceed 1
	_, err = ParseBetSizes("0.5x", true)
	assert.Error(t, err)

	for _, bad := range []string{"abc", "-50%", "50"} {
		_, err = ParseBetSizes(bad, true)
		assert.Error(t, err, bad)
	}
}

func TestRiverTreeShape(t *testing.T) {
	tree, err := New(riverConfig(t, "50%", "2.5x"))
	require.NoError(t, err)

	root := tree.Root
	require.Equal(t, PlayerOOP, root.Player)
	require.Len(t, root.Actions, 2)
	assert.Equal(t, Action{Kind: ActionCheck}, root.Actions[0])
	assert.Equal(t, Action{Kind: ActionBet, Amount: 50}, root.Actions[1])

	// facing the bet: fold, call, raise to 2.5x = 125
	facing := root.Children[1]
	require.Equal(t, PlayerIP, facing.Player)
	require.Len(t, facing.Actions, 3)
	assert.Equal(t, Action{Kind: ActionFold}, facing.Actions[0])
	assert.Equal(t, Action{Kind: ActionCall}, facing.Actions[1])
	assert.Equal(t, Action{Kind: ActionRaise, Amount: 125}, facing.Actions[2])

	// fold terminal keeps the unmatched pot and marks the folder
	fold := facing.Children[0]
	assert.True(t, fold.IsFold())
	assert.Equal(t, int(PlayerIP), fold.FoldedPlayer())
	assert.Equal(t, int32(0), fold.Amount)

	// call closes the hand at showdown with the bet matched
	call := facing.Children[1]
	assert.True(t, call.IsTerminal())
	assert.False(t, call.IsFold())
	assert.Equal(t, int32(50), call.Amount)

	// check-check runs to showdown with no chips in
	checkBack := root.Children[0].Children[0]
	assert.True(t, checkBack.IsTerminal())
	assert.Equal(t, int32(0), checkBack.Amount)
}

func TestTurnTreeDealsRiver(t *testing.T) {
	sizes := mustSizes(t, "50%", "")
	cfg := Config{
		InitialState:   StateTurn,
		StartingPot:    200,
		EffectiveStack: 900,
		TurnBetSizes:   [2]BetSizeCandidates{sizes, sizes},
		RiverBetSizes:  [2]BetSizeCandidates{sizes, sizes},
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// bet 100, call -> chance node dealing the river
	facing := tree.Root.Children[1]
	chance := facing.Children[1]
	require.True(t, chance.IsChance())
	assert.Equal(t, StateRiver, chance.Street)
	assert.Equal(t, int32(100), chance.Amount)

	// the chance node leads to the river decision point
	river := chance.Children[0]
	assert.Equal(t, PlayerOOP, river.Player)
	assert.Equal(t, StateRiver, river.Street)
}

func TestAllInAfterCallRunsOutBoard(t *testing.T) {
	sizes := mustSizes(t, "a", "")
	cfg := Config{
		InitialState:   StateFlop,
		StartingPot:    100,
		EffectiveStack: 200,
		FlopBetSizes:   [2]BetSizeCandidates{sizes, sizes},
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// all-in, call -> turn chance -> river chance -> showdown
	facing := tree.Root.Children[1]
	require.Equal(t, Action{Kind: ActionAllIn, Amount: 200}, tree.Root.Actions[1])

	turnChance := facing.Children[1]
	require.True(t, turnChance.IsChance())
	assert.Equal(t, StateTurn, turnChance.Street)
	assert.Equal(t, int32(200), turnChance.Amount)

	riverChance := turnChance.Children[0]
	require.True(t, riverChance.IsChance())
	assert.Equal(t, StateRiver, riverChance.Street)

	showdown := riverChance.Children[0]
	assert.True(t, showdown.IsTerminal())
	assert.False(t, showdown.IsFold())
}

func TestAddAllInThreshold(t *testing.T) {
	sizes := mustSizes(t, "50%", "")
	cfg := Config{
		InitialState:      StateRiver,
		StartingPot:       100,
		EffectiveStack:    150,
		RiverBetSizes:     [2]BetSizeCandidates{sizes, sizes},
		AddAllInThreshold: 1.5,
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// largest bet 50 <= 1.5x pot, so the all-in 150 is appended
	require.Len(t, tree.Root.Actions, 3)
	assert.Equal(t, Action{Kind: ActionBet, Amount: 50}, tree.Root.Actions[1])
	assert.Equal(t, Action{Kind: ActionAllIn, Amount: 150}, tree.Root.Actions[2])
}

func TestForceAllInThreshold(t *testing.T) {
	sizes := mustSizes(t, "100%", "")
	cfg := Config{
		InitialState:        StateRiver,
		StartingPot:         100,
		EffectiveStack:      120,
		RiverBetSizes:       [2]BetSizeCandidates{sizes, sizes},
		ForceAllInThreshold: 0.15,
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// a pot bet of 100 leaves 20 behind into a 300 pot (SPR 0.067),
	// so it is promoted to the 120 all-in
	require.Len(t, tree.Root.Actions, 2)
	assert.Equal(t, Action{Kind: ActionAllIn, Amount: 120}, tree.Root.Actions[1])
}

func TestMergingCollapsesToLarger(t *testing.T) {
	sizes := mustSizes(t, "48%,50%,100%", "")
	cfg := Config{
		InitialState:     StateRiver,
		StartingPot:      100,
		EffectiveStack:   900,
		RiverBetSizes:    [2]BetSizeCandidates{sizes, sizes},
		MergingThreshold: 0.1,
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// 48 and 50 are within 10% of each other; the larger survives
	require.Len(t, tree.Root.Actions, 3)
	assert.Equal(t, Action{Kind: ActionBet, Amount: 50}, tree.Root.Actions[1])
	assert.Equal(t, Action{Kind: ActionBet, Amount: 100}, tree.Root.Actions[2])
}

func TestDonkSizesUsedAfterAggression(t *testing.T) {
	flopSizes := mustSizes(t, "50%", "")
	turnSizes := mustSizes(t, "75%", "")
	donk, err := ParseBetSizes("25%", false)
	require.NoError(t, err)

	cfg := Config{
		InitialState:   StateFlop,
		StartingPot:    100,
		EffectiveStack: 900,
		FlopBetSizes:   [2]BetSizeCandidates{flopSizes, flopSizes},
		TurnBetSizes:   [2]BetSizeCandidates{turnSizes, turnSizes},
		RiverBetSizes:  [2]BetSizeCandidates{turnSizes, turnSizes},
		TurnDonkSizes:  donk,
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// OOP check, IP bet 50, OOP call -> turn, pot 200
	check := tree.Root.Children[0]
	bet := check.Children[1]
	chance := bet.Children[1]
	require.True(t, chance.IsChance())

	turn := chance.Children[0]
	require.Equal(t, PlayerOOP, turn.Player)
	// donk lead uses the 25% donk size, not the 75% turn size
	require.Len(t, turn.Actions, 2)
	assert.Equal(t, Action{Kind: ActionBet, Amount: 50}, turn.Actions[1])

	// with no flop aggression the normal turn size applies
	turnAfterChecks := tree.Root.Children[0].Children[0].Children[0]
	require.Equal(t, PlayerOOP, turnAfterChecks.Player)
	assert.Equal(t, Action{Kind: ActionBet, Amount: 75}, turnAfterChecks.Actions[1])
}

func TestGeometricSizing(t *testing.T) {
	sizes := mustSizes(t, "e", "")
	cfg := Config{
		InitialState:   StateRiver,
		StartingPot:    100,
		EffectiveStack: 450,
		RiverBetSizes:  [2]BetSizeCandidates{sizes, sizes},
	}
	tree, err := New(cfg)
	require.NoError(t, err)

	// single street: the geometric bet is exactly all-in
	require.Len(t, tree.Root.Actions, 2)
	assert.Equal(t, Action{Kind: ActionAllIn, Amount: 450}, tree.Root.Actions[1])
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{InitialState: StateRiver, StartingPot: 0, EffectiveStack: 100},
		{InitialState: StateRiver, StartingPot: 100, EffectiveStack: 0},
		{InitialState: StateRiver, StartingPot: 100, EffectiveStack: 100, RakeRate: 1.5},
		{InitialState: StateRiver, StartingPot: 100, EffectiveStack: 100, RakeCap: -1},
		{InitialState: StateRiver, StartingPot: 100, EffectiveStack: 100, MergingThreshold: 1},
	}
	for i, cfg := range bad {
		_, err := New(cfg)
		assert.Error(t, err, "config %d", i)
	}
}
