package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/postflop/internal/deck"
)

func hand(s string) [7]deck.Card {
	cards, err := deck.CardsFromString(s)
	if err != nil {
		panic(err)
	}
	if len(cards) != 7 {
		panic("hand requires 7 cards")
	}
	var out [7]deck.Card
	copy(out[:], cards)
	return out
}

func TestEvaluate7Classes(t *testing.T) {
	tests := []struct {
		cards string
		class int
	}{
		{"AsKsQsJsTs2h3d", StraightFlushClass},
		{"5h4h3h2hAh9c9d", StraightFlushClass}, // steel wheel
		{"AcAdAhAsKc2d3h", FourOfAKindClass},
		{"KcKdKh9s9c2d3h", FullHouseClass},
		{"AsQs9s5s2sKdJh", FlushClass},
		{"9c8d7h6s5c2d2h", StraightClass},
		{"5d4c3h2sAc9d8h", StraightClass}, // wheel
		{"QcQdQh8s6c4d2h", ThreeOfAKindClass},
		{"JcJd8h8sAc4d2h", TwoPairClass},
		{"TcTd8h6s4cKdQh", OnePairClass},
		{"AcKdQh9s7c5d3h", HighCardClass},
	}
	for _, tt := range tests {
		got := Evaluate7(hand(tt.cards))
		assert.Equal(t, tt.class, got.Class(), "%s => %s", tt.cards, got)
	}
}

func TestEvaluate7Ordering(t *testing.T) {
	// each hand strictly beats the next
	ordered := []string{
		"AsKsQsJsTs2h3d", // royal
		"9s8s7s6s5s2h3d", // straight flush
		"AcAdAhAsKc2d3h", // quads
		"KcKdKh9s9c2d3h", // full house
		"AsQs9s5s2sKdJh", // flush
		"9c8d7h6s5c2d2h", // straight
		"QcQdQh8s6c4d2h", // trips
		"JcJd8h8sAc4d2h", // two pair
		"TcTd8h6s4cKdQh", // pair
		"AcKdQh9s7c5d3h", // high card
	}
	for i := 0; i+1 < len(ordered); i++ {
		a := Evaluate7(hand(ordered[i]))
		b := Evaluate7(hand(ordered[i+1]))
		assert.Greater(t, a, b, "%s should beat %s", ordered[i], ordered[i+1])
	}
}

func TestEvaluate7Kickers(t *testing.T) {
	// ace kicker beats king kicker with the same pair
	a := Evaluate7(hand("TcTd8h6s4cAdQh"))
	b := Evaluate7(hand("TcTd8h6s4cKdQh"))
	assert.Greater(t, a, b)

	// board plays: identical best five means a tie
	a = Evaluate7(hand("AcKdQh9s7c2d3h"))
	b = Evaluate7(hand("AcKdQh9s7c2h3d"))
	assert.Equal(t, a, b)

	// higher two pair wins
	a = Evaluate7(hand("AcAd8h8s2c4d6h"))
	b = Evaluate7(hand("KcKdQhQs2c4d6h"))
	assert.Greater(t, a, b)

	// full house: bigger trips dominate
	a = Evaluate7(hand("QcQdQh2s2c4d6h"))
	b = Evaluate7(hand("JcJdJhAsAc4d6h"))
	assert.Greater(t, a, b)
}

func TestRankHands(t *testing.T) {
	board := [5]deck.Card{
		deck.MustCard("Td"), deck.MustCard("9d"), deck.MustCard("6h"),
		deck.MustCard("Qc"), deck.MustCard("2s"),
	}

	oop := []deck.Hole{
		deck.NewHole(deck.MustCard("As"), deck.MustCard("Ah")), // overpair
		deck.NewHole(deck.MustCard("Kd"), deck.MustCard("Jd")), // straight
		deck.NewHole(deck.MustCard("Tc"), deck.MustCard("2c")), // two pair
		deck.NewHole(deck.MustCard("Ts"), deck.MustCard("9s")), // two pair
	}
	ip := []deck.Hole{
		deck.NewHole(deck.MustCard("Kh"), deck.MustCard("Jh")), // straight (tie with oop)
		deck.NewHole(deck.MustCard("2d"), deck.MustCard("2h")), // trips
		deck.NewHole(deck.MustCard("Qd"), deck.MustCard("2c")), // queens up
	}

	ranked := RankHands(board, [2][]deck.Hole{oop, ip})

	for p := 0; p < 2; p++ {
		items := ranked[p]
		require.GreaterOrEqual(t, len(items), 2)
		assert.Equal(t, SentinelWeak, items[0].Strength)
		assert.Equal(t, SentinelStrong, items[len(items)-1].Strength)
		for i := 1; i+1 < len(items); i++ {
			assert.LessOrEqual(t, items[i].Strength, items[i+1].Strength)
		}
	}

	// identical straights tie across players
	var oopStraight, ipStraight uint16
	for _, it := range ranked[0][1 : len(ranked[0])-1] {
		if it.Index == 1 {
			oopStraight = it.Strength
		}
	}
	for _, it := range ranked[1][1 : len(ranked[1])-1] {
		if it.Index == 0 {
			ipStraight = it.Strength
		}
	}
	assert.Equal(t, oopStraight, ipStraight)
}

func TestRankHandsExcludesBlocked(t *testing.T) {
	board := [5]deck.Card{
		deck.MustCard("Td"), deck.MustCard("9d"), deck.MustCard("6h"),
		deck.MustCard("Qc"), deck.MustCard("2s"),
	}
	holes := []deck.Hole{
		deck.NewHole(deck.MustCard("Td"), deck.MustCard("Th")), // blocked by board
		deck.NewHole(deck.MustCard("Ac"), deck.MustCard("Kc")),
	}
	ranked := RankHands(board, [2][]deck.Hole{holes, holes})
	// sentinels plus the single live hand
	assert.Len(t, ranked[0], 3)
	assert.Equal(t, uint16(1), ranked[0][1].Index)
}
