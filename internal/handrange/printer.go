package handrange

import (
	"strings"

	"github.com/lox/postflop/internal/deck"
)

// String renders the range in its canonical textual form: pair runs first,
// then non-pairs from high to low, then any suit-specific leftovers.
// Parsing the result reproduces the range exactly.
func (r *Range) String() string {
	var result []string
	r.pairsStrings(&result)
	r.nonpairsStrings(&result)
	r.suitSpecifiedStrings(&result)
	return strings.Join(result, ",")
}

type runStart struct {
	rank deck.Rank
	prob float32
}

// pairsStrings emits maximal runs of uniformly-weighted pocket pairs,
// walking from AA down ("TT+", "88-55", "JJ:0.5").
func (r *Range) pairsStrings(result *[]string) {
	var start *runStart

	for i := int(deck.Ace); i >= -1; i-- {
		rank := deck.Rank(i)
		prevRank := deck.Rank(i + 1)

		if start != nil &&
			(i == -1 || !r.isSameProb(pairIndices(rank)) || start.prob != r.PairProb(rank)) {
			s := start.rank.String()
			e := prevRank.String()
			var tmp string
			switch {
			case start.rank == prevRank:
				tmp = s + s
			case start.rank == deck.Ace:
				tmp = e + e + "+"
			default:
				tmp = s + s + "-" + e + e
			}
			if start.prob != 1 {
				tmp += ":" + formatProb(start.prob)
			}
			*result = append(*result, tmp)
			start = nil
		}

		if i >= 0 && r.isSameProb(pairIndices(rank)) && r.PairProb(rank) > 0 && start == nil {
			start = &runStart{rank: rank, prob: r.PairProb(rank)}
		}
	}
}

func (r *Range) nonpairsStrings(result *[]string) {
	for i := int(deck.Ace); i >= 1; i-- {
		rank1 := deck.Rank(i)
		if r.canUnsuit(rank1) {
			r.highCardsStrings(result, rank1, suitedness{kind: suitAll})
		} else {
			r.highCardsStrings(result, rank1, suitedness{kind: suitSuited})
			r.highCardsStrings(result, rank1, suitedness{kind: suitOffsuit})
		}
	}
}

// canUnsuit reports whether every second rank below rank1 has matching
// suited and offsuit weights, so "AQ+" can stand in for "AQs+,AQo+".
func (r *Range) canUnsuit(rank1 deck.Rank) bool {
	for rank2 := deck.Rank(0); rank2 < rank1; rank2++ {
		sameSuited := r.isSameProb(suitedIndices(rank1, rank2))
		sameOffsuit := r.isSameProb(offsuitIndices(rank1, rank2))
		probSuited := r.SuitedProb(rank1, rank2)
		probOffsuit := r.OffsuitProb(rank1, rank2)
		if (sameSuited && sameOffsuit && probSuited != probOffsuit) ||
			(sameSuited != sameOffsuit && probSuited > 0 && probOffsuit > 0) {
			return false
		}
	}
	return true
}

func (r *Range) highCardsStrings(result *[]string, rank1 deck.Rank, s suitedness) {
	rank1Char := rank1.String()
	var start *runStart

	var getter func(deck.Rank, deck.Rank) []int
	var suitChar string
	switch s.kind {
	case suitSuited:
		getter, suitChar = suitedIndices, "s"
	case suitOffsuit:
		getter, suitChar = offsuitIndices, "o"
	default:
		getter, suitChar = nonpairIndices, ""
	}

	avg := func(rank2 deck.Rank) float32 { return r.averageProb(getter(rank1, rank2)) }

	for i := int(rank1) - 1; i >= -1; i-- {
		rank2 := deck.Rank(i)
		prevRank2 := deck.Rank(i + 1)

		if start != nil &&
			(i == -1 || !r.isSameProb(getter(rank1, rank2)) || start.prob != avg(rank2)) {
			sc := start.rank.String()
			e := prevRank2.String()
			var tmp string
			switch {
			case start.rank == prevRank2:
				tmp = rank1Char + sc + suitChar
			case start.rank == rank1-1:
				tmp = rank1Char + e + suitChar + "+"
			default:
				tmp = rank1Char + sc + suitChar + "-" + rank1Char + e + suitChar
			}
			if start.prob != 1 {
				tmp += ":" + formatProb(start.prob)
			}
			*result = append(*result, tmp)
			start = nil
		}

		if i >= 0 && r.isSameProb(getter(rank1, rank2)) && avg(rank2) > 0 && start == nil {
			start = &runStart{rank: rank2, prob: avg(rank2)}
		}
	}
}

// suitSpecifiedStrings emits individual combos for rank pairs whose suits
// carry unequal weights and therefore cannot be grouped.
func (r *Range) suitSpecifiedStrings(result *[]string) {
	emit := func(c1, c2 deck.Card) {
		prob := r.Prob(c1, c2)
		if prob <= 0 {
			return
		}
		tmp := c1.String() + c2.String()
		if prob != 1 {
			tmp += ":" + formatProb(prob)
		}
		*result = append(*result, tmp)
	}

	// pairs
	for i := int(deck.Ace); i >= 0; i-- {
		rank := deck.Rank(i)
		if !r.isSameProb(pairIndices(rank)) {
			for suit1 := deck.Suit(0); suit1 < 4; suit1++ {
				for suit2 := suit1 + 1; suit2 < 4; suit2++ {
					emit(deck.NewCard(rank, suit1), deck.NewCard(rank, suit2))
				}
			}
		}
	}

	// non-pairs
	for i := int(deck.Ace); i >= 0; i-- {
		rank1 := deck.Rank(i)
		for j := i - 1; j >= 0; j-- {
			rank2 := deck.Rank(j)

			if !r.isSameProb(suitedIndices(rank1, rank2)) {
				for suit := deck.Suit(0); suit < 4; suit++ {
					emit(deck.NewCard(rank1, suit), deck.NewCard(rank2, suit))
				}
			}

			if !r.isSameProb(offsuitIndices(rank1, rank2)) {
				for suit1 := deck.Suit(0); suit1 < 4; suit1++ {
					for suit2 := deck.Suit(0); suit2 < 4; suit2++ {
						if suit1 != suit2 {
							emit(deck.NewCard(rank1, suit1), deck.NewCard(rank2, suit2))
						}
					}
				}
			}
		}
	}
}
