// Package handrange implements weighted preflop ranges over the 1326
// two-card combinations, together with the textual range DSL used to
// describe them ("88+", "AQs-A9s", "KsJh:0.5", ...).
package handrange

import (
	"fmt"
	"strconv"

	"github.com/lox/postflop/internal/deck"
)

// Range maps each of the 1326 hole-card combinations to a weight in [0, 1].
type Range struct {
	data [deck.NumPairs]float32
}

// suitedness narrows a rank pair to a set of concrete combos.
type suitedness struct {
	kind  suitKind
	suit1 deck.Suit
	suit2 deck.Suit
}

type suitKind uint8

const (
	suitAll suitKind = iota
	suitSuited
	suitOffsuit
	suitSpecific
)

// New creates an empty range.
func New() *Range {
	return &Range{}
}

// Ones creates a full range with every combo at weight 1.
func Ones() *Range {
	r := &Range{}
	for i := range r.data {
		r.data[i] = 1
	}
	return r
}

// FromRaw creates a range from a raw 1326-element weight table.
func FromRaw(data []float32) (*Range, error) {
	if len(data) != deck.NumPairs {
		return nil, fmt.Errorf("raw range requires %d weights, got %d", deck.NumPairs, len(data))
	}
	r := &Range{}
	for i, w := range data {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("invalid weight %v at index %d", w, i)
		}
		r.data[i] = w
	}
	return r, nil
}

// RawData exposes the underlying weight table indexed by deck.PairIndex.
func (r *Range) RawData() []float32 {
	return r.data[:]
}

// Prob returns the weight of the combo holding the two given cards.
func (r *Range) Prob(card1, card2 deck.Card) float32 {
	return r.data[deck.PairIndex(card1, card2)]
}

// SetProb sets the weight of a specific two-card combo.
func (r *Range) SetProb(card1, card2 deck.Card, prob float32) error {
	if card1 >= deck.NumCards || card2 >= deck.NumCards {
		return fmt.Errorf("invalid card: %d, %d", card1, card2)
	}
	if card1 == card2 {
		return fmt.Errorf("duplicate card: %s", card1)
	}
	if err := checkProb(prob); err != nil {
		return err
	}
	r.data[deck.PairIndex(card1, card2)] = prob
	return nil
}

// PairProb returns the average weight of the six combos of a pocket pair.
func (r *Range) PairProb(rank deck.Rank) float32 {
	return r.averageProb(pairIndices(rank))
}

// SuitedProb returns the average weight of the four suited combos.
func (r *Range) SuitedProb(rank1, rank2 deck.Rank) float32 {
	return r.averageProb(suitedIndices(rank1, rank2))
}

// OffsuitProb returns the average weight of the twelve offsuit combos.
func (r *Range) OffsuitProb(rank1, rank2 deck.Rank) float32 {
	return r.averageProb(offsuitIndices(rank1, rank2))
}

// IsEmpty reports whether every combo has zero weight.
func (r *Range) IsEmpty() bool {
	for _, w := range r.data {
		if w != 0 {
			return false
		}
	}
	return true
}

// IsSuitIsomorphic reports whether exchanging the two suits leaves the
// range unchanged. The materializer uses this to fold chance branches.
func (r *Range) IsSuitIsomorphic(suit1, suit2 deck.Suit) bool {
	for c1 := deck.Card(0); c1 < deck.NumCards; c1++ {
		for c2 := c1 + 1; c2 < deck.NumCards; c2++ {
			swapped1 := c1.SwapSuit(suit1, suit2)
			swapped2 := c2.SwapSuit(suit1, suit2)
			if absDiff(r.Prob(c1, c2), r.Prob(swapped1, swapped2)) >= 1e-4 {
				return false
			}
		}
	}
	return true
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}

func pairIndices(rank deck.Rank) []int {
	result := make([]int, 0, 6)
	for i := deck.Suit(0); i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			result = append(result, deck.PairIndex(deck.NewCard(rank, i), deck.NewCard(rank, j)))
		}
	}
	return result
}

func suitedIndices(rank1, rank2 deck.Rank) []int {
	result := make([]int, 0, 4)
	for i := deck.Suit(0); i < 4; i++ {
		result = append(result, deck.PairIndex(deck.NewCard(rank1, i), deck.NewCard(rank2, i)))
	}
	return result
}

func offsuitIndices(rank1, rank2 deck.Rank) []int {
	result := make([]int, 0, 12)
	for i := deck.Suit(0); i < 4; i++ {
		for j := deck.Suit(0); j < 4; j++ {
			if i != j {
				result = append(result, deck.PairIndex(deck.NewCard(rank1, i), deck.NewCard(rank2, j)))
			}
		}
	}
	return result
}

func nonpairIndices(rank1, rank2 deck.Rank) []int {
	result := make([]int, 0, 16)
	for i := deck.Suit(0); i < 4; i++ {
		for j := deck.Suit(0); j < 4; j++ {
			result = append(result, deck.PairIndex(deck.NewCard(rank1, i), deck.NewCard(rank2, j)))
		}
	}
	return result
}

func indicesWithSuitedness(rank1, rank2 deck.Rank, s suitedness) ([]int, error) {
	if rank1 == rank2 {
		switch s.kind {
		case suitAll:
			return pairIndices(rank1), nil
		case suitSpecific:
			return []int{deck.PairIndex(deck.NewCard(rank1, s.suit1), deck.NewCard(rank1, s.suit2))}, nil
		default:
			return nil, fmt.Errorf("pair with suitedness is not allowed")
		}
	}
	switch s.kind {
	case suitSuited:
		return suitedIndices(rank1, rank2), nil
	case suitOffsuit:
		return offsuitIndices(rank1, rank2), nil
	case suitAll:
		return nonpairIndices(rank1, rank2), nil
	default:
		return []int{deck.PairIndex(deck.NewCard(rank1, s.suit1), deck.NewCard(rank2, s.suit2))}, nil
	}
}

func (r *Range) isSameProb(indices []int) bool {
	prob := r.data[indices[0]]
	for _, i := range indices {
		if absDiff(r.data[i], prob) >= 1e-4 {
			return false
		}
	}
	return true
}

func (r *Range) averageProb(indices []int) float32 {
	var sum float64
	for _, i := range indices {
		sum += float64(r.data[i])
	}
	return float32(sum / float64(len(indices)))
}

func (r *Range) setProb(indices []int, prob float32) {
	for _, i := range indices {
		r.data[i] = prob
	}
}

func checkProb(prob float32) error {
	if prob < 0 || prob > 1 {
		return fmt.Errorf("invalid probability: %v", prob)
	}
	return nil
}

func formatProb(prob float32) string {
	return strconv.FormatFloat(float64(prob), 'g', -1, 32)
}
