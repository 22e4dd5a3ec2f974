package evaluator

import (
	"sort"

	"github.com/lox/postflop/internal/deck"
)

// StrengthItem pairs an opaque monotone strength with a private-hand index.
// Lower strength = weaker hand; equal strength = chopped pot.
type StrengthItem struct {
	Strength uint16
	Index    uint16
}

// Sentinel strengths bracketing each ranking so two-pointer sweeps never
// run off either end.
const (
	SentinelWeak   uint16 = 0
	SentinelStrong uint16 = 0xffff
)

// RankHands ranks every live hand of both players on a complete 5-card
// board. The result arrays contain one item per live hand (hands blocked
// by the board are omitted), sorted ascending by strength and bracketed by
// sentinel items. Strengths are dense-compressed across both players so
// equal raw ranks compare equal between them.
func RankHands(board [5]deck.Card, players [2][]deck.Hole) [2][]StrengthItem {
	var onBoard [deck.NumCards]bool
	for _, c := range board {
		onBoard[c] = true
	}

	var raw [2][]uint32
	var indices [2][]uint16
	for p := 0; p < 2; p++ {
		raw[p] = make([]uint32, 0, len(players[p]))
		indices[p] = make([]uint16, 0, len(players[p]))
		for i, hole := range players[p] {
			if onBoard[hole.Lo] || onBoard[hole.Hi] {
				continue
			}
			cards := [7]deck.Card{hole.Lo, hole.Hi, board[0], board[1], board[2], board[3], board[4]}
			raw[p] = append(raw[p], uint32(Evaluate7(cards)))
			indices[p] = append(indices[p], uint16(i))
		}
	}

	// dense-compress raw ranks to u16, shared across both players so that
	// cross-player ties stay ties
	all := make([]uint32, 0, len(raw[0])+len(raw[1]))
	all = append(all, raw[0]...)
	all = append(all, raw[1]...)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	dense := make(map[uint32]uint16, len(all))
	next := uint16(1) // strength 0 is the weak sentinel
	for _, v := range all {
		if _, ok := dense[v]; !ok {
			dense[v] = next
			next++
		}
	}

	var result [2][]StrengthItem
	for p := 0; p < 2; p++ {
		items := make([]StrengthItem, 0, len(raw[p])+2)
		items = append(items, StrengthItem{Strength: SentinelWeak})
		for k, v := range raw[p] {
			items = append(items, StrengthItem{Strength: dense[v], Index: indices[p][k]})
		}
		sort.Slice(items[1:], func(i, j int) bool {
			return items[1+i].Strength < items[1+j].Strength
		})
		items = append(items, StrengthItem{Strength: SentinelStrong})
		result[p] = items
	}
	return result
}
