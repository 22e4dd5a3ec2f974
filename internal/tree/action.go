// Package tree builds the abstract betting tree that the game materializer
// later binds to concrete cards. The tree is card-independent: chance nodes
// mark street transitions without enumerating deals.
package tree

import (
	"fmt"

	"github.com/lox/postflop/internal/deck"
)

// Player field encoding shared with the game materializer. The low byte is
// the acting player or the chance marker; high bits flag terminals. A fold
// terminal keeps the folded player in the low byte.
const (
	PlayerOOP    uint16 = 0
	PlayerIP     uint16 = 1
	PlayerChance uint16 = 0xff
	PlayerMask   uint16 = 0xff
	TerminalFlag uint16 = 0x100
	FoldFlag     uint16 = 0x300
)

// ActionKind discriminates the Action variant.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionFold
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
	ActionChance
)

// Action is one edge of the betting tree. Amount is the street-total wager
// for Bet/Raise/AllIn ("raise to"), and the dealt card id for Chance.
type Action struct {
	Kind   ActionKind
	Amount int32
}

// String returns a compact human-readable form ("Bet 120", "Chance 7s").
func (a Action) String() string {
	switch a.Kind {
	case ActionNone:
		return "None"
	case ActionFold:
		return "Fold"
	case ActionCheck:
		return "Check"
	case ActionCall:
		return "Call"
	case ActionBet:
		return fmt.Sprintf("Bet %d", a.Amount)
	case ActionRaise:
		return fmt.Sprintf("Raise %d", a.Amount)
	case ActionAllIn:
		return fmt.Sprintf("All-in %d", a.Amount)
	case ActionChance:
		return fmt.Sprintf("Chance %s", deck.Card(a.Amount))
	default:
		return "Unknown"
	}
}

// IsAggressive reports whether the action puts new chips at risk.
func (a Action) IsAggressive() bool {
	return a.Kind == ActionBet || a.Kind == ActionRaise || a.Kind == ActionAllIn
}
