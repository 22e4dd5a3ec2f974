package handrange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lox/postflop/internal/deck"
)

const (
	comboPat = `(?:(?:[AKQJT2-9]{2}[os]?)|(?:(?:[AKQJT2-9][cdhs]){2}))`
	probPat  = `(?:(?:[01](?:\.\d*)?)|(?:\.\d+))`
)

var (
	rangeRegex = regexp.MustCompile(
		`^(?P<range>` + comboPat + `(?:\+|(?:-` + comboPat + `))?)(?::(?P<prob>` + probPat + `))?$`)
	trimRegex = regexp.MustCompile(`\s*([-:,])\s*`)
)

// Parse builds a range from its textual description. Entries are
// comma-separated; earlier entries take precedence over later ones.
func Parse(s string) (*Range, error) {
	s = strings.TrimSpace(trimRegex.ReplaceAllString(s, "$1"))
	entries := strings.Split(s, ",")

	// a single trailing comma is allowed
	if len(entries) > 0 && entries[len(entries)-1] == "" {
		entries = entries[:len(entries)-1]
	}

	result := New()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		m := rangeRegex.FindStringSubmatch(entry)
		if m == nil {
			return nil, fmt.Errorf("failed to parse range: %q", entry)
		}

		rangeStr := m[rangeRegex.SubexpIndex("range")]
		prob := float32(1.0)
		if probStr := m[rangeRegex.SubexpIndex("prob")]; probStr != "" {
			v, err := strconv.ParseFloat(probStr, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid probability %q: %w", probStr, err)
			}
			prob = float32(v)
		}
		if err := checkProb(prob); err != nil {
			return nil, err
		}

		var err error
		switch {
		case strings.Contains(rangeStr, "-"):
			err = result.updateWithDashRange(rangeStr, prob)
		case strings.Contains(rangeStr, "+"):
			err = result.updateWithPlusRange(rangeStr, prob)
		default:
			err = result.updateWithSingleton(rangeStr, prob)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// MustParse parses a range and panics on error (for tests)
func MustParse(s string) *Range {
	r, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse range %q: %v", s, err))
	}
	return r
}

// parseSingleton interprets one combo token, either compound ("AK", "T9s",
// "88") or fully suit-specified ("AcKh").
func parseSingleton(combo string) (rank1, rank2 deck.Rank, s suitedness, err error) {
	if len(combo) == 4 {
		return parseSimpleSingleton(combo)
	}
	return parseCompoundSingleton(combo)
}

func parseSimpleSingleton(combo string) (deck.Rank, deck.Rank, suitedness, error) {
	var s suitedness
	rank1, err := deck.RankFromChar(combo[0])
	if err != nil {
		return 0, 0, s, err
	}
	suit1, err := deck.SuitFromChar(combo[1])
	if err != nil {
		return 0, 0, s, err
	}
	rank2, err := deck.RankFromChar(combo[2])
	if err != nil {
		return 0, 0, s, err
	}
	suit2, err := deck.SuitFromChar(combo[3])
	if err != nil {
		return 0, 0, s, err
	}
	if rank1 < rank2 {
		return 0, 0, s, fmt.Errorf("first rank must be equal or higher than second rank: %s", combo)
	}
	if rank1 == rank2 && suit1 == suit2 {
		return 0, 0, s, fmt.Errorf("duplicate cards are not allowed: %s", combo)
	}
	return rank1, rank2, suitedness{kind: suitSpecific, suit1: suit1, suit2: suit2}, nil
}

func parseCompoundSingleton(combo string) (deck.Rank, deck.Rank, suitedness, error) {
	s := suitedness{kind: suitAll}
	rank1, err := deck.RankFromChar(combo[0])
	if err != nil {
		return 0, 0, s, err
	}
	rank2, err := deck.RankFromChar(combo[1])
	if err != nil {
		return 0, 0, s, err
	}
	if len(combo) == 3 {
		switch combo[2] {
		case 's':
			s.kind = suitSuited
		case 'o':
			s.kind = suitOffsuit
		default:
			return 0, 0, s, fmt.Errorf("invalid suitedness: %s", combo)
		}
	}
	if rank1 < rank2 {
		return 0, 0, s, fmt.Errorf("first rank must be equal or higher than second rank: %s", combo)
	}
	if rank1 == rank2 && s.kind != suitAll {
		return 0, 0, s, fmt.Errorf("pair with suitedness is not allowed: %s", combo)
	}
	return rank1, rank2, s, nil
}

func (r *Range) updateWithSingleton(combo string, prob float32) error {
	rank1, rank2, s, err := parseSingleton(combo)
	if err != nil {
		return err
	}
	indices, err := indicesWithSuitedness(rank1, rank2, s)
	if err != nil {
		return fmt.Errorf("%s: %w", combo, err)
	}
	r.setProb(indices, prob)
	return nil
}

// updateWithPlusRange handles "88+", "T9s+", "ATo+" and the like: pairs and
// connectors walk the rank ladder keeping the gap, anything else fixes the
// first rank and raises the second.
func (r *Range) updateWithPlusRange(rangeStr string, prob float32) error {
	lowest := strings.TrimSuffix(rangeStr, "+")
	rank1, rank2, s, err := parseSingleton(lowest)
	if err != nil {
		return err
	}
	gap := rank1 - rank2
	if gap <= 1 {
		for i := rank1; i <= deck.Ace; i++ {
			indices, err := indicesWithSuitedness(i, i-gap, s)
			if err != nil {
				return fmt.Errorf("%s: %w", rangeStr, err)
			}
			r.setProb(indices, prob)
		}
		return nil
	}
	for i := rank2; i < rank1; i++ {
		indices, err := indicesWithSuitedness(rank1, i, s)
		if err != nil {
			return fmt.Errorf("%s: %w", rangeStr, err)
		}
		r.setProb(indices, prob)
	}
	return nil
}

func (r *Range) updateWithDashRange(rangeStr string, prob float32) error {
	parts := strings.Split(rangeStr, "-")
	if len(parts) != 2 {
		return fmt.Errorf("invalid range: %s", rangeStr)
	}
	rank11, rank12, s1, err := parseSingleton(parts[0])
	if err != nil {
		return err
	}
	rank21, rank22, s2, err := parseSingleton(parts[1])
	if err != nil {
		return err
	}
	if s1 != s2 {
		return fmt.Errorf("suitedness does not match: %s", rangeStr)
	}
	gap1 := rank11 - rank12
	gap2 := rank21 - rank22
	switch {
	case gap1 == gap2 && rank11 > rank21:
		// same gap (e.g., 88-55, KQo-JTo)
		for i := rank21; i <= rank11; i++ {
			indices, err := indicesWithSuitedness(i, i-gap1, s1)
			if err != nil {
				return fmt.Errorf("%s: %w", rangeStr, err)
			}
			r.setProb(indices, prob)
		}
		return nil
	case rank11 == rank21 && rank12 > rank22:
		// same first rank (e.g., A5s-A2s)
		for i := rank22; i <= rank12; i++ {
			indices, err := indicesWithSuitedness(rank11, i, s1)
			if err != nil {
				return fmt.Errorf("%s: %w", rangeStr, err)
			}
			r.setProb(indices, prob)
		}
		return nil
	default:
		return fmt.Errorf("invalid range: %s", rangeStr)
	}
}
