// Package icm loads tournament-equity utility tables and provides the
// piecewise-linear stack-to-utility lookup used by the terminal evaluator.
//
// Stacks are normalized internally to hundredths of a big blind (bb x 100),
// matching the units the solver's tree configs use for chip amounts.
package icm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// utilityFile mirrors the on-disk document.
type utilityFile struct {
	FormatType    string    `json:"formatType"`
	FormatVersion string    `json:"formatVersion"`
	Pot           float64   `json:"pot"`
	BigBlind      float64   `json:"bigblind"`
	Utilities     []utility `json:"utilities"`
	Players       []player  `json:"players"`
}

type utility struct {
	S []float64 `json:"s"`
	U []float64 `json:"u"`
}

type player struct {
	Index          int     `json:"index"`
	StartingStack  float64 `json:"startingStack"`
	RemainingStack float64 `json:"remainingStack"`
}

// Table is an immutable per-player piecewise-linear utility function.
type Table struct {
	pot      float64
	bigBlind float64
	samples  []utility
	players  []player
}

// Load reads and validates a utility table document.
func Load(r io.Reader) (*Table, error) {
	var file utilityFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode utility table: %w", err)
	}
	if file.BigBlind <= 0 {
		return nil, fmt.Errorf("utility table: bigblind must be positive, got %v", file.BigBlind)
	}
	if len(file.Utilities) == 0 {
		return nil, fmt.Errorf("utility table: no utility samples")
	}
	if len(file.Players) == 0 {
		return nil, fmt.Errorf("utility table: no players")
	}

	numPlayers := len(file.Players)
	for i, u := range file.Utilities {
		if len(u.S) != numPlayers || len(u.U) != numPlayers {
			return nil, fmt.Errorf("utility table: sample %d has %d/%d columns, want %d",
				i, len(u.S), len(u.U), numPlayers)
		}
	}

	// normalize stacks to bb x 100
	scale := 100.0 / file.BigBlind
	for i := range file.Utilities {
		for p := range file.Utilities[i].S {
			file.Utilities[i].S[p] *= scale
		}
	}
	for i := range file.Players {
		file.Players[i].StartingStack *= scale
	}

	// each player's stack column must be monotone non-decreasing
	for p := 0; p < numPlayers; p++ {
		for i := 1; i < len(file.Utilities); i++ {
			if file.Utilities[i].S[p] < file.Utilities[i-1].S[p] {
				return nil, fmt.Errorf("utility table: stacks for player %d are not monotone at sample %d", p, i)
			}
		}
	}

	return &Table{
		pot:      file.Pot,
		bigBlind: file.BigBlind,
		samples:  file.Utilities,
		players:  file.Players,
	}, nil
}

// LoadFile reads a utility table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open utility table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// NewTable builds a table directly from per-player samples, mainly for
// tests. Stacks are taken as already normalized.
func NewTable(stacks, utils [][2]float64, starting [2]float64) *Table {
	samples := make([]utility, len(stacks))
	for i := range stacks {
		samples[i] = utility{
			S: []float64{stacks[i][0], stacks[i][1]},
			U: []float64{utils[i][0], utils[i][1]},
		}
	}
	return &Table{
		bigBlind: 1,
		samples:  samples,
		players: []player{
			{Index: 0, StartingStack: starting[0]},
			{Index: 1, StartingStack: starting[1]},
		},
	}
}

// NumPlayers returns the number of player columns in the table.
func (t *Table) NumPlayers() int {
	return len(t.players)
}

// StartingStack returns the player's normalized postflop starting stack.
func (t *Table) StartingStack(playerID int) float64 {
	return t.players[playerID].StartingStack
}

// StartingValue returns the utility of the player's starting stack.
func (t *Table) StartingValue(playerID int) float64 {
	return t.Lookup(t.StartingStack(playerID), playerID)
}

// Lookup evaluates the piecewise-linear utility of a stack size. Values
// outside the sampled interval clamp to the endpoint utilities; in
// particular a busted stack clamps to the table's zero point.
func (t *Table) Lookup(stack float64, playerID int) float64 {
	n := len(t.samples)
	lo, hi := t.samples[0], t.samples[n-1]
	if stack <= lo.S[playerID] {
		return lo.U[playerID]
	}
	if stack >= hi.S[playerID] {
		return hi.U[playerID]
	}

	// first sample with s > stack; its predecessor brackets the interval
	i := sort.Search(n, func(i int) bool { return t.samples[i].S[playerID] > stack })
	prev, next := t.samples[i-1], t.samples[i]
	if next.S[playerID] == prev.S[playerID] {
		return prev.U[playerID]
	}
	slope := (next.U[playerID] - prev.U[playerID]) / (next.S[playerID] - prev.S[playerID])
	return prev.U[playerID] + slope*(stack-prev.S[playerID])
}

// Process-wide default table, configured once at startup. Library code
// should prefer an explicit *Table; the CLI uses this for convenience.
var (
	globalMu    sync.Mutex
	globalTable *Table
)

// Configure installs the process-wide table. It may be called once;
// subsequent calls return an error.
func Configure(t *Table) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalTable != nil {
		return fmt.Errorf("utility table already configured")
	}
	globalTable = t
	return nil
}

// Global returns the process-wide table, or nil when none is configured
// (the solver then falls back to chip EV).
func Global() *Table {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalTable
}
