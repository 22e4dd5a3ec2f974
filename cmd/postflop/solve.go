package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/postflop/internal/fileutil"
	"github.com/lox/postflop/internal/game"
	"github.com/lox/postflop/internal/solver"
)

// SolveCmd solves the spot in a run file and prints a hand-by-hand report.
type SolveCmd struct {
	Config string `arg:"" help:"path to the HCL run file"`
	Out    string `help:"write a JSON result file"`
	Top    int    `help:"number of hands to show in the report" default:"15"`
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// solveResult is the JSON document written with --out.
type solveResult struct {
	Iterations     int           `json:"iterations"`
	Exploitability float64       `json:"exploitability"`
	ExploitPercent float64       `json:"exploitabilityPercentOfPot"`
	Players        []playerStats `json:"players"`
}

type playerStats struct {
	Player int          `json:"player"`
	Hands  []handResult `json:"hands"`
	AvgEV  float64      `json:"averageEV"`
	AvgEq  float64      `json:"averageEquity"`
}

type handResult struct {
	Hand   string  `json:"hand"`
	Weight float64 `json:"weight"`
	EV     float64 `json:"ev"`
	Equity float64 `json:"equity"`
}

func (cmd *SolveCmd) Run(ctx context.Context, logger *log.Logger) error {
	g, cfg, err := buildAndSolve(ctx, cmd.Config, logger)
	if err != nil {
		return err
	}

	exploitability := solver.ComputeExploitability(g, cfg.ParallelDepth)
	pot := g.TreeConfig().StartingPot
	fmt.Println(titleStyle.Render("Solve report"))
	fmt.Printf("%s %s\n", headerStyle.Render("Exploitability:"),
		valueStyle.Render(fmt.Sprintf("%.4f (%.3f%% of pot)", exploitability, 100*float64(exploitability)/float64(pot))))

	result := solveResult{
		Iterations:     cfg.MaxIterations,
		Exploitability: float64(exploitability),
		ExploitPercent: 100 * float64(exploitability) / float64(pot),
	}

	g.BackToRoot()
	g.CacheNormalizedWeights()
	for p := 0; p < 2; p++ {
		stats, err := collectPlayerStats(g, p)
		if err != nil {
			return err
		}
		result.Players = append(result.Players, stats)
		printPlayerReport(p, stats, cmd.Top)
	}

	if cmd.Out != "" {
		if err := fileutil.WriteJSONAtomic(cmd.Out, result, 0o644); err != nil {
			return err
		}
		logger.Info("wrote result file", "path", cmd.Out)
	}
	return nil
}

func buildAndSolve(ctx context.Context, configPath string, logger *log.Logger) (*game.PostFlopGame, solver.Config, error) {
	runCfg, err := LoadRunConfig(configPath)
	if err != nil {
		return nil, solver.Config{}, err
	}
	g, err := runCfg.BuildGame()
	if err != nil {
		return nil, solver.Config{}, err
	}

	cfg, compressed, err := runCfg.SolverConfig(g.TreeConfig().StartingPot)
	if err != nil {
		return nil, solver.Config{}, err
	}
	cfg.Logger = logger

	uncompressed, compressedBytes := g.MemoryUsage()
	logger.Info("game built",
		"oopHands", len(g.PrivateCards(0)),
		"ipHands", len(g.PrivateCards(1)),
		"compressed", compressed,
		"memoryMB", fmt.Sprintf("%.1f", float64(uncompressed)/(1024*1024)),
		"memoryCompressedMB", fmt.Sprintf("%.1f", float64(compressedBytes)/(1024*1024)))

	g.AllocateMemory(compressed)

	exploitability, err := solver.Solve(ctx, g, cfg)
	if err != nil {
		return nil, solver.Config{}, err
	}
	logger.Info("solve finished", "exploitability", exploitability)
	return g, cfg, nil
}

func collectPlayerStats(g *game.PostFlopGame, player int) (playerStats, error) {
	ev, err := g.ExpectedValues(player)
	if err != nil {
		return playerStats{}, err
	}
	equity, err := g.Equity(player)
	if err != nil {
		return playerStats{}, err
	}
	weights, err := g.NormalizedWeights(player)
	if err != nil {
		return playerStats{}, err
	}

	stats := playerStats{Player: player}
	for i, hole := range g.PrivateCards(player) {
		stats.Hands = append(stats.Hands, handResult{
			Hand:   hole.String(),
			Weight: float64(weights[i]),
			EV:     float64(ev[i]),
			Equity: float64(equity[i]),
		})
		stats.AvgEV += float64(weights[i]) * float64(ev[i])
		stats.AvgEq += float64(weights[i]) * float64(equity[i])
	}
	return stats, nil
}

func printPlayerReport(player int, stats playerStats, top int) {
	name := "OOP"
	if player == 1 {
		name = "IP"
	}
	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s (avg EV %.2f, avg equity %.1f%%)", name, stats.AvgEV, 100*stats.AvgEq)))

	hands := append([]handResult(nil), stats.Hands...)
	sort.Slice(hands, func(i, j int) bool { return hands[i].Weight > hands[j].Weight })
	if top > 0 && len(hands) > top {
		hands = hands[:top]
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %8s %10s %8s", "hand", "weight", "ev", "equity")))
	b.WriteByte('\n')
	for _, h := range hands {
		b.WriteString(fmt.Sprintf("%-8s %8.3f %10.2f %7.1f%%\n", h.Hand, h.Weight, h.EV, 100*h.Equity))
	}
	if len(stats.Hands) > len(hands) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("... and %d more hands", len(stats.Hands)-len(hands))))
	}
	fmt.Println(b.String())
}
