package main

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// TreeCmd reports the board, live hand counts, combination count and
// buffer sizes without solving. It does not print the betting tree itself.
type TreeCmd struct {
	Config string `arg:"" help:"path to the HCL run file"`
}

func (cmd *TreeCmd) Run(logger *log.Logger) error {
	runCfg, err := LoadRunConfig(cmd.Config)
	if err != nil {
		return err
	}
	g, err := runCfg.BuildGame()
	if err != nil {
		return err
	}

	uncompressed, compressed := g.MemoryUsage()
	fmt.Println(titleStyle.Render("Tree report"))
	fmt.Printf("%s %s\n", headerStyle.Render("Board:"), valueStyle.Render(fmt.Sprint(g.Board())))
	fmt.Printf("%s %d / %d\n", headerStyle.Render("Hands (OOP/IP):"),
		len(g.PrivateCards(0)), len(g.PrivateCards(1)))
	fmt.Printf("%s %.2f\n", headerStyle.Render("Combinations:"), g.NumCombinations())
	fmt.Printf("%s %.1f MB (%.1f MB compressed)\n", headerStyle.Render("Buffer memory:"),
		float64(uncompressed)/(1024*1024), float64(compressed)/(1024*1024))
	return nil
}
