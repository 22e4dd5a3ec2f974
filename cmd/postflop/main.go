package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

var cli struct {
	LogLevel string `help:"Set the log level" enum:"debug,info,warn,error" default:"info"`

	Solve  SolveCmd  `cmd:"" help:"solve a spot described by a run file"`
	Tree   TreeCmd   `cmd:"" help:"show hand counts and memory estimate for a run file"`
	Browse BrowseCmd `cmd:"" help:"solve a spot and walk the tree interactively"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("postflop"),
		kong.Description("heads-up postflop solver with ICM payoffs"),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if level, err := log.ParseLevel(cli.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch ctx.Command() {
	case "solve <config>":
		err = cli.Solve.Run(runCtx, logger)
	case "tree <config>":
		err = cli.Tree.Run(logger)
	case "browse <config>":
		err = cli.Browse.Run(runCtx, logger)
	default:
		logger.Fatalf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
