// Copyright 2024 The burn-hydra Authors
// This file is part of burn-hydra.
//
// burn-hydra is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// burn-hydra is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with burn-hydra. If not, see <http://www.gnu.org/licenses/>.

// burn-hydra evolves an integer under x -> x + x/2 for an astronomical
// number of iterations, split across a chain of ranks, and reports the
// result as modular signatures.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"

	"github.com/archbirdplus/burn-hydra/hydra"
	"github.com/archbirdplus/burn-hydra/params"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "Block shape, e.g. '8-18,18-20/20-20-20' (funnel/chain)",
	}
	pruneFlag = cli.BoolFlag{
		Name:  "prune, p",
		Usage: "Reserved: prune bits that leave the light cone",
	}
	iterationsFlag = cli.Int64Flag{
		Name:  "iterations, n",
		Usage: "Total number of iterations to perform",
	}
	checkpointFlag = cli.Int64Flag{
		Name:  "checkpoint-interval, i",
		Usage: "Iterations between checkpoints (0 disables)",
		Value: 0,
	}
	xFlag = cli.Uint64Flag{
		Name:  "x",
		Usage: "Initial value of the evolving integer",
		Value: 3,
	}
	procsFlag = cli.IntFlag{
		Name:  "procs",
		Usage: "Number of ranks to run (default: one per configured segment)",
	}
	fileFlag = cli.StringFlag{
		Name:  "file, f",
		Usage: "TOML job configuration file",
	}
	fullLogsFlag = cli.BoolFlag{
		Name:  "full-logs",
		Usage: "Record the extended set of timer interval classes",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "burn-hydra"
	app.Usage = "segmented long-trajectory iterator for x -> x + x/2"
	app.Flags = []cli.Flag{
		configFlag,
		pruneFlag,
		iterationsFlag,
		checkpointFlag,
		xFlag,
		procsFlag,
		fileFlag,
		fullLogsFlag,
		verbosityFlag,
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fatalf("%v", err)
	}
}

func run(ctx *cli.Context) error {
	setupLogger(ctx.Int("verbosity"))

	problem, config, procs, err := makeJobConfig(ctx)
	if err != nil {
		fatalf("%v", err)
	}

	if err := hydra.RunLocal(problem, config, procs); err != nil {
		fatalf("Constraints not met.\n%v", err)
	}
	return nil
}

// makeJobConfig assembles the job from the TOML file, if any, with flags
// overriding file values.
func makeJobConfig(ctx *cli.Context) (*params.Problem, *params.Config, int, error) {
	file := fileConfig{X: 3}
	if path := ctx.String("file"); path != "" {
		if err := loadConfig(path, &file); err != nil {
			return nil, nil, 0, err
		}
	}
	if ctx.IsSet("config") {
		file.Shape = ctx.String("config")
	}
	if ctx.IsSet("iterations") {
		file.Iterations = ctx.Int64("iterations")
	}
	if ctx.IsSet("checkpoint-interval") {
		file.CheckpointInterval = ctx.Int64("checkpoint-interval")
	}
	if ctx.IsSet("x") {
		file.X = ctx.Uint64("x")
	}
	if ctx.Bool("prune") {
		file.Prune = true
	}
	if ctx.IsSet("procs") {
		file.Procs = ctx.Int("procs")
	}
	if ctx.Bool("full-logs") {
		file.FullLogs = true
	}

	if file.Shape == "" {
		return nil, nil, 0, errors.New("a block shape is required (--config or --file)")
	}
	config := &params.Config{
		PruneBits:          file.Prune,
		CheckpointInterval: file.CheckpointInterval,
		FullLogs:           file.FullLogs,
	}
	if err := config.ParseShape(file.Shape); err != nil {
		return nil, nil, 0, err
	}
	procs := file.Procs
	if procs == 0 {
		procs = len(config.Funnel) + len(config.Chain)
	}
	problem := &params.Problem{Initial: file.X, Iterations: file.Iterations}
	return problem, config, procs, nil
}

func setupLogger(verbosity int) {
	usecolor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), handler))
}

// fatalf reports a fatal condition on stderr and exits with code 1.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
