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

// burn-latency measures pairwise message latencies between ranks of an
// in-process network and prints a JSON latency matrix per payload size.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/archbirdplus/burn-hydra/latency"
	"github.com/archbirdplus/burn-hydra/transport"
)

var (
	procsFlag = cli.IntFlag{
		Name:  "procs",
		Usage: "Number of ranks to measure",
		Value: 4,
	}
	sizesFlag = cli.StringFlag{
		Name:  "sizes",
		Usage: "Comma-separated payload sizes, log2 bits",
		Value: "16,24,30",
	}
	countsFlag = cli.StringFlag{
		Name:  "counts",
		Usage: "Comma-separated swap counts, one per size",
		Value: "4096,64,1",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "burn-latency"
	app.Usage = "pairwise rank latency benchmark"
	app.Flags = []cli.Flag{procsFlag, sizesFlag, countsFlag}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	sizes, err := parseList(ctx.String("sizes"))
	if err != nil {
		return err
	}
	counts, err := parseList(ctx.String("counts"))
	if err != nil {
		return err
	}
	if len(sizes) != len(counts) {
		return fmt.Errorf("%d sizes but %d counts", len(sizes), len(counts))
	}
	cfg := latency.Config{Sizes: sizes, Counts: counts}

	procs := ctx.Int("procs")
	net := transport.NewNetwork(procs)
	stats, err := latency.Measure(net, cfg)
	if err != nil {
		return err
	}
	latency.WriteReport(os.Stdout, cfg, procs, stats)
	return nil
}

func parseList(list string) ([]uint64, error) {
	var values []uint64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid list entry %q", field)
		}
		values = append(values, v)
	}
	return values, nil
}
