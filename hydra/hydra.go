// Copyright 2024 The burn-hydra Authors
// This file is part of the burn-hydra library.
//
// The burn-hydra library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The burn-hydra library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the burn-hydra library. If not, see <http://www.gnu.org/licenses/>.

// Package hydra drives a burn job: it runs each rank's big-step loop and
// hosts the fleet of ranks inside one process.
package hydra

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/archbirdplus/burn-hydra/metrics"
	"github.com/archbirdplus/burn-hydra/params"
	"github.com/archbirdplus/burn-hydra/segment"
	"github.com/archbirdplus/burn-hydra/transport"
)

// firstSpecial is the exponent of the first power-of-two iteration count
// whose signatures are printed.
// TODO: derive this from the largest block so shapes above 2^20 bits per
// block do not skip their early specials.
const firstSpecial = 20

// Run executes one rank's complete lifecycle: init, the big-step loop
// with its checkpoint and special-signature schedules, finalize, result
// prints and the metrics dump.
func Run(problem *params.Problem, config *params.Config, conn transport.Conn) error {
	rank := conn.Rank()
	fmt.Printf("Rank %d of %d processes. Pid %d.\n", rank, conn.Size(), os.Getpid())

	m := metrics.New(config.FullLogs)
	seg, err := segment.New(problem, config, conn, m)
	if err != nil {
		return err
	}

	nextSpecial := int64(firstSpecial)
	nextCheckpoint := config.CheckpointInterval
	iterations := int64(0)
	for iterations < problem.Iterations {
		if config.CheckpointInterval > 0 && iterations == nextCheckpoint {
			seg.Checkpoint(iterations)
			nextCheckpoint += config.CheckpointInterval
		}
		if iterations == int64(1)<<nextSpecial {
			seg.PrintSpecial2Exp(nextSpecial)
			nextSpecial++
		}
		limit := int64(1) << nextSpecial
		if config.CheckpointInterval > 0 && nextCheckpoint < limit {
			limit = nextCheckpoint
		}
		iterations += seg.Burn(limit - iterations)
	}
	seg.Finalize()

	seg.PrintSpecial2Exp(nextSpecial)
	seg.PrintSmallestMod(1 << 32)
	seg.PrintSmallestMod(256)

	m.Dump(rank)
	fmt.Println("Done.")
	return nil
}

// RunLocal hosts procs ranks as goroutines over an in-process network and
// runs them to completion.
func RunLocal(problem *params.Problem, config *params.Config, procs int) error {
	net := transport.NewNetwork(procs)
	var g errgroup.Group
	for rank := 0; rank < procs; rank++ {
		conn := net.Conn(rank)
		cfg := *config
		g.Go(func() error {
			return Run(problem, &cfg, conn)
		})
	}
	return g.Wait()
}
