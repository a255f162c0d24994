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

// Package latency measures pairwise message latencies between ranks.
// Ranks are paired step by step with a Berger round-robin schedule so
// every pair exchanges payloads exactly once, timed over a range of
// payload sizes.
package latency

import (
	"math"
	"math/big"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archbirdplus/burn-hydra/metrics"
	"github.com/archbirdplus/burn-hydra/transport"
)

// Config selects the payload sizes to time (log2 bits) and how many
// swaps to average per size.
type Config struct {
	Sizes  []uint64
	Counts []uint64
}

// Stats holds per-size mean and standard deviation of one rank pair's
// swap times, in seconds.
type Stats struct {
	Means   []float64
	Stddevs []float64
}

// Matrix is one size group's full pairwise latency picture: Means and
// Stddevs are world*world matrices indexed source*world + target.
type Matrix struct {
	Means   []float64
	Stddevs []float64
}

// GetOpponent returns the rank paired against rank at the given step of
// a Berger round-robin tournament, or -1 once the schedule is exhausted.
//
// A wheel is built with an odd number of spokes; each step rotates the
// wheel and every spoke plays the spoke across from it. With an even
// player count the spoke left alone plays the center player; with an odd
// count it sits the step out (returned as the rank itself).
func GetOpponent(rank, size, step int) int {
	even := size%2 == 0
	base := size
	if even {
		base = size - 1
	}
	if step > size-1 || (even && step == size-1) {
		return -1
	}
	if rank == base {
		// Center player.
		return ((-step)%base + base) % base
	}
	selfLocation := (rank + step) % base
	otherLocation := ((base-rank-step)%base + base) % base
	if otherLocation == selfLocation {
		// Alone, or against the center.
		if even {
			return base
		}
		return rank
	}
	return ((-rank-2*step)%base + base) % base
}

// timeSwap times one payload exchange with other. The lower rank of each
// pair sends first; a rank playing itself just copies.
func timeSwap(m *metrics.Metrics, c transport.Conn, other int, in, out *big.Int) (time.Duration, error) {
	start := time.Now()
	rank := c.Rank()
	switch {
	case rank == other:
		in.Set(out)
	case rank < other:
		if err := transport.Send(m, c, other, transport.DirRight, out); err != nil {
			return 0, err
		}
		if err := transport.Recv(m, c, other, transport.DirRight, in); err != nil {
			return 0, err
		}
	default:
		if err := transport.Recv(m, c, other, transport.DirRight, in); err != nil {
			return 0, err
		}
		if err := transport.Send(m, c, other, transport.DirRight, out); err != nil {
			return 0, err
		}
	}
	return time.Since(start), nil
}

// measureAgainst times Counts[i] swaps of 2^Sizes[i]-bit payloads
// against other, for every configured size.
func measureAgainst(m *metrics.Metrics, c transport.Conn, cfg Config, other int, rnd *rand.Rand) (Stats, error) {
	stats := Stats{}
	one := big.NewInt(1)
	for i, size := range cfg.Sizes {
		max := new(big.Int).Lsh(one, uint(uint64(1)<<size))
		out := new(big.Int).Rand(rnd, max)
		in := new(big.Int)

		count := cfg.Counts[i]
		times := make([]float64, 0, count)
		mean := 0.0
		for j := uint64(0); j < count; j++ {
			d, err := timeSwap(m, c, other, in, out)
			if err != nil {
				return Stats{}, err
			}
			times = append(times, d.Seconds())
			mean += d.Seconds()
		}
		mean /= float64(len(times))
		stddev := 0.0
		for _, t := range times {
			stddev += (t - mean) * (t - mean)
		}
		if len(times) > 1 {
			stddev /= float64(len(times) - 1)
		}
		stddev = math.Sqrt(stddev)
		stats.Means = append(stats.Means, mean)
		stats.Stddevs = append(stats.Stddevs, stddev)
	}
	return stats, nil
}

// measureRank plays the full tournament for one rank and returns its
// stats against every target. A rank that never met itself in the
// schedule measures a self-swap at the end so the diagonal is populated.
func measureRank(c transport.Conn, cfg Config) ([]Stats, error) {
	m := metrics.New(false)
	rank, size := c.Rank(), c.Size()
	rnd := rand.New(rand.NewSource(int64(rank) + 1))
	list := make([]Stats, size)
	for step := 0; step < size; step++ {
		other := GetOpponent(rank, size, step)
		if other < 0 {
			break
		}
		stats, err := measureAgainst(m, c, cfg, other, rnd)
		if err != nil {
			return nil, err
		}
		list[other] = stats
	}
	if len(list[rank].Means) == 0 {
		stats, err := measureAgainst(m, c, cfg, rank, rnd)
		if err != nil {
			return nil, err
		}
		list[rank] = stats
	}
	return list, nil
}

// Measure runs the tournament across every rank of the network and
// assembles one latency matrix per configured size.
func Measure(net *transport.Network, cfg Config) ([]Matrix, error) {
	world := net.Size()
	perRank := make([][]Stats, world)
	var g errgroup.Group
	for rank := 0; rank < world; rank++ {
		conn := net.Conn(rank)
		g.Go(func() error {
			list, err := measureRank(conn, cfg)
			perRank[conn.Rank()] = list
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrices := make([]Matrix, len(cfg.Sizes))
	for i := range cfg.Sizes {
		mat := Matrix{
			Means:   make([]float64, world*world),
			Stddevs: make([]float64, world*world),
		}
		for source := 0; source < world; source++ {
			for target := 0; target < world; target++ {
				mat.Means[source*world+target] = perRank[source][target].mean(i)
				mat.Stddevs[source*world+target] = perRank[source][target].stddev(i)
			}
		}
		matrices[i] = mat
	}
	return matrices, nil
}

func (s Stats) mean(i int) float64 {
	if i >= len(s.Means) {
		return 0
	}
	return s.Means[i]
}

func (s Stats) stddev(i int) float64 {
	if i >= len(s.Stddevs) {
		return 0
	}
	return s.Stddevs[i]
}
