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

// Package segment implements one rank's share of the evolving integer:
// a left-to-right sequence of fixed-log-size blocks, the recursive burn
// that advances them by a power-of-two number of iterations per call,
// and the carry protocol tying neighbouring ranks together.
package segment

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/archbirdplus/burn-hydra/metrics"
	"github.com/archbirdplus/burn-hydra/params"
	"github.com/archbirdplus/burn-hydra/transport"
)

// Segment is the per-rank state of a burn job. All bignum state is owned
// by the rank's single driver goroutine; nothing here is safe for
// concurrent use.
type Segment struct {
	problem *params.Problem
	config  *params.Config
	conn    transport.Conn
	metrics *metrics.Metrics
	log     log.Logger

	rank   int
	size   int
	isBase bool
	isTop  bool

	// blockSize holds log2 block sizes, index 0 being this rank's
	// leftmost (largest-offset) block. globalOffset is the bit offset of
	// each block's low end from bit 0 of the whole integer.
	blockSize    []uint64
	globalOffset []uint64

	stored []*big.Int
	tmp    []*big.Int

	// update is the leftward overflow pending exchange with the left
	// neighbour; zero outside the post-compute exchange window.
	update *big.Int

	// p3[k] = 3^(2^k), masks[k] = 2^(2^k)-1, both for k = 0..L where L is
	// the leftmost block's log size.
	p3    []*big.Int
	masks []*big.Int

	// Basecase acceleration, rank 0 only.
	table     []uint32
	tableBits uint64
	tableMask *big.Int
	p3base    *big.Int

	scratch []*big.Int
}

// New validates the configuration for this world size, lays out this
// rank's blocks and precomputed tables, and seeds the initial value into
// rank 0's rightmost block.
func New(problem *params.Problem, config *params.Config, conn transport.Conn, m *metrics.Metrics) (*Segment, error) {
	s := &Segment{
		problem: problem,
		config:  config,
		conn:    conn,
		metrics: m,
		rank:    conn.Rank(),
		size:    conn.Size(),
	}
	s.log = log.New("rank", s.rank)
	s.isBase = s.rank == 0
	s.isTop = s.rank == s.size-1

	if err := config.Assign(s.size); err != nil {
		return nil, err
	}
	if err := config.Validate(s.size, problem.Iterations); err != nil {
		return nil, err
	}

	m.TimerStart(metrics.Initializing)
	s.setupVars()
	if s.isBase {
		s.initTable(basecaseTableBits)
	}
	m.TimerStop(metrics.Initializing)
	return s, nil
}

// setupVars lays out this rank's blocks and allocates the bignum state.
// Blocks are kept in reversed order relative to the configured lists, so
// index 0 is the leftmost block.
func (s *Segment) setupVars() {
	sizes := s.config.Used
	offset := uint64(0)
	for i := 0; i < s.rank; i++ {
		for _, l := range sizes[i] {
			offset += uint64(1) << l
		}
	}
	list := sizes[s.rank]
	for _, l := range list {
		s.globalOffset = append([]uint64{offset}, s.globalOffset...)
		s.blockSize = append([]uint64{l}, s.blockSize...)
		offset += uint64(1) << l
	}

	maxSize := s.blockSize[0]
	one := big.NewInt(1)
	r := big.NewInt(3)
	for k := uint64(0); k <= maxSize; k++ {
		// p3[0] = 3^(2^0) = 3.
		s.p3 = append(s.p3, new(big.Int).Set(r))
		mask := new(big.Int).Lsh(one, uint(uint64(1)<<k))
		s.masks = append(s.masks, mask.Sub(mask, one))
		// Skip the last squaring.
		if k < maxSize {
			r.Mul(r, r)
		}
	}

	for range s.blockSize {
		s.tmp = append(s.tmp, new(big.Int))
		s.stored = append(s.stored, new(big.Int))
	}
	s.update = new(big.Int)

	if s.isBase {
		s.stored[len(s.stored)-1].SetUint64(s.problem.Initial)
	}
	fmt.Printf("rank %d init to %s\n", s.rank, s.stored[len(s.stored)-1])
}

// Rank returns this segment's rank.
func (s *Segment) Rank() int { return s.rank }

// getScratch hands out a reusable bignum; callers must fully set it
// before reading. Returning it through putScratch keeps the hot recursion
// free of per-call allocation.
func (s *Segment) getScratch() *big.Int {
	if n := len(s.scratch); n > 0 {
		z := s.scratch[n-1]
		s.scratch = s.scratch[:n-1]
		return z
	}
	return new(big.Int)
}

func (s *Segment) putScratch(z *big.Int) {
	s.scratch = append(s.scratch, z)
}

func (s *Segment) sendLeft(x *big.Int) {
	if err := transport.Send(s.metrics, s.conn, s.rank+1, transport.DirLeft, x); err != nil {
		panic(fmt.Sprintf("segment: send left from rank %d: %v", s.rank, err))
	}
}

func (s *Segment) receiveLeft(x *big.Int) {
	if err := transport.Recv(s.metrics, s.conn, s.rank+1, transport.DirLeft, x); err != nil {
		panic(fmt.Sprintf("segment: recv left on rank %d: %v", s.rank, err))
	}
}

func (s *Segment) sendRight(x *big.Int) {
	if err := transport.Send(s.metrics, s.conn, s.rank-1, transport.DirRight, x); err != nil {
		panic(fmt.Sprintf("segment: send right from rank %d: %v", s.rank, err))
	}
}

func (s *Segment) receiveRight(x *big.Int) {
	if err := transport.Recv(s.metrics, s.conn, s.rank-1, transport.DirRight, x); err != nil {
		panic(fmt.Sprintf("segment: recv right on rank %d: %v", s.rank, err))
	}
}

// Checkpoint is where block state would be persisted.
// TODO: serialize the blocks once the checkpoint format is settled.
func (s *Segment) Checkpoint(iterations int64) {
	s.log.Warn("Checkpoint requested but not implemented", "iterations", iterations)
}
