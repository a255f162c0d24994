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

package segment

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/archbirdplus/burn-hydra/metrics"
)

// Burn performs one big step of at most maxIterations iterations and
// returns the count actually performed, always a power of two. The step
// exponent is clamped to the leftmost block's log size: stepping further
// than the largest block would overflow either validity or the memory
// layout.
//
// The carry received from the left neighbour is folded into the leftmost
// block here, after the exchange, rather than inside the recursion the
// way every other carry is folded. The next big step therefore starts
// from a quiescent state; the one-step delay this imposes on the left
// edge is part of the protocol.
func (s *Segment) Burn(maxIterations int64) int64 {
	e := uint64(bits.Len64(uint64(maxIterations)) - 1)
	if l := s.blockSize[0]; e >= l {
		e = l
	}

	output := s.getScratch()
	output.SetInt64(0)
	// This timer is paused around the leaf cases.
	s.metrics.TimerStart(metrics.GrindingChain)
	s.recursiveBurn(output, s.update, e, 0)
	s.metrics.TimerStop(metrics.GrindingChain)

	if !s.isTop {
		// The lower rank of each edge sends first.
		s.sendLeft(output)
		s.receiveLeft(s.update)
	} else {
		// No left neighbour: the overflow leaves nobody's light cone, so
		// re-inflate it back onto this rank instead of dropping it.
		s.update.Lsh(output, uint(uint64(1)<<s.blockSize[0]))
	}
	s.stored[0].Add(s.stored[0], s.update)
	s.update.SetInt64(0)
	s.putScratch(output)

	return int64(1) << e
}

// Finalize folds any pending update back into the leftmost block, first
// re-inflating it by the block width on a non-top rank. Burn completes its
// left exchange and clears update before returning, so after a Burn there
// is nothing pending and Finalize leaves the blocks unchanged.
func (s *Segment) Finalize() {
	l := s.blockSize[0]
	if !s.isTop {
		s.update.Lsh(s.update, uint(uint64(1)<<l))
	}
	s.stored[0].Add(s.stored[0], s.update)
	s.update.SetInt64(0)
}

// recursiveBurn advances block i of this rank by 2^e iterations, moving
// depth-first toward the basecase. Block indices run left to right, so
// the recursion descends toward smaller offsets; the step exponent halves
// inside funnelUntil whenever the blocks to the right are too small to
// absorb a full step.
//
// Calling convention: add carries the undercarry flushed toward this
// block, rop returns the overcarry for the block to the left. The
// undercarry is added only after this block's own multiplication; the
// serial schedule per block is
//  1) accept the undercarry parameter
//  2) perform the block's own computation
//  3) add the undercarry
//  4) compute and return the overcarry
// which is the sequential rendering of "multiply every block, then add
// the overflows to the left and right".
func (s *Segment) recursiveBurn(rop, add *big.Int, e uint64, i int) {
	l := s.blockSize[i]
	stored := s.stored[i]
	tmp := s.tmp[i]

	if i == len(s.blockSize)-1 {
		if s.isBase {
			// The basecase handles undercarry, overcarry and reduction
			// itself; the common tail below must not run again.
			s.metrics.TimerStop(metrics.GrindingChain)
			s.metrics.TimerStart(metrics.GrindingBasecase)
			s.basecaseBurn(rop, add, e, i)
			s.metrics.TimerStop(metrics.GrindingBasecase)
			s.metrics.TimerStart(metrics.GrindingChain)
			return
		}
		// Rightmost block of a non-base rank: the 2^e low bits flushed
		// out here are exactly the right neighbour's step size, so pass
		// them down the chain and accept its overcarry in exchange.
		stored.Mul(stored, s.p3[e])
		tmp.And(stored, s.masks[e])
		stored.Rsh(stored, uint(uint64(1)<<e))

		ret := s.getScratch()
		s.metrics.TimerStop(metrics.GrindingChain)
		s.receiveRight(ret)
		s.sendRight(tmp)
		s.metrics.CounterInc(metrics.MessagesReceivedRight)
		if ret.Sign() != 0 {
			s.metrics.CounterInc(metrics.MessagesReceivedRightNonempty)
		}
		s.metrics.TimerStart(metrics.GrindingChain)
		stored.Add(stored, ret)
		s.putScratch(ret)
	} else {
		s.funnelUntil(stored, e, i+1)
	}

	stored.Add(stored, add)
	tmp.Rsh(stored, uint(uint64(1)<<l))
	stored.And(stored, s.masks[l])
	rop.Set(tmp)
}

// funnelUntil walks the carry chain from the block left of i down into
// block i, updating x, which stands for the entire right side of the
// integer. When e exceeds block i's log size the step halves: the low
// side is burned twice at e-1 while the high side re-inflates with the
// smaller power between rounds, realizing one 2^e step as two nested
// 2^(e-1) steps with carry.
func (s *Segment) funnelUntil(x *big.Int, e uint64, i int) {
	endSize := s.blockSize[i]
	if e < endSize {
		panic(fmt.Sprintf("segment: funnel step 2^%d below block size 2^%d", e, endSize))
	}
	if e == endSize {
		// The step fits the next block exactly: flush the low bits into
		// it and fold its overcarry back.
		x.Mul(x, s.p3[e])
		low := s.getScratch()
		low.And(x, s.masks[e])
		x.Rsh(x, uint(uint64(1)<<e))
		res := s.getScratch()
		s.recursiveBurn(res, low, e, i)
		x.Add(x, res)
		s.putScratch(res)
		s.putScratch(low)
		return
	}
	// e > endSize: halve the step.
	next := s.getScratch()
	for j := 0; j < 2; j++ {
		next.And(x, s.masks[e-1])
		x.Rsh(x, uint(uint64(1)<<(e-1)))
		// Most of the size stays in x; the low side goes around again.
		s.funnelUntil(next, e-1, i)
		// x re-inflates after the longer process.
		x.Mul(x, s.p3[e-1])
		x.Add(x, next)
	}
	s.putScratch(next)
}
