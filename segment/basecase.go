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
	"math"
	"math/big"
)

// basecaseTableBits is the window width of the basecase table. 17 costs
// one fewer multiplication than 16 at the price of one extra addition,
// which measures faster.
const basecaseTableBits = 17

// initTable builds the basecase acceleration table. Entry i holds the
// bits-fold iterate of x -> x + x/2 started at i, so one table lookup
// advances the low window by bits iterations at once: for x = 2h + b,
// one iteration maps x to 3h + (b + b/2), hence bits iterations map x to
// 3^bits * (x >> bits) + table[x mod 2^bits].
func (s *Segment) initTable(bits uint64) {
	size := uint64(1) << bits
	s.table = make([]uint32, size)
	for i := uint64(0); i < size; i++ {
		h := i
		for k := uint64(0); k < bits; k++ {
			h += h >> 1
		}
		if h > math.MaxUint32 {
			panic(fmt.Sprintf("segment: basecase table entry %d overflows 32 bits", i))
		}
		s.table[i] = uint32(h)
	}
	p3base := uint64(1)
	for k := uint64(0); k < bits; k++ {
		p3base *= 3
	}
	s.tableBits = bits
	s.tableMask = new(big.Int).SetUint64((uint64(1) << bits) - 1)
	s.p3base = new(big.Int).SetUint64(p3base)
}

// basecaseBurn advances the rightmost block of rank 0 by 2^e iterations:
// table-width chunks while they fit, classical single steps for the tail.
// It then folds in the undercarry, emits the overcarry through rop and
// reduces the block, so the caller's common tail must not run.
func (s *Segment) basecaseBurn(rop, add *big.Int, e uint64, block int) {
	stored := s.stored[block]
	tmp := s.tmp[block]
	l := s.blockSize[block]
	t := uint64(1) << e
	bits := s.tableBits

	i := uint64(0)
	for ; bits > 0 && i+bits <= t; i += bits {
		tmp.And(stored, s.tableMask)
		index := tmp.Uint64()
		stored.Rsh(stored, uint(bits))
		stored.Mul(stored, s.p3base)
		tmp.SetUint64(uint64(s.table[index]))
		stored.Add(stored, tmp)
	}
	for ; i < t; i++ {
		tmp.Rsh(stored, 1)
		stored.Add(stored, tmp)
	}

	stored.Add(stored, add)
	rop.Rsh(stored, uint(uint64(1)<<l))
	stored.And(stored, s.masks[l])
}
