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

	"github.com/archbirdplus/burn-hydra/transport"
)

const gatherRoot = 0

// Signature computes the whole number modulo base^exp. Every rank
// contributes sum_i (stored[i] mod m) * 2^offset[i] mod m, the shift
// taken by modular exponentiation since offsets run far beyond anything
// representable; the contributions gather onto rank 0, which returns the
// folded residue. Other ranks return nil.
//
// Every rank must call this at the same iteration count with the same
// base and exponent.
func (s *Segment) Signature(base, exp uint64) *big.Int {
	mod := new(big.Int).Exp(new(big.Int).SetUint64(base), new(big.Int).SetUint64(exp), nil)
	two := big.NewInt(2)
	res := new(big.Int)
	tmp := new(big.Int)
	scale := new(big.Int)
	shift := new(big.Int)
	for i, stored := range s.stored {
		shift.SetUint64(s.globalOffset[i])
		scale.Exp(two, shift, mod)
		tmp.Mod(stored, mod)
		tmp.Mul(tmp, scale)
		res.Add(res, tmp)
	}
	res.Mod(res, mod)

	var buf []*big.Int
	if s.rank == gatherRoot {
		buf = make([]*big.Int, s.size)
		for i := range buf {
			buf[i] = new(big.Int)
		}
	}
	if err := transport.Gather(s.metrics, s.conn, res, buf, gatherRoot); err != nil {
		panic(fmt.Sprintf("segment: signature gather on rank %d: %v", s.rank, err))
	}
	if s.rank != gatherRoot {
		return nil
	}
	total := new(big.Int)
	for _, part := range buf {
		total.Add(total, part)
	}
	return total.Mod(total, mod)
}

// PrintSignature computes the signature and prints it on rank 0.
func (s *Segment) PrintSignature(base, exp uint64) {
	res := s.Signature(base, exp)
	if s.rank == gatherRoot {
		fmt.Printf("≡ %s (mod %d^%d)", res, base, exp)
	}
}

// PrintSpecial2Exp prints the pair of 128-bit residues reached after 2^e
// iterations. Every rank must participate; only rank 0 prints.
func (s *Segment) PrintSpecial2Exp(e int64) {
	if s.rank == gatherRoot {
		fmt.Printf("H^2^%d(%d) ", e, s.problem.Initial)
	}
	s.PrintSignature(2, 128)
	if s.rank == gatherRoot {
		fmt.Printf(" ")
	}
	s.PrintSignature(3, 128)
	if s.rank == gatherRoot {
		fmt.Printf("\n")
	}
}

// PrintSmallestMod prints this rank's rightmost block modulo mod.
func (s *Segment) PrintSmallestMod(mod uint64) {
	m := new(big.Int)
	m.Mod(s.stored[len(s.stored)-1], new(big.Int).SetUint64(mod))
	fmt.Printf("%d's smallest block mod %d is %s\n", s.rank, mod, m)
}

// PrintBlocks dumps every block of this rank at debug level.
func (s *Segment) PrintBlocks() {
	for i := len(s.stored) - 1; i >= 0; i-- {
		s.log.Debug("Segment block", "block", i, "offset", s.globalOffset[i], "value", s.stored[i])
	}
}
