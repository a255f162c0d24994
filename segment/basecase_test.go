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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archbirdplus/burn-hydra/metrics"
	"github.com/archbirdplus/burn-hydra/params"
	"github.com/archbirdplus/burn-hydra/transport"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(0x68796472))
}

func TestTableEntriesAreIterates(t *testing.T) {
	seg := newTestSegment(t, "8", 3, 1<<8)
	// Spot-check table entries against the scalar iterate, including the
	// small fixed points that a scaled-floor table would get wrong.
	for _, i := range []uint64{0, 1, 2, 3, 5, 17, 255, 1<<basecaseTableBits - 1} {
		want := reference(i, basecaseTableBits)
		require.Zero(t, want.Cmp(new(big.Int).SetUint64(uint64(seg.table[i]))),
			"table[%d] = %d, want %s", i, seg.table[i], want)
	}
}

func TestBasecaseMatchesReference(t *testing.T) {
	// One basecase call over 2^e steps with zero undercarry must equal
	// the step-by-step reference: overcarry * 2^(2^l) + block.
	rnd := newRand()
	for _, l := range []uint64{5, 8, 10} {
		seg := newTestSegment(t, fmt.Sprintf("%d", l), 3, 1<<l)
		for _, e := range []uint64{0, 1, 3, l} {
			for trial := 0; trial < 4; trial++ {
				s := new(big.Int).Rand(rnd, pow(2, int64(1)<<l))
				seg.stored[0].Set(s)
				want := reference2(s, int64(1)<<e)

				rop := new(big.Int)
				seg.basecaseBurn(rop, new(big.Int), e, 0)

				got := new(big.Int).Lsh(rop, uint(uint64(1)<<l))
				got.Add(got, seg.stored[0])
				require.Zero(t, got.Cmp(want), "l=%d e=%d trial=%d", l, e, trial)
				require.LessOrEqual(t, seg.stored[0].BitLen(), int(uint64(1)<<l),
					"l=%d e=%d: block not reduced", l, e)
			}
		}
	}
}

func TestBasecaseUndercarryOrder(t *testing.T) {
	// The undercarry joins after the iterations, so it rides along
	// unmultiplied: result = H-iterates(s) + add.
	rnd := newRand()
	seg := newTestSegment(t, "8", 3, 1<<8)
	s := new(big.Int).Rand(rnd, pow(2, 256))
	add := new(big.Int).Rand(rnd, pow(2, 256))
	seg.stored[0].Set(s)

	want := reference2(s, 1<<8)
	want.Add(want, add)

	rop := new(big.Int)
	seg.basecaseBurn(rop, add, 8, 0)
	got := new(big.Int).Lsh(rop, 256)
	got.Add(got, seg.stored[0])
	require.Zero(t, got.Cmp(want))
}

func TestBasecaseDeterminism(t *testing.T) {
	// Re-entering the basecase through the scramble loop must be exactly
	// reproducible for each starting offset.
	const e = 8
	const rounds = 1 << 12
	for a := uint64(0); a < 3; a++ {
		results := make([]*big.Int, 2)
		for attempt := range results {
			seg := newTestSegment(t, "8", 3, 1<<8)
			add := new(big.Int).SetUint64(3 + a)
			out := new(big.Int)
			seg.stored[0].SetInt64(0)
			for i := 0; i < rounds; i++ {
				seg.basecaseBurn(out, add, e, 0)
				out.Mul(out, big.NewInt(7)) // scramble it a little
				add.Rsh(out, e)             // just truncate it to pass back
			}
			results[attempt] = new(big.Int).Set(seg.stored[0])
		}
		require.Zero(t, results[0].Cmp(results[1]), "offset %d: runs diverged", a)
	}
}

func TestTableOverflowAborts(t *testing.T) {
	// Widths past 20 bits push iterates beyond 32 bits of storage.
	seg := &Segment{}
	defer func() {
		if recover() == nil {
			t.Fatal("oversized table width did not abort")
		}
	}()
	seg.initTable(23)
}

func BenchmarkBasecaseBurn(b *testing.B) {
	cfg := &params.Config{}
	if err := cfg.ParseShape("8"); err != nil {
		b.Fatal(err)
	}
	net := transport.NewNetwork(1)
	seg, err := New(&params.Problem{Initial: 3, Iterations: 1 << 8}, cfg, net.Conn(0), metrics.New(false))
	if err != nil {
		b.Fatal(err)
	}
	add := new(big.Int).SetUint64(3)
	out := new(big.Int)
	seg.stored[0].SetInt64(0)
	seven := big.NewInt(7)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seg.basecaseBurn(out, add, 8, 0)
		out.Mul(out, seven)
		add.Rsh(out, 8)
	}
}
