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

package transport

import (
	"math/big"
	"math/rand"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/archbirdplus/burn-hydra/metrics"
)

func TestLimbLayout(t *testing.T) {
	tests := []struct {
		name  string
		value *big.Int
		limbs int
	}{
		{"zero", big.NewInt(0), 0},
		{"one", big.NewInt(1), 1},
		{"limb boundary", new(big.Int).Lsh(big.NewInt(1), 64), 2},
		{"five limbs", new(big.Int).Lsh(big.NewInt(7), 300), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := AppendLimbs(nil, tt.value)
			if len(frame) != tt.limbs*LimbSize {
				t.Fatalf("frame length %d, want %d limbs", len(frame), tt.limbs)
			}
			back := SetFromLimbs(new(big.Int), frame)
			if back.Cmp(tt.value) != 0 {
				t.Errorf("round trip %s != %s", back, tt.value)
			}
		})
	}
	// The limb order is little-endian: the low limb leads the frame.
	frame := AppendLimbs(nil, big.NewInt(1))
	if frame[0] != 1 {
		t.Errorf("low byte of low limb = %d, want 1", frame[0])
	}
}

func TestSendRecvSynchronous(t *testing.T) {
	net := NewNetwork(2)
	want := new(big.Int).Lsh(big.NewInt(12345), 200)

	var g errgroup.Group
	g.Go(func() error {
		m := metrics.New(false)
		return Send(m, net.Conn(0), 1, DirLeft, want)
	})
	got := new(big.Int)
	m := metrics.New(false)
	if err := Recv(m, net.Conn(1), 0, DirRight, got); err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Errorf("received %s, want %s", got, want)
	}
	// The envelope must leave every timer stopped; restarting one would
	// abort if an interval were still open.
	m.TimerStart(metrics.WaitingRecvRight)
	m.TimerStop(metrics.WaitingRecvRight)
}

func TestGather(t *testing.T) {
	const world = 4
	net := NewNetwork(world)
	rnd := rand.New(rand.NewSource(7))

	values := make([]*big.Int, world)
	values[0] = big.NewInt(0)
	for r := 1; r < world; r++ {
		values[r] = new(big.Int).Rand(rnd, new(big.Int).Lsh(big.NewInt(1), uint(64*r+13)))
	}

	buf := make([]*big.Int, world)
	for i := range buf {
		buf[i] = new(big.Int)
	}

	var g errgroup.Group
	for rank := 1; rank < world; rank++ {
		conn := net.Conn(rank)
		value := values[rank]
		g.Go(func() error {
			return Gather(metrics.New(false), conn, value, nil, 0)
		})
	}
	if err := Gather(metrics.New(false), net.Conn(0), values[0], buf, 0); err != nil {
		t.Fatalf("root gather failed: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for r := 0; r < world; r++ {
		if buf[r].Cmp(values[r]) != 0 {
			t.Errorf("buf[%d] = %s, want %s", r, buf[r], values[r])
		}
	}
}

func TestConnRejectsBadPeers(t *testing.T) {
	net := NewNetwork(2)
	c := net.Conn(0)
	if err := c.Send(0, nil); err == nil {
		t.Error("send to self accepted")
	}
	if err := c.Send(2, nil); err == nil {
		t.Error("send to out-of-range peer accepted")
	}
	if _, err := c.Recv(-1); err == nil {
		t.Error("recv from out-of-range peer accepted")
	}
}
