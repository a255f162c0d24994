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
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/archbirdplus/burn-hydra/metrics"
)

// Direction selects the timer classes charged for an exchange: Left for
// traffic with the left (higher-rank) neighbour, Right for traffic with
// the right (lower-rank) neighbour.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
)

type envelopeClasses struct {
	outer   metrics.TimerClass
	wire    metrics.TimerClass
	copying metrics.TimerClass
}

var sendClasses = map[Direction]envelopeClasses{
	DirLeft:  {metrics.WaitingSendLeft, metrics.WaitingSendLeftMPI, metrics.WaitingSendLeftCopy},
	DirRight: {metrics.WaitingSendRight, metrics.WaitingSendRightMPI, metrics.WaitingSendRightCopy},
}

var recvClasses = map[Direction]envelopeClasses{
	DirLeft:  {metrics.WaitingRecvLeft, metrics.WaitingRecvLeftMPI, metrics.WaitingRecvLeftCopy},
	DirRight: {metrics.WaitingRecvRight, metrics.WaitingRecvRightMPI, metrics.WaitingRecvRightCopy},
}

// Send serializes x and delivers it to peer, charging the copy and wire
// phases to the direction's timer classes.
func Send(m *metrics.Metrics, c Conn, peer int, dir Direction, x *big.Int) error {
	classes := sendClasses[dir]
	m.TimerStart(classes.outer)
	defer m.TimerStop(classes.outer)

	m.TimerStart(classes.copying)
	frame := AppendLimbs(nil, x)
	m.TimerStop(classes.copying)

	m.TimerStart(classes.wire)
	err := c.Send(peer, frame)
	m.TimerStop(classes.wire)
	return err
}

// Recv blocks on a message from peer and deserializes it into x.
func Recv(m *metrics.Metrics, c Conn, peer int, dir Direction, x *big.Int) error {
	classes := recvClasses[dir]
	m.TimerStart(classes.outer)
	defer m.TimerStop(classes.outer)

	m.TimerStart(classes.wire)
	frame, err := c.Recv(peer)
	m.TimerStop(classes.wire)
	if err != nil {
		return err
	}

	m.TimerStart(classes.copying)
	SetFromLimbs(x, frame)
	m.TimerStop(classes.copying)
	return nil
}

// Gather collects every rank's x into buf on the root: first each rank's
// limb count, then the limbs themselves, reassembled on the root from one
// contiguous limb buffer laid out by displacement. buf must hold Size()
// initialized bignums on the root and is ignored elsewhere.
//
// Limb counts travel as int32, which bounds a single contribution at
// about 2^34 bytes (2^31 limbs of 8 bytes); beyond that the job cannot continue and the count
// check aborts.
func Gather(m *metrics.Metrics, c Conn, x *big.Int, buf []*big.Int, root int) error {
	m.TimerStart(metrics.GatherCommunication)
	defer m.TimerStop(metrics.GatherCommunication)

	limbs := AppendLimbs(nil, x)
	count := LimbCount(x)
	if count > math.MaxInt32 {
		panic(fmt.Sprintf("transport: gather contribution of %d limbs exceeds the int32 count bound", count))
	}

	if c.Rank() != root {
		countFrame := make([]byte, 4)
		binary.LittleEndian.PutUint32(countFrame, uint32(count))
		if err := c.Send(root, countFrame); err != nil {
			return err
		}
		return c.Send(root, limbs)
	}

	// Root: gather counts, compute displacements, then gather payloads
	// into one contiguous limb buffer.
	size := c.Size()
	counts := make([]int32, size)
	for r := 0; r < size; r++ {
		if r == root {
			counts[r] = int32(count)
			continue
		}
		frame, err := c.Recv(r)
		if err != nil {
			return err
		}
		if len(frame) != 4 {
			panic(fmt.Sprintf("transport: gather count frame of %d bytes from rank %d", len(frame), r))
		}
		counts[r] = int32(binary.LittleEndian.Uint32(frame))
	}
	displs := make([]int64, size)
	for r := 1; r < size; r++ {
		displs[r] = displs[r-1] + int64(counts[r-1])
	}
	total := displs[size-1] + int64(counts[size-1])
	contiguous := make([]byte, total*LimbSize)
	for r := 0; r < size; r++ {
		at := contiguous[displs[r]*LimbSize : (displs[r]+int64(counts[r]))*LimbSize]
		if r == root {
			copy(at, limbs)
			continue
		}
		frame, err := c.Recv(r)
		if err != nil {
			return err
		}
		if len(frame) != len(at) {
			panic(fmt.Sprintf("transport: gather payload of %d bytes from rank %d, want %d", len(frame), r, len(at)))
		}
		copy(at, frame)
	}
	for r := 0; r < size; r++ {
		SetFromLimbs(buf[r], contiguous[displs[r]*LimbSize:(displs[r]+int64(counts[r]))*LimbSize])
	}
	return nil
}
