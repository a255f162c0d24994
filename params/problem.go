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

// Package params holds the problem statement and the block-shape
// configuration shared by every rank of a burn job.
package params

// Problem describes the trajectory to compute: Iterations applications of
// x -> x + x/2 starting from Initial.
type Problem struct {
	Initial    uint64
	Iterations int64
}

// Config carries the block layout for the whole chain of ranks.
//
// Funnel and Chain hold per-segment lists of block log-sizes, as parsed
// from the shape string. Rank i is assigned Funnel[i] when i < len(Funnel)
// and Chain[(i-len(Funnel)) % len(Chain)] otherwise; Assign materializes
// that into Used. Within a segment list, sizes run from the basecase side
// outward, so the last entry of a list is the segment's leftmost (largest
// offset) block.
type Config struct {
	Funnel [][]uint64
	Chain  [][]uint64
	Used   [][]uint64

	// GlobalBlockMax is the log-size of the largest block in the system.
	// ParseShape tracks the maximum over everything parsed; Assign
	// recomputes it over the blocks actually assigned.
	GlobalBlockMax uint64

	PruneBits          bool
	CheckpointInterval int64

	// FullLogs enables the extended set of metrics interval classes.
	FullLogs bool
}
