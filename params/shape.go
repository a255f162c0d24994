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

package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errEmptyShape    = errors.New("params: empty shape string")
	errNotEnoughSegs = errors.New("params: not enough config segments to assign to all processes")
)

// ParseShape parses a block-shape string into the Funnel and Chain lists.
//
// The grammar is SEG ( , SEG )* ( / SEG ( , SEG )* )? with
// SEG := SIZE ( - SIZE )*. Everything left of the slash is the funnel,
// everything right of it is the chain; the chain may be omitted. Example:
// "9-27,3-4/5-6" is a two-segment funnel followed by a one-segment chain.
func (c *Config) ParseShape(shape string) error {
	if shape == "" {
		return errEmptyShape
	}
	halves := strings.SplitN(shape, "/", 2)
	funnel, err := parseSegments(halves[0])
	if err != nil {
		return err
	}
	c.Funnel = append(c.Funnel, funnel...)
	if len(halves) == 2 {
		chain, err := parseSegments(halves[1])
		if err != nil {
			return err
		}
		c.Chain = append(c.Chain, chain...)
	}
	for _, seg := range c.Funnel {
		for _, size := range seg {
			if size > c.GlobalBlockMax {
				c.GlobalBlockMax = size
			}
		}
	}
	for _, seg := range c.Chain {
		for _, size := range seg {
			if size > c.GlobalBlockMax {
				c.GlobalBlockMax = size
			}
		}
	}
	return nil
}

func parseSegments(list string) ([][]uint64, error) {
	var segments [][]uint64
	for _, seg := range strings.Split(list, ",") {
		var sizes []uint64
		for _, field := range strings.Split(seg, "-") {
			size, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("params: invalid block size %q in segment %q", field, seg)
			}
			sizes = append(sizes, size)
		}
		segments = append(segments, sizes)
	}
	return segments, nil
}

// Assign unrolls the funnel and chain into one block list per rank. Ranks
// past the funnel cycle through the chain. GlobalBlockMax is recomputed
// over the blocks actually assigned.
func (c *Config) Assign(worldSize int) error {
	if worldSize > len(c.Funnel) && len(c.Chain) == 0 {
		return errNotEnoughSegs
	}
	c.Used = make([][]uint64, 0, worldSize)
	c.GlobalBlockMax = 0
	for i := 0; i < worldSize; i++ {
		var list []uint64
		if i < len(c.Funnel) {
			list = c.Funnel[i]
		} else {
			list = c.Chain[(i-len(c.Funnel))%len(c.Chain)]
		}
		c.Used = append(c.Used, list)
		for _, size := range list {
			if size > c.GlobalBlockMax {
				c.GlobalBlockMax = size
			}
		}
	}
	return nil
}

// Validate checks the assigned layout against the constraints the burn
// protocol depends on. Every violation is reported, not just the first.
func (c *Config) Validate(worldSize int, iterations int64) error {
	var problems []string
	previous := uint64(0)
	for i, list := range c.Used {
		for j, next := range list {
			if j == 0 && i != 0 && next != previous {
				problems = append(problems, "Block sizes should be consistent on segment boundaries.")
			}
			if next < previous {
				problems = append(problems, "Decreasing block sizes are currently not supported.")
			}
			previous = next
		}
	}
	if iterations%(int64(1)<<c.GlobalBlockMax) != 0 {
		problems = append(problems, "Problem iterations currently may only be multiples of the largest block size.")
	}
	if len(c.Used) != worldSize {
		problems = append(problems, "internal: block sizes not correctly unrolled")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n"))
	}
	return nil
}
