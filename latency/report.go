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

package latency

import (
	"fmt"
	"io"
)

// WriteReport emits the measured matrices as a JSON document of the form
// {"sizes": [...], "counts": [...], "means": [[[...]]], "stddevs": [[[...]]]},
// one world*world matrix per size group.
func WriteReport(w io.Writer, cfg Config, world int, stats []Matrix) {
	fmt.Fprint(w, "{\"sizes\": [")
	for i, size := range cfg.Sizes {
		if i != 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%d", size)
	}
	fmt.Fprint(w, "], \"counts\": [")
	for i, count := range cfg.Counts {
		if i != 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%d", count)
	}
	fmt.Fprint(w, "], \"means\": [")
	writeMatrices(w, world, stats, func(m Matrix) []float64 { return m.Means })
	fmt.Fprint(w, "], \"stddevs\": [")
	writeMatrices(w, world, stats, func(m Matrix) []float64 { return m.Stddevs })
	fmt.Fprintln(w, "]}")
}

func writeMatrices(w io.Writer, world int, stats []Matrix, pick func(Matrix) []float64) {
	for i, mat := range stats {
		if i != 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprint(w, "[")
		values := pick(mat)
		for source := 0; source < world; source++ {
			if source != 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprint(w, "[")
			for target := 0; target < world; target++ {
				if target != 0 {
					fmt.Fprint(w, ", ")
				}
				fmt.Fprintf(w, "%g", values[source*world+target])
			}
			fmt.Fprint(w, "]")
		}
		fmt.Fprint(w, "]")
	}
}
