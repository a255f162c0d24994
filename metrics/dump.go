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

package metrics

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
)

// Dump prints the per-class totals and counters as a table on stdout and
// writes the recorded intervals of this rank to rankN.json.
func (m *Metrics) Dump(rank int) {
	fmt.Println("Some metrics were tracked:")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Class", "Seconds"})
	for t := TimerClass(0); t < numTimerClasses; t++ {
		table.Append([]string{t.String(), strconv.FormatFloat(m.totals[t].Seconds(), 'f', 6, 64)})
	}
	table.Render()

	counters := tablewriter.NewWriter(os.Stdout)
	counters.SetHeader([]string{"Counter", "Total"})
	for c := CounterClass(0); c < numCounterClasses; c++ {
		counters.Append([]string{c.String(), strconv.FormatUint(m.counters[c], 10)})
	}
	counters.Render()

	if err := m.writeIntervals(rank); err != nil {
		log.Warn("Failed to write timer intervals", "rank", rank, "err", err)
	}
}

// writeIntervals emits the recorded intervals as a JSON fragment of the
// form `"rank R": {"class": [[start, stop], ...], ...}`. Coordinates are
// seconds relative to the first recorded start. Ranks above zero prefix a
// comma so that concatenating the per-rank files yields the body of a
// single object; the fragment is therefore assembled by hand rather than
// through encoding/json.
func (m *Metrics) writeIntervals(rank int) error {
	init := m.intervals[Initializing]
	if len(init) == 0 {
		log.Info("No init interval recorded, skipping file write", "rank", rank)
		return nil
	}
	first := init[0].Start

	var b strings.Builder
	if rank > 0 {
		b.WriteString(",")
	}
	fmt.Fprintf(&b, "%q: {", fmt.Sprintf("rank %d", rank))
	wrote := false
	for t := TimerClass(0); t < numTimerClasses; t++ {
		if !m.recording[t] {
			continue
		}
		if wrote {
			b.WriteString(",")
		}
		wrote = true
		fmt.Fprintf(&b, "%q: [", t.String())
		for i, iv := range m.intervals[t] {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "[%g,%g]", iv.Start.Sub(first).Seconds(), iv.Stop.Sub(first).Seconds())
		}
		b.WriteString("]")
	}
	b.WriteString("}")

	name := fmt.Sprintf("rank%d.json", rank)
	return os.WriteFile(name, []byte(b.String()), 0644)
}
