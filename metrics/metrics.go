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

// Package metrics tracks named wall-clock timers and counters for one
// rank of a burn job. Timers are strictly paired: a class must be started
// before it is stopped and may not be started twice; violating either is
// a programming error and aborts. Selected classes additionally record
// every (start, stop) interval for later JSON emission.
package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// TimerClass identifies one of the fixed wall-clock timers.
type TimerClass int

const (
	Initializing TimerClass = iota
	WaitingSendLeft
	WaitingSendLeftMPI
	WaitingSendLeftCopy
	WaitingRecvLeft
	WaitingRecvLeftMPI
	WaitingRecvLeftCopy
	WaitingSendRight
	WaitingSendRightMPI
	WaitingSendRightCopy
	WaitingRecvRight
	WaitingRecvRightMPI
	WaitingRecvRightCopy
	GrindingBasecase
	GrindingChain
	GatherCommunication
	Active

	numTimerClasses
)

var timerClassNames = [numTimerClasses]string{
	Initializing:         "initializing",
	WaitingSendLeft:      "waiting_send_left",
	WaitingSendLeftMPI:   "waiting_send_left_mpi",
	WaitingSendLeftCopy:  "waiting_send_left_copy",
	WaitingRecvLeft:      "waiting_recv_left",
	WaitingRecvLeftMPI:   "waiting_recv_left_mpi",
	WaitingRecvLeftCopy:  "waiting_recv_left_copy",
	WaitingSendRight:     "waiting_send_right",
	WaitingSendRightMPI:  "waiting_send_right_mpi",
	WaitingSendRightCopy: "waiting_send_right_copy",
	WaitingRecvRight:     "waiting_recv_right",
	WaitingRecvRightMPI:  "waiting_recv_right_mpi",
	WaitingRecvRightCopy: "waiting_recv_right_copy",
	GrindingBasecase:     "grinding_basecase",
	GrindingChain:        "grinding_chain",
	GatherCommunication:  "gather_communication",
	Active:               "active",
}

// String returns the canonical class name used in dumps and JSON keys.
func (t TimerClass) String() string { return timerClassNames[t] }

// CounterClass identifies one of the fixed event counters.
type CounterClass int

const (
	MessagesReceivedRight CounterClass = iota
	MessagesReceivedRightNonempty

	numCounterClasses
)

var counterClassNames = [numCounterClasses]string{
	MessagesReceivedRight:         "messages_received_right",
	MessagesReceivedRightNonempty: "messages_received_right_nonempty",
}

// String returns the canonical counter name.
func (c CounterClass) String() string { return counterClassNames[c] }

// Interval is one recorded start/stop pair of a timer class.
type Interval struct {
	Start time.Time
	Stop  time.Time
}

// Metrics holds the timers and counters of a single rank. It is not safe
// for concurrent use; each rank owns exactly one instance.
type Metrics struct {
	totals    [numTimerClasses]time.Duration
	lastStart [numTimerClasses]time.Time
	recording [numTimerClasses]bool
	intervals [numTimerClasses][]Interval
	counters  [numCounterClasses]uint64
}

// New creates a Metrics instance. Interval recording is always enabled
// for the initialization and left-edge communication classes; fullLogs
// extends it to the right-edge and chain-grinding classes.
func New(fullLogs bool) *Metrics {
	m := new(Metrics)
	m.recording[Initializing] = true
	m.recording[WaitingSendLeft] = true
	m.recording[WaitingRecvLeft] = true
	if fullLogs {
		m.recording[WaitingSendRight] = true
		m.recording[WaitingRecvRight] = true
		m.recording[GrindingChain] = true
	}
	return m
}

// TimerStart records the start point of class t.
func (m *Metrics) TimerStart(t TimerClass) {
	if !m.lastStart[t].IsZero() {
		panic("metrics: timer " + t.String() + " was started twice")
	}
	m.lastStart[t] = time.Now()
}

// TimerStop closes the running interval of class t and accumulates it.
// A negative delta is logged but still accumulated; it must not disturb
// any other class.
func (m *Metrics) TimerStop(t TimerClass) {
	start := m.lastStart[t]
	if start.IsZero() {
		panic("metrics: timer " + t.String() + " was stopped without a start")
	}
	stop := time.Now()
	delta := stop.Sub(start)
	if delta < 0 {
		log.Warn("Experienced time travel", "class", t, "elapsed", delta)
	}
	m.totals[t] += delta
	m.lastStart[t] = time.Time{}
	if m.recording[t] {
		m.intervals[t] = append(m.intervals[t], Interval{Start: start, Stop: stop})
	}
}

// CounterInc increments counter c by one.
func (m *Metrics) CounterInc(c CounterClass) {
	m.counters[c]++
}

// Total returns the accumulated duration of class t.
func (m *Metrics) Total(t TimerClass) time.Duration { return m.totals[t] }

// Count returns the current value of counter c.
func (m *Metrics) Count(c CounterClass) uint64 { return m.counters[c] }

// Intervals returns the recorded intervals of class t, or nil when the
// class does not record intervals.
func (m *Metrics) Intervals(t TimerClass) []Interval {
	if !m.recording[t] {
		return nil
	}
	return m.intervals[t]
}
