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
	"os"
	"strings"
	"testing"
)

func TestTimerAccumulates(t *testing.T) {
	m := New(false)
	m.TimerStart(GrindingBasecase)
	m.TimerStop(GrindingBasecase)
	m.TimerStart(GrindingBasecase)
	m.TimerStop(GrindingBasecase)
	if m.Total(GrindingBasecase) < 0 {
		t.Fatalf("negative total: %v", m.Total(GrindingBasecase))
	}
	if m.Total(GrindingChain) != 0 {
		t.Fatalf("untouched class accumulated %v", m.Total(GrindingChain))
	}
}

func TestTimerDoubleStartAborts(t *testing.T) {
	m := New(false)
	m.TimerStart(Active)
	defer func() {
		if recover() == nil {
			t.Fatal("double start did not abort")
		}
	}()
	m.TimerStart(Active)
}

func TestTimerUnmatchedStopAborts(t *testing.T) {
	m := New(false)
	m.TimerStart(Active)
	m.TimerStop(Active)
	defer func() {
		if recover() == nil {
			t.Fatal("second stop did not abort")
		}
	}()
	m.TimerStop(Active)
}

func TestCounters(t *testing.T) {
	m := New(false)
	for i := 0; i < 3; i++ {
		m.CounterInc(MessagesReceivedRight)
	}
	m.CounterInc(MessagesReceivedRightNonempty)
	if got := m.Count(MessagesReceivedRight); got != 3 {
		t.Errorf("messages_received_right = %d, want 3", got)
	}
	if got := m.Count(MessagesReceivedRightNonempty); got != 1 {
		t.Errorf("messages_received_right_nonempty = %d, want 1", got)
	}
}

func TestIntervalRecording(t *testing.T) {
	m := New(false)
	m.TimerStart(WaitingSendLeft)
	m.TimerStop(WaitingSendLeft)
	m.TimerStart(GrindingChain)
	m.TimerStop(GrindingChain)
	if got := len(m.Intervals(WaitingSendLeft)); got != 1 {
		t.Errorf("waiting_send_left recorded %d intervals, want 1", got)
	}
	if m.Intervals(GrindingChain) != nil {
		t.Error("grinding_chain recorded intervals without full logs")
	}

	full := New(true)
	full.TimerStart(GrindingChain)
	full.TimerStop(GrindingChain)
	if got := len(full.Intervals(GrindingChain)); got != 1 {
		t.Errorf("grinding_chain recorded %d intervals under full logs, want 1", got)
	}
}

func TestDumpWritesFragment(t *testing.T) {
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(old)

	m := New(false)
	m.TimerStart(Initializing)
	m.TimerStop(Initializing)
	m.Dump(1)

	data, err := os.ReadFile("rank1.json")
	if err != nil {
		t.Fatalf("interval file not written: %v", err)
	}
	body := string(data)
	if !strings.HasPrefix(body, ",") {
		t.Errorf("rank 1 fragment missing leading comma: %q", body)
	}
	if !strings.Contains(body, `"rank 1": {`) {
		t.Errorf("fragment missing rank key: %q", body)
	}
	if !strings.Contains(body, `"initializing": [[`) {
		t.Errorf("fragment missing initializing intervals: %q", body)
	}
}
