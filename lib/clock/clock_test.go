// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeStandsStill(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) || !c.Now().Equal(epoch) {
		t.Error("fake clock moved without Advance or a step")
	}
	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(epoch.Add(90 * time.Second)) {
		t.Errorf("Now() after Advance = %v", got)
	}
	if c.Reads() != 3 {
		t.Errorf("Reads() = %d, want 3", c.Reads())
	}
}

func TestFakeStep(t *testing.T) {
	c := Fake(epoch)
	c.SetStep(time.Second)

	start := c.Now()
	if got := Since(c, start); got != time.Second {
		t.Errorf("Since() = %v, want 1s", got)
	}

	c.SetStep(0)
	start = c.Now()
	if got := Since(c, start); got != 0 {
		t.Errorf("Since() with no step = %v, want 0", got)
	}
}

func TestFakeConcurrentReads(t *testing.T) {
	c := Fake(epoch)
	c.SetStep(time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Now()
			}
		}()
	}
	wg.Wait()

	if got := c.Now(); !got.Equal(epoch.Add(800 * time.Millisecond)) {
		t.Errorf("Now() after 800 reads = %v, want epoch+800ms", got)
	}
}

func TestOrReal(t *testing.T) {
	if _, ok := OrReal(nil).(realClock); !ok {
		t.Error("OrReal(nil) is not the real clock")
	}
	fake := Fake(epoch)
	if OrReal(fake) != Clock(fake) {
		t.Error("OrReal replaced a non-nil clock")
	}
	before := time.Now()
	if Real().Now().Before(before) {
		t.Error("real clock is behind time.Now")
	}
}
