// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the durations
// shipwright reports in events.
//
// Production code accepts a Clock instead of calling time.Now
// directly. Real() provides the standard library behavior. In tests,
// Fake() provides a clock that moves only when told to, so a test can
// assert the exact Duration an event carries.
//
// # Wiring Pattern
//
// Add a Clock field to the config struct and default it when nil:
//
//	type Config struct {
//	    Clock clock.Clock
//	    // ...
//	}
//
//	clk := clock.OrReal(config.Clock)
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.SetStep(time.Second) // every Now call advances one second
package clock
