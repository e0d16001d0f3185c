// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve decides what a client downloads to reach a target
// version: nothing, the target's full package, or a chain of deltas
// applied to the build it already has.
//
// Chains are found by a single ascending pass over the channel's
// versions. Among chains from the installed version to the target,
// the resolver prefers the fewest hops (a direct delta is always one
// hop), then the smallest total download, then the lexicographically
// smallest sequence of intermediate versions, so the choice is
// deterministic for a given index.
//
// Whether the chain beats the full package is a [Policy] decision:
// at most MaxHops deltas, and a total size below MaxChainRatio times
// the full package. The defaults (10 hops, ratio 1.0) prefer a chain
// whenever it is strictly smaller to download. Reconstruction cost is
// not modelled; a deployment where CPU matters more than bandwidth
// lowers the ratio.
//
// Resolution is pure: the index is only read, and the resolver holds
// no state between calls.
package resolve
