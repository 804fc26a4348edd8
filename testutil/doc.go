// Package testutil provides testing utilities for rxgo.
//
// This package is intended for use in tests and benchmarks only.
//
// # Small Engines
//
// NewSmallEngine returns a reference engine with a tiny cache and dataset so
// that full dataset builds take milliseconds:
//
//	eng := testutil.NewSmallEngine()
//	ds, err := rxgo.NewDataset(ctx, rxgo.FlagDefault, key, rxgo.WithEngine(eng))
//
// # Fault Injection and Scheduling
//
// HookEngine wraps any engine to fail allocations, panic inside a dataset
// worker, or force partitions to complete in a chosen order (Sequencer).
//
// # Random Inputs
//
//	rng := testutil.NewRNG(seed)
//	key := rng.Bytes(32)
//	inputs := rng.Inputs(100, 256)
package testutil
