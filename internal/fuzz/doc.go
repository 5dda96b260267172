// Package fuzztests houses Go fuzz harnesses for the decoders that read
// files ilmerge did not write itself: IR snapshots, image bundles, metadata
// roots, #~ streams and IL method bodies. The goal is to smoke test
// robustness and guard against panics or allocator explosions on arbitrary
// inputs.
//
// The seed corpus is produced in memory by emitting a small program.
package fuzztests
