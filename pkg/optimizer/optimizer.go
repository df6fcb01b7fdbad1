// Package optimizer implements a fixed-point family of rewrites over a
// finished ir.Program: constant folding, dynamic-call devirtualization,
// non-recursive call inlining, single-use constant elimination, and
// tree-shaking, run in a fixed order up to Options.MaxRounds times or
// until a round makes no further progress.
package optimizer

import "github.com/novalang/novac/pkg/ir"

// Options configures one Optimize run.
type Options struct {
	// MaxRounds bounds the fixed-point loop; <=0 falls back to the
	// default of 5.
	MaxRounds int
}

const defaultMaxRounds = 5

// Optimize rewrites prog in place, returning the number of rounds that
// produced at least one change (0 means the program was already at a
// fixed point).
func Optimize(prog *ir.Program, opts Options) int {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	rounds := 0
	for i := 0; i < maxRounds; i++ {
		changed := shake(prog)
		if constElimPass(prog) {
			changed = true
		}
		if litPrecomputePass(prog) {
			changed = true
		}
		graph := buildCallGraph(prog)
		recursive := computeRecursive(graph)
		if inlinePass(prog, recursive) {
			changed = true
		}
		if !changed {
			break
		}
		rounds++
	}
	shake(prog)
	return rounds
}
