package correction

import (
	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/validation"
)

// DefaultMaxIterations bounds the validate/correct cycle. The budget
// is a hard upper limit; the loop never errors on non-convergence.
const DefaultMaxIterations = 3

// LoopResult carries whatever the loop converged to: with a VALID
// result when it converged, or the last attempted graph and its
// non-valid result when the budget ran out. Partial progress is never
// discarded.
type LoopResult struct {
	Graph       *circuit.Graph     `json:"graph"`
	Validation  *validation.Result `json:"validation"`
	Corrections []string           `json:"corrections"`
	Iterations  int                `json:"iterations"`
}

// RunLoop validates, corrects, and re-validates until the graph is
// clean or maxIterations correction passes have run. maxIterations
// values below 1 fall back to DefaultMaxIterations.
func RunLoop(g *circuit.Graph, maxIterations int) *LoopResult {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	working := g
	corrections := []string{}

	for i := 0; i < maxIterations; i++ {
		res := validation.Validate(working)
		if res.Valid() {
			return &LoopResult{
				Graph:       working,
				Validation:  res,
				Corrections: corrections,
				Iterations:  i + 1,
			}
		}
		fixed := Correct(working, res)
		working = fixed.CorrectedGraph
		corrections = append(corrections, fixed.Corrections...)
	}

	// Budget exhausted: report the final graph as it stands.
	return &LoopResult{
		Graph:       working,
		Validation:  validation.Validate(working),
		Corrections: corrections,
		Iterations:  maxIterations,
	}
}
