// Package individual models one candidate portfolio of a genetic algorithm:
// a selection of universe columns with a weight allocation across them, plus the
// return, risk and Sharpe statistics used as its fitness.
package individual

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Individual is one candidate portfolio. assets[i] is a universe column position
// and weights[i] its allocation. Both are fixed at construction.
type Individual struct {
	id      uuid.UUID
	assets  []int
	weights []float64
}

// ID is a diagnostic identifier, unique per construction
func (ind *Individual) ID() uuid.UUID {
	return ind.id
}

// Assets returns a copy of the selected column positions
func (ind *Individual) Assets() []int {
	return append([]int(nil), ind.assets...)
}

// Weights returns a copy of the allocation
func (ind *Individual) Weights() []float64 {
	return append([]float64(nil), ind.weights...)
}

// Size is the number of selected assets
func (ind *Individual) Size() int {
	return len(ind.assets)
}

func (ind *Individual) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, a := range ind.assets {
		if i > 0 {
			b.WriteString(" ")
		}
		w := 0.0
		if i < len(ind.weights) {
			w = ind.weights[i]
		}
		fmt.Fprintf(&b, "%d:%.4f", a, w)
	}
	b.WriteString("}")
	return b.String()
}
