// Package quadrature places Gauss–Legendre nodes on integration panels.
//
// A Rule is computed once on [-1, 1] and then mapped affinely onto each panel,
// so repeated integrations never recompute the Legendre roots.
package quadrature

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Rule is a Gauss–Legendre rule of fixed order on the reference interval.
type Rule struct {
	nodes []float64
	logW  []float64
}

// NewLegendre builds the order-point Gauss–Legendre rule. order must be > 0.
func NewLegendre(order int) *Rule {
	nodes := make([]float64, order)
	weights := make([]float64, order)
	quad.Legendre{}.FixedLocations(nodes, weights, -1, 1)
	logW := make([]float64, order)
	for i, w := range weights {
		logW[i] = math.Log(w)
	}
	return &Rule{nodes: nodes, logW: logW}
}

// Order returns the number of nodes per panel.
func (r *Rule) Order() int { return len(r.nodes) }

// Panel writes the nodes of [a, b] into x and the logs of their weights into
// logW. Both slices must have length Order(). Nodes are strictly inside
// (a, b), so open domain bounds are never evaluated.
func (r *Rule) Panel(a, b float64, x, logW []float64) {
	center := 0.5 * (a + b)
	half := 0.5 * (b - a)
	logHalf := math.Log(half)
	for i, t := range r.nodes {
		x[i] = center + half*t
		logW[i] = logHalf + r.logW[i]
	}
}
