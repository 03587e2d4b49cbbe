package liknorm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ieee0824/liknorm-go/family"
)

const (
	maxModeIter    = 512
	modeTolFactor  = 1e-3 // mode tolerance as a fraction of the machine precision
	maxNewtonStall = 2    // Newton steps allowed without halving the bracket
	maxModeSlope   = 1.0  // largest |g'|*sigma accepted at a fallback mode
	epsilon        = 0x1p-52
)

// density is the log of the unnormalized tilted density
//
//	g(theta) = scale*(y*h(theta) - b(theta)) - tau*theta^2/2 + eta*theta
type density struct {
	y, scale    float64
	lp          family.LogPartition
	link        family.Link
	eta, tau    float64
	left, right float64
}

func newDensity(ef ExpFam, msg Normal) *density {
	return &density{
		y:     ef.Y,
		scale: ef.AphiSign * ef.Aphi,
		lp:    ef.LP,
		link:  ef.Link,
		eta:   msg.Eta,
		tau:   msg.Tau,
		left:  ef.Left,
		right: ef.Right,
	}
}

func (d *density) logAt(theta float64) float64 {
	h := theta
	if d.link != nil {
		h, _, _ = d.link(theta)
	}
	return d.scale*(d.y*h-d.lp(theta).B0) - 0.5*d.tau*theta*theta + d.eta*theta
}

// slope returns g'(theta) and g''(theta).
func (d *density) slope(theta float64) (g1, g2 float64) {
	dh, d2h := 1.0, 0.0
	if d.link != nil {
		_, dh, d2h = d.link(theta)
	}
	p := d.lp(theta)
	g1 = d.scale*(d.y*dh-p.B1()) - d.tau*theta + d.eta
	g2 = d.scale*(d.y*d2h-p.B2()) - d.tau
	return g1, g2
}

// scaleAt is the Laplace width 1/sqrt(-g'') at theta, or the message width
// when the density is not concave there.
func (d *density) scaleAt(theta float64) float64 {
	_, g2 := d.slope(theta)
	if g2 < 0 && !math.IsInf(g2, 0) {
		return 1 / math.Sqrt(-g2)
	}
	return 1 / math.Sqrt(d.tau)
}

// start returns the message mean pulled strictly inside (left, right).
func (d *density) start() float64 {
	x := d.eta / d.tau
	if x > d.left && x < d.right {
		return x
	}
	finiteL, finiteR := !math.IsInf(d.left, 0), !math.IsInf(d.right, 0)
	inset := math.Min(1/math.Sqrt(d.tau), 1)
	switch {
	case finiteL && finiteR:
		return 0.5 * (d.left + d.right)
	case x <= d.left:
		return d.left + inset*math.Max(1, math.Abs(d.left))
	default:
		return d.right - inset*math.Max(1, math.Abs(d.right))
	}
}

// findMode locates the stationary point of g with Newton steps guarded by a
// bracket [lo, hi] on which g' changes sign. While a side of the bracket is
// unbounded, steps are capped by a trust radius that doubles on every capped
// step. Once the bracket is finite, Newton must halve it within
// maxNewtonStall steps or the next step is a bisection.
func (m *Machine) findMode(d *density) (float64, error) {
	lo, hi := d.left, d.right
	x := d.start()
	step := 1 / math.Sqrt(d.tau)
	tol := modeTolFactor * m.precision
	width := math.Inf(1) // bracket width at the last halving
	stalls := 0

	for range maxModeIter {
		g1, g2 := d.slope(x)
		if math.IsNaN(g1) {
			return 0, fmt.Errorf("%w: log-density slope is NaN at theta=%g", ErrIntegrationFailure, x)
		}
		if g1 == 0 {
			return m.inside(d, x)
		}
		if g1 > 0 {
			lo = x
		} else {
			hi = x
		}
		open := math.IsInf(lo, -1) || math.IsInf(hi, 1)
		if !open && hi-lo <= 0.5*width {
			width = hi - lo
			stalls = 0
		}

		next := x - g1/g2
		newton := g2 < 0 && !math.IsInf(g2, 0) && next > lo && next < hi
		switch {
		case newton && open && math.Abs(next-x) > step:
			next = x + math.Copysign(step, next-x)
			step *= 2
		case newton && (open || stalls < maxNewtonStall):
			// Newton step, measured against the local Laplace width.
			if dx := math.Abs(next - x); dx <= tol/math.Sqrt(-g2) || dx <= 4*epsilon*math.Abs(x) {
				return m.inside(d, next)
			}
			stalls++
		case g1 > 0 && math.IsInf(hi, 1):
			next = x + step
			step *= 2
		case g1 < 0 && math.IsInf(lo, -1):
			next = x - step
			step *= 2
		default:
			next = 0.5 * (lo + hi)
			if hi-lo <= 4*epsilon*math.Max(math.Abs(lo), math.Abs(hi)) {
				return m.inside(d, next)
			}
		}
		x = next
	}

	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, fmt.Errorf("%w: no sign change of the log-density slope in (%g, %g)", ErrIntegrationFailure, d.left, d.right)
	}
	return m.midpoint(d, lo, hi)
}

// midpoint stands in for the mode when the search runs out of iterations. It
// is accepted only if g is within maxModeSlope Laplace widths of stationary.
func (m *Machine) midpoint(d *density, lo, hi float64) (float64, error) {
	mid := 0.5 * (lo + hi)
	g1, _ := d.slope(mid)
	if slope := math.Abs(g1) * d.scaleAt(mid); !(slope <= maxModeSlope) {
		return 0, fmt.Errorf("%w: mode search stopped in [%g, %g] with slope*width %g", ErrIntegrationFailure, lo, hi, slope)
	}
	if m.log.Enabled(context.Background(), slog.LevelDebug) {
		m.log.Debug("mode search did not converge, using bracket midpoint",
			slog.Float64("lo", lo), slog.Float64("hi", hi), slog.Float64("mode", mid))
	}
	return m.inside(d, mid)
}

// inside rejects a mode that rounding pushed onto a domain bound.
func (m *Machine) inside(d *density, mode float64) (float64, error) {
	if !(mode > d.left && mode < d.right) {
		return 0, fmt.Errorf("%w: mode %g collapsed onto the bound of (%g, %g)", ErrIntegrationFailure, mode, d.left, d.right)
	}
	return mode, nil
}
