package liknorm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ieee0824/liknorm-go/internal/mathutil"
)

// panelGrowth is the width ratio of consecutive panels on one side of the mode.
const panelGrowth = 2.0

// centered is the tilted density together with the reference point all
// quadrature values are taken relative to.
type centered struct {
	d     *density
	mode  float64
	gMode float64 // log density at the mode
	logS  float64 // log of the Laplace width at the mode
}

// estimate is one quadrature rule applied to an interval. Values are relative
// to exp(gMode) and the moments are taken about the mode.
type estimate struct {
	logZ  float64         // zeroth moment
	first mathutil.Signed // first moment
	logV  float64         // second moment
}

func (e estimate) add(o estimate) estimate {
	return estimate{
		logZ:  mathutil.LogAdd(e.logZ, o.logZ),
		first: e.first.Add(o.first),
		logV:  mathutil.LogAdd(e.logV, o.logV),
	}
}

// panel is a leaf of the partition. Its value is the sum of the rules over
// its two halves; the rule over the whole panel only serves as the error
// reference.
type panel struct {
	a, b        float64
	whole       estimate
	left, right estimate
}

func (p panel) fine() estimate { return p.left.add(p.right) }

// logError returns the log of |dZ| + |dFirst|/s + |dSecond|/s^2 between the
// whole-panel rule and the two half-panel rules, s being the Laplace width.
func (p panel) logError(logS float64) float64 {
	f := p.fine()
	dz := logAbsDiff(p.whole.logZ, f.logZ)
	du := p.whole.first.Add(mathutil.Signed{Log: f.first.Log, Sign: -f.first.Sign}).Log
	dv := logAbsDiff(p.whole.logV, f.logV)
	return mathutil.LogAdd(mathutil.LogAdd(dz, du-logS), dv-2*logS)
}

func logAbsDiff(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	return mathutil.LogSub(a, b)
}

// frontier is the outer edge of the integrated window on one side of the mode.
type frontier struct {
	edge  float64 // where the next panel starts
	width float64 // width of the next panel
	dir   float64 // -1 walks left, +1 walks right
	bound float64 // domain bound in direction dir
	open  bool
}

// next returns the far end of the next panel and whether it hits the bound.
func (f *frontier) next() (float64, bool) {
	outer := f.edge + f.dir*f.width
	if (f.dir < 0 && outer <= f.bound) || (f.dir > 0 && outer >= f.bound) {
		return f.bound, true
	}
	return outer, false
}

// accumulate integrates outward from the mode in panels of geometrically
// growing width, alternating sides. A side stops once its latest panel adds
// less than precision of the mass gathered so far, or once it reaches the
// domain bound. The panels are then subdivided until their error estimates
// are within precision. Running out of nodes first is a failure.
func (m *Machine) accumulate(d *density, mode, width float64) (Moments, error) {
	gMode := d.logAt(mode)
	if !isFinite(gMode) {
		return Moments{}, fmt.Errorf("%w: log-density %g at the mode %g", ErrIntegrationFailure, gMode, mode)
	}
	c := &centered{d: d, mode: mode, gMode: gMode, logS: math.Log(width)}
	m.used = 0
	m.panels = m.panels[:0]
	m.errs = m.errs[:0]
	m.masses = m.masses[:0]

	sides := [2]frontier{
		{edge: mode, width: width, dir: -1, bound: d.left, open: true},
		{edge: mode, width: width, dir: 1, bound: d.right, open: true},
	}
	logMass := mathutil.LogZero
	for sides[0].open || sides[1].open {
		for i := range sides {
			f := &sides[i]
			if !f.open {
				continue
			}
			outer, reached := f.next()
			a, b := f.edge, outer
			if a > b {
				a, b = b, a
			}
			whole, err := m.apply(c, a, b)
			if err != nil {
				return Moments{}, err
			}
			p, err := m.halve(c, a, b, whole)
			if err != nil {
				return Moments{}, err
			}
			m.push(c, p)
			panelMass := m.masses[len(m.masses)-1]
			logMass = mathutil.LogAdd(logMass, panelMass)

			f.edge = outer
			f.width *= panelGrowth
			if reached || panelMass < logMass+m.logPrecision {
				f.open = false
			}
		}
	}
	if err := m.subdivide(c); err != nil {
		return Moments{}, err
	}
	return m.finalize(c)
}

// subdivide splits the panel with the largest error estimate until the summed
// estimate is within precision of the total mass.
func (m *Machine) subdivide(c *centered) error {
	for floats.LogSumExp(m.errs) > floats.LogSumExp(m.masses)+m.logPrecision {
		i := floats.MaxIdx(m.errs)
		p := m.panels[i]
		mid := 0.5 * (p.a + p.b)
		if !(mid > p.a && mid < p.b) {
			return fmt.Errorf("%w: panel [%g, %g] cannot be split further", ErrIntegrationFailure, p.a, p.b)
		}
		left, err := m.halve(c, p.a, mid, p.left)
		if err != nil {
			return err
		}
		right, err := m.halve(c, mid, p.b, p.right)
		if err != nil {
			return err
		}
		m.set(c, i, left)
		m.push(c, right)
	}
	return nil
}

// halve evaluates the rule on both halves of [a, b], whole being the rule
// already evaluated over all of it.
func (m *Machine) halve(c *centered, a, b float64, whole estimate) (panel, error) {
	mid := 0.5 * (a + b)
	left, err := m.apply(c, a, mid)
	if err != nil {
		return panel{}, err
	}
	right, err := m.apply(c, mid, b)
	if err != nil {
		return panel{}, err
	}
	return panel{a: a, b: b, whole: whole, left: left, right: right}, nil
}

func (m *Machine) push(c *centered, p panel) {
	m.panels = append(m.panels, p)
	m.errs = append(m.errs, p.logError(c.logS))
	m.masses = append(m.masses, p.fine().logZ)
}

func (m *Machine) set(c *centered, i int, p panel) {
	m.panels[i] = p
	m.errs[i] = p.logError(c.logS)
	m.masses[i] = p.fine().logZ
}

// apply evaluates the rule on [a, b]. The per-node terms go to the next free
// entries of the scratch buffers, which bound the nodes of one integration.
func (m *Machine) apply(c *centered, a, b float64) (estimate, error) {
	q := m.rule.Order()
	if m.used+q > m.n {
		return estimate{}, fmt.Errorf("%w: node budget of %d exhausted before reaching precision %g",
			ErrIntegrationFailure, m.n, m.precision)
	}
	m.rule.Panel(a, b, m.x, m.logW)
	lo := m.used
	for i, theta := range m.x {
		l := c.d.logAt(theta) - c.gMode + m.logW[i]
		if math.IsNaN(l) {
			return estimate{}, fmt.Errorf("%w: log-density is NaN at theta=%g", ErrIntegrationFailure, theta)
		}
		delta := mathutil.NewSigned(theta - c.mode)
		j := lo + i
		m.logZeroth[j] = l
		m.u[j] = delta.Mul(mathutil.Signed{Log: l, Sign: 1})
		m.v[j] = l + 2*delta.Log
	}
	m.used += q
	return estimate{
		logZ:  floats.LogSumExp(m.logZeroth[lo:m.used]),
		first: mathutil.SignedSum(m.u[lo:m.used]),
		logV:  floats.LogSumExp(m.v[lo:m.used]),
	}, nil
}

// finalize sums the half-panel rules of every leaf into moments. The node
// terms are no longer needed, so the scratch buffers are reused for one entry
// per half panel.
func (m *Machine) finalize(c *centered) (Moments, error) {
	k := 0
	for _, p := range m.panels {
		for _, h := range [2]estimate{p.left, p.right} {
			m.logZeroth[k], m.u[k], m.v[k] = h.logZ, h.first, h.logV
			k++
		}
	}
	logZ := floats.LogSumExp(m.logZeroth[:k])
	if !isFinite(logZ) {
		return Moments{}, fmt.Errorf("%w: log zeroth moment is %g", ErrIntegrationFailure, logZ)
	}
	first := mathutil.SignedSum(m.u[:k])
	shift := first.Sign * math.Exp(first.Log-logZ)
	second := math.Exp(floats.LogSumExp(m.v[:k]) - logZ)

	mom := Moments{
		LogZeroth: logZ + c.gMode,
		Mean:      c.mode + shift,
		Variance:  math.Max(second-shift*shift, 0),
	}
	if !isFinite(mom.Mean) || !isFinite(mom.Variance) {
		return Moments{}, fmt.Errorf("%w: non-finite moments mean=%g variance=%g", ErrIntegrationFailure, mom.Mean, mom.Variance)
	}
	return mom, nil
}
