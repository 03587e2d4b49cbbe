package liknorm

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ieee0824/liknorm-go/internal/mathutil"
	"github.com/ieee0824/liknorm-go/quadrature"
)

const (
	panelsPerBudget = 128 // rule evaluations a full node budget should buy
	minPanelOrder   = 8
	maxPanelOrder   = 32
)

// Machine is a reusable integration workspace. Its scratch buffers are
// overwritten by every Integrate call, so a Machine must not be shared
// between goroutines; give each worker its own.
type Machine struct {
	n            int
	precision    float64
	logPrecision float64

	// Per-node log-domain contributions to the zeroth, first and second
	// moments about the mode.
	logZeroth []float64
	u         []mathutil.Signed
	v         []float64
	used      int // scratch entries written by the current integration

	// Leaves of the current partition with their log error and log mass.
	panels []panel
	errs   []float64
	masses []float64

	rule    *quadrature.Rule
	x, logW []float64 // nodes and log-weights of the current panel

	log *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for debug records about mode-finding
// fallbacks. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPanelOrder overrides the number of Gauss–Legendre nodes per panel.
// Values outside [1, n] are clamped.
func WithPanelOrder(q int) Option {
	return func(m *Machine) {
		m.rule = quadrature.NewLegendre(min(max(q, 1), m.n))
	}
}

// panelOrder picks the rule size for a node budget of n. A panel costs three
// rules: one over the whole and one over each half.
func panelOrder(n int) int {
	q := min(max(n/panelsPerBudget, minPanelOrder), maxPanelOrder)
	return max(min(q, n/3), 1)
}

// NewMachine allocates a machine with a budget of n quadrature nodes per
// integration and the given relative precision.
func NewMachine(n int, precision float64, opts ...Option) (*Machine, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive, got %d", ErrInvalidDomain, n)
	}
	if !(precision > 0) || math.IsInf(precision, 0) {
		return nil, fmt.Errorf("%w: precision must be positive and finite, got %g", ErrInvalidDomain, precision)
	}
	m := &Machine{
		n:            n,
		precision:    precision,
		logPrecision: math.Log(precision),
		logZeroth:    make([]float64, n),
		u:            make([]mathutil.Signed, n),
		v:            make([]float64, n),
		log:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rule == nil {
		m.rule = quadrature.NewLegendre(panelOrder(n))
	}
	q := m.rule.Order()
	m.x = make([]float64, q)
	m.logW = make([]float64, q)
	leaves := n/(2*q) + 1
	m.panels = make([]panel, 0, leaves)
	m.errs = make([]float64, 0, leaves)
	m.masses = make([]float64, 0, leaves)
	return m, nil
}

// Nodes returns the node budget the machine was created with.
func (m *Machine) Nodes() int { return m.n }

// Precision returns the machine's relative precision.
func (m *Machine) Precision() float64 { return m.precision }

// Destroy releases the scratch buffers. Integrate fails afterwards.
func (m *Machine) Destroy() {
	m.logZeroth = nil
	m.u = nil
	m.v = nil
	m.x = nil
	m.logW = nil
	m.panels = nil
	m.errs = nil
	m.masses = nil
	m.rule = nil
}

// Integrate returns the log zeroth moment, mean and variance of the density
// proportional to ef's likelihood times the Gaussian message msg.
func (m *Machine) Integrate(ef ExpFam, msg Normal) (Moments, error) {
	if m.rule == nil {
		return Moments{}, ErrMachineDestroyed
	}
	if err := validate(ef, msg); err != nil {
		return Moments{}, err
	}
	d := newDensity(ef, msg)
	mode, err := m.findMode(d)
	if err != nil {
		return Moments{}, err
	}
	return m.accumulate(d, mode, d.scaleAt(mode))
}

// MeanVariance is Integrate without the log zeroth moment.
func (m *Machine) MeanVariance(ef ExpFam, msg Normal) (mean, variance float64, err error) {
	mom, err := m.Integrate(ef, msg)
	if err != nil {
		return 0, 0, err
	}
	return mom.Mean, mom.Variance, nil
}

func validate(ef ExpFam, msg Normal) error {
	switch {
	case !(msg.Tau > 0) || math.IsInf(msg.Tau, 0):
		return fmt.Errorf("%w: message precision must be positive and finite, got %g", ErrInvalidDomain, msg.Tau)
	case !isFinite(msg.Eta):
		return fmt.Errorf("%w: message eta must be finite, got %g", ErrInvalidDomain, msg.Eta)
	case !(ef.Left < ef.Right):
		return fmt.Errorf("%w: empty interval (%g, %g)", ErrInvalidDomain, ef.Left, ef.Right)
	case !(ef.Aphi > 0) || math.IsInf(ef.Aphi, 0):
		return fmt.Errorf("%w: aphi must be positive and finite, got %g", ErrInvalidDomain, ef.Aphi)
	case ef.AphiSign != 1 && ef.AphiSign != -1:
		return fmt.Errorf("%w: aphi sign must be +1 or -1, got %g", ErrInvalidDomain, ef.AphiSign)
	case ef.LP == nil:
		return fmt.Errorf("%w: missing log-partition function", ErrInvalidDomain)
	case !isFinite(ef.Y):
		return fmt.Errorf("%w: observation must be finite, got %g", ErrInvalidDomain, ef.Y)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
