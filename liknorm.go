// Package liknorm computes the moments of an exponential-family likelihood
// multiplied by a Gaussian message, the per-observation step of expectation
// propagation for generalized linear models.
//
// A Machine owns the scratch buffers for one worker. Integrate can be called
// any number of times on it, but never from two goroutines at once:
//
//	m, err := liknorm.NewMachine(2000, 1e-7)
//	ef, err := liknorm.NewExpFam("poisson", 3, 1)
//	mom, err := m.Integrate(ef, liknorm.NormalFromMeanVar(0.5, 1))
package liknorm

import (
	"fmt"
	"math"

	"github.com/ieee0824/liknorm-go/family"
)

// ExpFam is one observation's likelihood term
//
//	exp(AphiSign * Aphi * (Y*h(theta) - b(theta)))
//
// with b given by LP and h by Link (identity when Link is nil).
type ExpFam struct {
	Y        float64
	Aphi     float64 // > 0
	AphiSign float64 // +1 or -1
	LP       family.LogPartition
	Link     family.Link
	Left     float64 // open bound of theta, may be -Inf
	Right    float64 // open bound of theta, may be +Inf
}

// NewExpFam builds the likelihood term of the named family. The dispersion
// carries its own sign: Aphi is |dispersion| and AphiSign its sign.
func NewExpFam(name string, y, dispersion float64) (ExpFam, error) {
	f, err := family.Lookup(name)
	if err != nil {
		return ExpFam{}, err
	}
	if dispersion == 0 || math.IsNaN(dispersion) || math.IsInf(dispersion, 0) {
		return ExpFam{}, fmt.Errorf("%w: dispersion must be finite and non-zero, got %g", ErrInvalidDomain, dispersion)
	}
	sign := 1.0
	if dispersion < 0 {
		sign = -1
	}
	return ExpFam{
		Y:        y,
		Aphi:     math.Abs(dispersion),
		AphiSign: sign,
		LP:       f.LP,
		Link:     f.Link,
		Left:     f.Left,
		Right:    f.Right,
	}, nil
}

// Normal is a Gaussian message in natural parameters: Eta = mean/variance and
// Tau = 1/variance.
type Normal struct {
	Eta float64
	Tau float64
}

// NormalFromMeanVar converts a mean and variance to natural parameters.
func NormalFromMeanVar(mean, variance float64) Normal {
	return Normal{Eta: mean / variance, Tau: 1 / variance}
}

// Moments of the tilted density proportional to likelihood times message.
type Moments struct {
	LogZeroth float64 // log of the integral of the unnormalized density
	Mean      float64
	Variance  float64
}
