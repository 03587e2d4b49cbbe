// Package family holds the log-partition (cumulant) functions of the
// exponential-family likelihoods supported by the integrator, and the open
// interval on which each one's natural parameter is defined.
package family

import "math"

// Partition is a log-partition b evaluated at one theta. Derivatives are
// carried as log magnitude plus sign so that callers can stay in log scale.
type Partition struct {
	B0     float64 // b(theta)
	LogB1  float64 // log|b'(theta)|
	B1Sign float64 // sign of b'(theta), +1 or -1
	LogB2  float64 // log|b''(theta)|
	B2Sign float64 // sign of b''(theta), +1 or -1
}

// B1 returns b'(theta) in the linear domain.
func (p Partition) B1() float64 { return p.B1Sign * math.Exp(p.LogB1) }

// B2 returns b''(theta) in the linear domain.
func (p Partition) B2() float64 { return p.B2Sign * math.Exp(p.LogB2) }

// LogPartition evaluates a family's log-partition function. It must be pure;
// theta must lie strictly inside the family's interval.
type LogPartition func(theta float64) Partition

// Link maps theta onto the coefficient of y for families whose likelihood is
// not canonical in theta, i.e. log p(y|theta) = y*h(theta) - b(theta).
// Canonical families have no Link (h(theta) = theta).
type Link func(theta float64) (h, dh, d2h float64)

// softplus returns log(1+exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// Bernoulli is the logit-link log-partition b(theta) = log(1+exp(theta)).
func Bernoulli(theta float64) Partition {
	b0 := softplus(theta)
	return Partition{
		B0:     b0,
		LogB1:  theta - b0,
		B1Sign: 1,
		LogB2:  theta - 2*b0,
		B2Sign: 1,
	}
}

// Binomial shares the Bernoulli cumulant. The observation is the success
// proportion k/N and the dispersion is N.
func Binomial(theta float64) Partition {
	return Bernoulli(theta)
}

// Poisson is the log-link log-partition b(theta) = exp(theta).
func Poisson(theta float64) Partition {
	return Partition{
		B0:     math.Exp(theta),
		LogB1:  theta,
		B1Sign: 1,
		LogB2:  theta,
		B2Sign: 1,
	}
}

// Gamma is b(theta) = -log(-theta) for theta < 0, with theta = -1/mean and the
// shape passed as dispersion.
func Gamma(theta float64) Partition {
	l := math.Log(-theta)
	return Partition{
		B0:     -l,
		LogB1:  -l,
		B1Sign: 1,
		LogB2:  -2 * l,
		B2Sign: 1,
	}
}

// Exponential is the unit-shape Gamma.
func Exponential(theta float64) Partition {
	return Gamma(theta)
}

// Geometric is b(theta) = -log(1-exp(theta)) for theta < 0.
func Geometric(theta float64) Partition {
	b0 := -math.Log(-math.Expm1(theta))
	return Partition{
		B0:     b0,
		LogB1:  theta + b0,
		B1Sign: 1,
		LogB2:  theta + 2*b0,
		B2Sign: 1,
	}
}

// NegativeBinomial shares the Geometric cumulant. With r failures the
// observation is k/r and the dispersion is r.
func NegativeBinomial(theta float64) Partition {
	return Geometric(theta)
}

// Normal is the unit-variance Gaussian cumulant b(theta) = theta^2/2. At
// theta = 0 the first derivative is reported as {-Inf, +1}.
func Normal(theta float64) Partition {
	sign := 1.0
	if theta < 0 {
		sign = -1
	}
	return Partition{
		B0:     0.5 * theta * theta,
		LogB1:  math.Log(math.Abs(theta)),
		B1Sign: sign,
		LogB2:  0,
		B2Sign: 1,
	}
}

// Probit is the cumulant of a Bernoulli whose success probability is
// Phi(theta): b(theta) = -log Phi(-theta). It must be paired with ProbitLink so
// that y=1 contributes log Phi(theta) and y=0 contributes log Phi(-theta).
func Probit(theta float64) Partition {
	logM := logMillsRatio(theta)
	return Partition{
		B0:     -logNormCDF(-theta),
		LogB1:  logM,
		B1Sign: 1,
		LogB2:  logM + math.Log(millsExcess(theta)),
		B2Sign: 1,
	}
}

// ProbitLink is h(theta) = log Phi(theta) - log Phi(-theta), the logit of the
// probit success probability.
func ProbitLink(theta float64) (h, dh, d2h float64) {
	mp := millsRatio(-theta)
	mn := millsRatio(theta)
	h = logNormCDF(theta) - logNormCDF(-theta)
	dh = mp + mn
	d2h = mn*millsExcess(theta) - mp*millsExcess(-theta)
	return h, dh, d2h
}
