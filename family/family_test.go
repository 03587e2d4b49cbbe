package family

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

const fdStep = 1e-5

func centralDiff(f func(float64) float64, x float64) float64 {
	return (f(x+fdStep) - f(x-fdStep)) / (2 * fdStep)
}

func assertRel(t *testing.T, want, got, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want, got, tol*math.Max(1, math.Abs(want)), msgAndArgs...)
}

func TestLogPartitionDerivatives(t *testing.T) {
	tests := []struct {
		name   string
		thetas []float64
	}{
		{"bernoulli", []float64{-8, -0.5, 0, 0.7, 12}},
		{"binomial", []float64{-2, 1.5}},
		{"poisson", []float64{-6, -0.5, 0.7, 4}},
		{"gamma", []float64{-20, -1, -0.2}},
		{"exponential", []float64{-3, -0.05}},
		{"geometric", []float64{-5, -1, -0.2}},
		{"nbinomial", []float64{-2, -0.05}},
		{"probit", []float64{-60, -40, -35, -6, -1, 0, 0.8, 5, 19.5, 25}},
		{"normal", []float64{-2, 0.3, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp, err := GetLogPartition(tt.name)
			require.NoError(t, err)
			b0 := func(x float64) float64 { return lp(x).B0 }
			b1 := func(x float64) float64 { return lp(x).B1() }
			for _, theta := range tt.thetas {
				p := lp(theta)
				require.False(t, math.IsNaN(p.B0) || math.IsInf(p.B0, 0), "b0(%g) not finite", theta)
				require.False(t, math.IsNaN(p.LogB1) || math.IsInf(p.LogB1, 0), "log b1(%g) not finite", theta)
				require.False(t, math.IsNaN(p.LogB2) || math.IsInf(p.LogB2, 0), "log b2(%g) not finite", theta)
				assert.Contains(t, []float64{-1, 1}, p.B1Sign)
				assert.Contains(t, []float64{-1, 1}, p.B2Sign)
				assertRel(t, centralDiff(b0, theta), p.B1(), 1e-6, "b1(%g)", theta)
				assertRel(t, centralDiff(b1, theta), p.B2(), 1e-6, "b2(%g)", theta)
			}
		})
	}
}

func TestClosedForms(t *testing.T) {
	p := Bernoulli(0)
	assert.InDelta(t, math.Ln2, p.B0, 1e-15)
	assert.InDelta(t, 0.5, p.B1(), 1e-15)
	assert.InDelta(t, 0.25, p.B2(), 1e-15)

	p = Poisson(math.Log(3))
	assert.InDelta(t, 3, p.B0, 1e-12)
	assert.InDelta(t, 3, p.B1(), 1e-12)

	// Gamma with theta = -1/mean: b'(theta) is the mean.
	p = Gamma(-0.25)
	assert.InDelta(t, 4, p.B1(), 1e-12)
	assert.InDelta(t, 16, p.B2(), 1e-12)

	// Geometric mean number of failures is p/(1-p) with p = exp(theta).
	q := math.Exp(-1.0)
	p = Geometric(-1)
	assert.InDelta(t, q/(1-q), p.B1(), 1e-12)
}

func TestBernoulliLargeTheta(t *testing.T) {
	p := Bernoulli(800)
	assert.InDelta(t, 800, p.B0, 1e-9)
	assert.InDelta(t, 0, p.LogB1, 1e-9)
	assert.False(t, math.IsInf(p.LogB2, 0))
	assert.InDelta(t, -800, p.LogB2, 1e-9)
}

func TestNormalZeroDerivativeSign(t *testing.T) {
	p := Normal(0)
	assert.Equal(t, 1.0, p.B1Sign)
	assert.True(t, math.IsInf(p.LogB1, -1))
	assert.Equal(t, 0.0, p.B1())

	p = Normal(-2)
	assert.Equal(t, -1.0, p.B1Sign)
	assert.InDelta(t, -2, p.B1(), 1e-15)
}

func TestProbitLikelihood(t *testing.T) {
	for _, theta := range []float64{-40, -7, -1.2, 0, 0.4, 3, 9, 40} {
		h, _, _ := ProbitLink(theta)
		b0 := Probit(theta).B0
		// y = 1 gives log Phi(theta); y = 0 gives log Phi(-theta).
		assertRel(t, logNormCDF(theta), h-b0, 1e-10, "y=1 theta=%g", theta)
		assertRel(t, logNormCDF(-theta), -b0, 1e-10, "y=0 theta=%g", theta)
	}
}

func TestProbitDeepLowerTail(t *testing.T) {
	// Below theta = -38 the derivatives underflow in the linear domain but
	// their logs follow log phi(theta) and log(-theta).
	for _, theta := range []float64{-40, -60, -300} {
		p := Probit(theta)
		want := -0.5*theta*theta - 0.5*math.Log(2*math.Pi)
		assertRel(t, want, p.LogB1, 1e-12, "log b1(%g)", theta)
		assertRel(t, want+math.Log(-theta), p.LogB2, 1e-12, "log b2(%g)", theta)
	}
}

func TestProbitLinkDerivatives(t *testing.T) {
	h := func(x float64) float64 { v, _, _ := ProbitLink(x); return v }
	dh := func(x float64) float64 { _, v, _ := ProbitLink(x); return v }
	for _, theta := range []float64{-6, -1, 0, 0.5, 2, 6} {
		_, gotDh, gotD2h := ProbitLink(theta)
		assertRel(t, centralDiff(h, theta), gotDh, 1e-6, "dh(%g)", theta)
		assertRel(t, centralDiff(dh, theta), gotD2h, 1e-5, "d2h(%g)", theta)
	}
}

func TestLogNormCDF(t *testing.T) {
	for _, x := range []float64{-8, -2, -0.3, 0, 1, 4, 7} {
		want := math.Log(distuv.UnitNormal.CDF(x))
		assertRel(t, want, logNormCDF(x), 1e-9, "x=%g", x)
	}
	// The asymptotic branch must join the erfc branch smoothly.
	lo := logNormCDF(normTailCutoff - 1e-9)
	hi := logNormCDF(normTailCutoff + 1e-9)
	assertRel(t, hi, lo, 1e-8)
	assert.False(t, math.IsInf(logNormCDF(-200), 0))
}

func TestMillsExcessContinuity(t *testing.T) {
	lo := millsExcess(millsSeriesCutoff)
	hi := millsExcess(math.Nextafter(millsSeriesCutoff, math.Inf(1)))
	assert.InDelta(t, lo, hi, 1e-6*lo)
	for _, x := range []float64{-50, -3, 0, 3, 25, 1e4} {
		assert.Greater(t, millsExcess(x), 0.0, "x=%g", x)
	}
}

func TestLookupAliasesAndCase(t *testing.T) {
	f, err := Lookup("Negative_Binomial")
	require.NoError(t, err)
	assert.Equal(t, "nbinomial", f.Name)

	f, err = Lookup(" POISSON ")
	require.NoError(t, err)
	assert.Equal(t, "poisson", f.Name)
	assert.Nil(t, f.Link)

	f, err = Lookup("probit")
	require.NoError(t, err)
	assert.NotNil(t, f.Link)
}

func TestUnknownFamily(t *testing.T) {
	_, err := GetLogPartition("not-a-family")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFamily))

	_, _, err = GetInterval("not-a-family")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFamily))
}

func TestIntervals(t *testing.T) {
	for _, name := range Names() {
		left, right, err := GetInterval(name)
		require.NoError(t, err)
		assert.Less(t, left, right, name)
		lp, err := GetLogPartition(name)
		require.NoError(t, err)
		require.NotNil(t, lp)
	}

	left, right, err := GetInterval("gamma")
	require.NoError(t, err)
	assert.True(t, math.IsInf(left, -1))
	assert.Equal(t, 0.0, right)

	left, right, err = GetInterval("poisson")
	require.NoError(t, err)
	assert.True(t, math.IsInf(left, -1))
	assert.True(t, math.IsInf(right, 1))
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.Len(t, names, 9)
	assert.IsIncreasing(t, names)
}
