package family

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Below this argument erfc underflows too early to be useful, so log Phi
// switches to its asymptotic expansion.
const normTailCutoff = -30.0

// Above this argument M(x)-x cancels badly and the series form is used.
const millsSeriesCutoff = 20.0

// logNormCDF returns log Phi(x).
func logNormCDF(x float64) float64 {
	switch {
	case x > 0:
		return math.Log1p(-0.5 * math.Erfc(x/math.Sqrt2))
	case x > normTailCutoff:
		return math.Log(0.5 * math.Erfc(-x/math.Sqrt2))
	}
	t := 1 / (x * x)
	return distuv.UnitNormal.LogProb(x) - math.Log(-x) + math.Log(1-t*(1-3*t*(1-5*t)))
}

// millsRatio returns M(x) = phi(x)/Phi(-x), the inverse Mills ratio of the
// upper tail. M(x) > max(0, x) for every finite x.
func millsRatio(x float64) float64 {
	return math.Exp(logMillsRatio(x))
}

// logMillsRatio returns log M(x), finite where M(x) itself underflows.
func logMillsRatio(x float64) float64 {
	return distuv.UnitNormal.LogProb(x) - logNormCDF(-x)
}

// millsExcess returns M(x) - x, which is strictly positive.
func millsExcess(x float64) float64 {
	if x <= millsSeriesCutoff {
		return millsRatio(x) - x
	}
	t := 1 / (x * x)
	tail := t * (1 - 3*t*(1-5*t*(1-7*t)))
	return x * tail / (1 - tail)
}
