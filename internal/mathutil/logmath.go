package mathutil

import "math"

// LogZero represents log(0) in log-domain arithmetic. Anything at or below it,
// including -Inf, is treated as zero mass.
const LogZero = -1e30

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Uses threshold-based early exit to skip expensive exp/log1p when the
// smaller value contributes less than float64 precision (exp(-36) ≈ 2.3e-16).
func LogAdd(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if b <= LogZero {
		return a
	}
	d := b - a
	if d < -36.0 {
		return a
	}
	return a + math.Log1p(math.Exp(d))
}

// LogSub returns log(exp(a) - exp(b)), assuming a > b.
func LogSub(a, b float64) float64 {
	if b <= LogZero {
		return a
	}
	if a <= b {
		return LogZero
	}
	return a + math.Log1p(-math.Exp(b-a))
}

// Signed is a real number carried as the log of its magnitude plus a sign.
// Sign is always +1 or -1; zero is {LogZero or -Inf, +1}.
type Signed struct {
	Log  float64
	Sign float64
}

// NewSigned converts x into its signed log representation.
func NewSigned(x float64) Signed {
	if x < 0 {
		return Signed{Log: math.Log(-x), Sign: -1}
	}
	return Signed{Log: math.Log(x), Sign: 1}
}

// Float returns the value in the linear domain.
func (s Signed) Float() float64 {
	return s.Sign * math.Exp(s.Log)
}

// Mul returns s*t.
func (s Signed) Mul(t Signed) Signed {
	return Signed{Log: s.Log + t.Log, Sign: s.Sign * t.Sign}
}

// Add returns s+t. When the signs differ the larger magnitude keeps its sign.
func (s Signed) Add(t Signed) Signed {
	if s.Sign == t.Sign {
		return Signed{Log: LogAdd(s.Log, t.Log), Sign: s.Sign}
	}
	if s.Log >= t.Log {
		return Signed{Log: LogSub(s.Log, t.Log), Sign: s.Sign}
	}
	return Signed{Log: LogSub(t.Log, s.Log), Sign: t.Sign}
}

// SignedSum adds all xs with a single max-shifted pass, which keeps the
// rounding error of one cancellation instead of one per pairwise Add.
func SignedSum(xs []Signed) Signed {
	hi := math.Inf(-1)
	for _, x := range xs {
		if x.Log > hi {
			hi = x.Log
		}
	}
	if hi <= LogZero {
		return Signed{Log: LogZero, Sign: 1}
	}
	if math.IsInf(hi, 1) {
		return Signed{Log: hi, Sign: 1}
	}
	sum := 0.0
	for _, x := range xs {
		sum += x.Sign * math.Exp(x.Log-hi)
	}
	if sum < 0 {
		return Signed{Log: hi + math.Log(-sum), Sign: -1}
	}
	return Signed{Log: hi + math.Log(sum), Sign: 1}
}
