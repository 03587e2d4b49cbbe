package family

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrUnknownFamily is returned for names that are not in the registry.
var ErrUnknownFamily = errors.New("unknown family")

// Family bundles everything the integrator needs to know about a likelihood.
type Family struct {
	Name  string
	LP    LogPartition
	Link  Link    // nil for canonical families
	Left  float64 // open lower bound of theta
	Right float64 // open upper bound of theta
}

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

var registry = map[string]Family{
	"bernoulli":   {Name: "bernoulli", LP: Bernoulli, Left: negInf, Right: posInf},
	"binomial":    {Name: "binomial", LP: Binomial, Left: negInf, Right: posInf},
	"poisson":     {Name: "poisson", LP: Poisson, Left: negInf, Right: posInf},
	"gamma":       {Name: "gamma", LP: Gamma, Left: negInf, Right: 0},
	"exponential": {Name: "exponential", LP: Exponential, Left: negInf, Right: 0},
	"geometric":   {Name: "geometric", LP: Geometric, Left: negInf, Right: 0},
	"nbinomial":   {Name: "nbinomial", LP: NegativeBinomial, Left: negInf, Right: 0},
	"probit":      {Name: "probit", LP: Probit, Link: ProbitLink, Left: negInf, Right: posInf},
	"normal":      {Name: "normal", LP: Normal, Left: negInf, Right: posInf},
}

var aliases = map[string]string{
	"negative_binomial": "nbinomial",
	"negbinomial":       "nbinomial",
	"gaussian":          "normal",
}

// Lookup resolves a family by name. Names are case-insensitive.
func Lookup(name string) (Family, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canon, ok := aliases[key]; ok {
		key = canon
	}
	f, ok := registry[key]
	if !ok {
		return Family{}, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return f, nil
}

// GetLogPartition returns the log-partition function of the named family.
func GetLogPartition(name string) (LogPartition, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f.LP, nil
}

// GetInterval returns the open interval of valid natural parameters of the
// named family.
func GetInterval(name string) (left, right float64, err error) {
	f, err := Lookup(name)
	if err != nil {
		return 0, 0, err
	}
	return f.Left, f.Right, nil
}

// Names lists the canonical family names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
