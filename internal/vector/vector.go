package vector

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// #region types
// Dimensions is the ordered dimension set of a session.
// Order is significant: it drives tie-breaks and audit output order.
type Dimensions []string

// PriorityVector maps a dimension name to a weight in [0, 1].
type PriorityVector map[string]float64

// #endregion types

// #region dimensions
// Contains reports whether d is part of the dimension set.
func (ds Dimensions) Contains(d string) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// Validate checks the dimension set itself: non-empty, no blanks, no duplicates.
func (ds Dimensions) Validate() error {
	if len(ds) == 0 {
		return fmt.Errorf("dimension set is empty")
	}
	seen := make(map[string]struct{}, len(ds))
	for _, d := range ds {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("dimension name is blank")
		}
		if HasControl(d) {
			return fmt.Errorf("dimension %q contains control characters", d)
		}
		if _, dup := seen[d]; dup {
			return fmt.Errorf("dimension %q declared twice", d)
		}
		seen[d] = struct{}{}
	}
	return nil
}

// HasControl reports whether s contains a control character such as a
// newline. Names containing one could split an audit line.
func HasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Sorted returns the keys of v in lexical order.
func Sorted(v PriorityVector) Dimensions {
	keys := make(Dimensions, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion dimensions

// #region vector-ops
// Clone returns an independent copy of v.
func (v PriorityVector) Clone() PriorityVector {
	out := make(PriorityVector, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Validate checks that v declares exactly the dimensions in ds and that every
// weight is a finite number in [0, 1].
func (v PriorityVector) Validate(ds Dimensions) error {
	if len(v) != len(ds) {
		return fmt.Errorf("has %d dimensions, session declares %d", len(v), len(ds))
	}
	for _, d := range ds {
		x, ok := v[d]
		if !ok {
			return fmt.Errorf("missing dimension %q", d)
		}
		if math.IsNaN(x) || x < 0 || x > 1 {
			return fmt.Errorf("dimension %q weight %v outside [0,1]", d, x)
		}
	}
	return nil
}

// Clamp01 clamps every weight into [0, 1] in place and returns v.
func (v PriorityVector) Clamp01() PriorityVector {
	for k, x := range v {
		v[k] = Clamp(x)
	}
	return v
}

// String renders v in the order of ds, e.g. "safety=0.600 ethics=0.400".
func (v PriorityVector) String(ds Dimensions) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, fmt.Sprintf("%s=%.3f", d, v[d]))
	}
	return strings.Join(parts, " ")
}

// Clamp bounds x to [0, 1]. NaN maps to 0.
func Clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Equal reports whether a and b hold identical weights on every dimension of ds.
func Equal(a, b PriorityVector, ds Dimensions) bool {
	for _, d := range ds {
		if a[d] != b[d] {
			return false
		}
	}
	return true
}

// #endregion vector-ops

// #region aggregates
// Mean computes the per-dimension arithmetic mean of vs.
// Returns nil when vs is empty.
func Mean(vs []PriorityVector, ds Dimensions) PriorityVector {
	if len(vs) == 0 {
		return nil
	}
	out := make(PriorityVector, len(ds))
	for _, d := range ds {
		var sum float64
		for _, v := range vs {
			sum += v[d]
		}
		out[d] = sum / float64(len(vs))
	}
	return out
}

// Ratios sums each dimension across vs and normalizes the sums so they add
// up to 1. ok is false when the combined weight is zero and no ratio exists.
func Ratios(vs []PriorityVector, ds Dimensions) (ratios PriorityVector, ok bool) {
	sums := make(PriorityVector, len(ds))
	var total float64
	for _, d := range ds {
		for _, v := range vs {
			sums[d] += v[d]
		}
		total += sums[d]
	}
	if total <= 0 {
		return sums, false
	}
	for _, d := range ds {
		sums[d] /= total
	}
	return sums, true
}

// MaxRatio returns the largest value in ratios over ds and the first dimension
// (in declared order) holding it.
func MaxRatio(ratios PriorityVector, ds Dimensions) (string, float64) {
	best, bestDim := math.Inf(-1), ""
	for _, d := range ds {
		if ratios[d] > best {
			best, bestDim = ratios[d], d
		}
	}
	return bestDim, best
}

// #endregion aggregates
