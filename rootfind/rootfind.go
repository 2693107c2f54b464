// Package rootfind provides a datetime-valued root finder and bracketing
// scan, the shared numeric primitive underlying solar-term, new-moon, and
// winter-solstice detection.
package rootfind

import (
	"math"
	"time"
)

// Func evaluates a real-valued function of an instant. Implementations
// must return math.NaN or +-Inf rather than panic on out-of-domain input;
// the scan and solve routines treat non-finite values as "skip this point".
type Func func(t time.Time) float64

// Bracket is a pair of instants believed to straddle (or exactly hit) a
// root of a Func.
type Bracket struct {
	A, B time.Time
}

// BracketByScan walks [start, end] inclusively at the given step, returning
// every consecutive pair (a, b) where f(a)*f(b) < 0, plus degenerate pairs
// (a, a) where f(a) == 0 exactly. Non-finite function values skip the
// segment without terminating the scan.
func BracketByScan(f Func, start, end time.Time, step time.Duration) []Bracket {
	if !end.After(start) || step <= 0 {
		return nil
	}

	var sampleTimes []time.Time
	for t := start; !t.After(end); t = t.Add(step) {
		sampleTimes = append(sampleTimes, t)
	}
	if sampleTimes[len(sampleTimes)-1].Before(end) {
		sampleTimes = append(sampleTimes, end)
	}

	var brackets []Bracket
	prev := sampleTimes[0]
	prevVal := f(prev)

	if finite(prevVal) && prevVal == 0 {
		brackets = append(brackets, Bracket{A: prev, B: prev})
	}

	for _, t := range sampleTimes[1:] {
		val := f(t)
		if finite(val) && val == 0 {
			brackets = append(brackets, Bracket{A: t, B: t})
		} else if finite(prevVal) && finite(val) && prevVal*val < 0 {
			brackets = append(brackets, Bracket{A: prev, B: t})
		}
		prev, prevVal = t, val
	}

	return brackets
}

// Options tunes Solve's convergence behavior.
type Options struct {
	TolSeconds float64
	MaxIter    int
}

// DefaultOptions returns the default tolerance (0.5s) and iteration cap (100).
func DefaultOptions() Options {
	return Options{TolSeconds: 0.5, MaxIter: 100}
}

// Solve finds t in [a, b] with f(t) == 0 (to within TolSeconds) using a
// hybrid false-position/bisection method: at each step it computes the
// false-position candidate and accepts it only if it lands strictly inside
// the current bracket and is finite, falling back to the midpoint
// otherwise. The bracket is updated to preserve the sign change. Supports
// exact-endpoint hits. Returns the midpoint if max iterations are
// exhausted without reaching tolerance.
func Solve(f Func, a, b time.Time, opts Options) time.Time {
	if opts.TolSeconds <= 0 {
		opts.TolSeconds = DefaultOptions().TolSeconds
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultOptions().MaxIter
	}

	xa, xb := a, b
	fa, fb := f(xa), f(xb)

	if fa == 0 {
		return xa
	}
	if fb == 0 {
		return xb
	}

	tol := time.Duration(opts.TolSeconds * float64(time.Second))

	for i := 0; i < opts.MaxIter; i++ {
		width := xb.Sub(xa)
		if width < 0 {
			width = -width
		}
		if width <= tol {
			break
		}

		var xs time.Time
		if fb != fa {
			secs := xb.Sub(xa).Seconds()
			offset := -fb * secs / (fb - fa)
			xs = xb.Add(time.Duration(offset * float64(time.Second)))
		}

		if xs.IsZero() || !xs.After(xa) || !xs.Before(xb) {
			mid := xa.Add(xb.Sub(xa) / 2)
			xs = mid
		}

		fs := f(xs)
		if !finite(fs) {
			mid := xa.Add(xb.Sub(xa) / 2)
			xs = mid
			fs = f(xs)
		}

		if fs == 0 {
			return xs
		}

		if sameSign(fa, fs) {
			xa, fa = xs, fs
		} else {
			xb, fb = xs, fs
		}
	}

	return xa.Add(xb.Sub(xa) / 2)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
