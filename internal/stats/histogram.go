package stats

import (
	"math"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// MinBins is the smallest bin count a histogram is drawn with.
const MinBins = 6

// Bin is one histogram bar covering [Lower, Upper). The last bin of a
// histogram also includes its upper bound.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width binning of a value set over a rounded domain.
type Histogram struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Bins  []Bin   `json:"bins"`
	Total int     `json:"total"`
}

// MaxCount returns the height of the tallest bin.
func (h Histogram) MaxCount() int {
	m := 0
	for _, b := range h.Bins {
		m = max(m, b.Count)
	}
	return m
}

// BinCount returns the number of bins used for n values:
// max(MinBins, ceil(sqrt(n))).
func BinCount(n int) int {
	return max(MinBins, int(math.Ceil(math.Sqrt(float64(n)))))
}

// NewHistogram bins values after dropping NaN and infinities. The domain is
// the value extent widened to round numbers; a single distinct value is
// widened by one on each side first. Nothing left to bin yields
// domain.ErrNoData.
func NewHistogram(values []float64) (Histogram, error) {
	cleaned := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return Histogram{}, domain.ErrNoData
	}

	lo, hi := cleaned[0], cleaned[0]
	for _, v := range cleaned[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	lo, hi = Nice(lo, hi, 10)

	n := BinCount(len(cleaned))
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	bins[n-1].Upper = hi

	for _, v := range cleaned {
		i := int((v - lo) / width)
		i = min(max(i, 0), n-1)
		bins[i].Count++
	}
	return Histogram{Min: lo, Max: hi, Bins: bins, Total: len(cleaned)}, nil
}

// Nice extends [lo, hi] outward so both ends fall on a round tick step for
// roughly count ticks.
func Nice(lo, hi float64, count int) (float64, float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	var prev float64
	for range 10 {
		step := tickIncrement(lo, hi, count)
		if step == prev {
			break
		}
		switch {
		case step > 0:
			lo = math.Floor(lo/step) * step
			hi = math.Ceil(hi/step) * step
		case step < 0:
			lo = math.Ceil(lo*step) / step
			hi = math.Floor(hi*step) / step
		default:
			return lo, hi
		}
		prev = step
	}
	return lo, hi
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// tickIncrement returns the tick step for [lo, hi]. Steps below one are
// returned as the negated inverse (-10 for 0.1) to keep the arithmetic exact.
func tickIncrement(lo, hi float64, count int) float64 {
	step := (hi - lo) / float64(max(0, count))
	if step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return 0
	}
	power := math.Floor(math.Log10(step))
	errRatio := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case errRatio >= e10:
		factor = 10
	case errRatio >= e5:
		factor = 5
	case errRatio >= e2:
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}
