package ta

import (
	"iter"
	"math"
)

// MovingAverage yields the trailing n-period mean aligned to vals: the
// sequence has len(vals) entries and the first n-1 are NaN.
func MovingAverage(vals []float64, n int) iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		sum := 0.0
		for i, v := range vals {
			sum += v
			if n > 0 && i >= n {
				sum -= vals[i-n]
			}
			avg := math.NaN()
			if n > 0 && i >= n-1 {
				avg = sum / float64(n)
			}
			if !yield(i, avg) {
				return
			}
		}
	}
}

// LastMovingAverage is the final value of MovingAverage: NaN when vals has
// fewer than n entries.
func LastMovingAverage(vals []float64, n int) float64 {
	last := math.NaN()
	for _, avg := range MovingAverage(vals, n) {
		last = avg
	}
	return last
}

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// RSI uses simple average gain and loss over the trailing period. A window
// with no losses is 100, and a window with no movement at all is 50.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// Returns are simple session-over-session returns, one shorter than closes.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// Volatility is the population standard deviation of the last window daily
// returns scaled by sqrt(periodsPerYear). Needs window+1 closes.
func Volatility(closes []float64, window int, periodsPerYear float64) float64 {
	if window < 2 || len(closes) < window+1 {
		return math.NaN()
	}
	r := Returns(closes[len(closes)-window-1:])
	return StdDev(r, window) * math.Sqrt(periodsPerYear)
}

// VolumeTrend compares the mean of the last recent volumes with the mean of
// the baseline volumes before them, as a percentage change.
func VolumeTrend(vols []float64, recent, baseline int) float64 {
	if recent <= 0 || baseline <= 0 || len(vols) < recent+baseline {
		return math.NaN()
	}
	n := len(vols)
	cur := SMA(vols, recent)
	base := SMA(vols[n-recent-baseline:n-recent], baseline)
	if base == 0 {
		return math.NaN()
	}
	return (cur/base - 1) * 100
}

// PeriodReturn is the simple return over the last sessions sessions.
func PeriodReturn(closes []float64, sessions int) float64 {
	if sessions <= 0 || len(closes) < sessions+1 {
		return math.NaN()
	}
	n := len(closes)
	return closes[n-1]/closes[n-1-sessions] - 1
}

// MaxDrawdown is the largest peak-to-trough fall as a positive fraction.
func MaxDrawdown(closes []float64) float64 {
	peak, dd := 0.0, 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			dd = math.Max(dd, (peak-c)/peak)
		}
	}
	return dd
}
