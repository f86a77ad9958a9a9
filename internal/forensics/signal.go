package forensics

import "math"

// Small statistics helpers shared by the producers. Everything operates on
// plain float64 slices so the heuristics stay trivially testable.

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// byteEntropy returns the Shannon entropy of a byte slice in bits per byte
// (0 to 8).
func byteEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	total := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return h
}

// windowEntropies splits data into n equal windows and returns the entropy
// of each, giving a coarse temporal profile of the payload.
func windowEntropies(data []byte, n int) []float64 {
	if n <= 0 || len(data) < n {
		return nil
	}
	size := len(data) / n
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(data)
		}
		out = append(out, byteEntropy(data[start:end]))
	}
	return out
}

// histogramEntropy buckets values into bins over [lo,hi] and returns the
// Shannon entropy of the distribution in bits.
func histogramEntropy(xs []float64, bins int, lo, hi float64) float64 {
	if len(xs) == 0 || bins <= 0 || hi <= lo {
		return 0
	}
	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, x := range xs {
		idx := int((x - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	total := float64(len(xs))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return h
}

// weightedSum accumulates sub-heuristic risks into one bounded layer score.
// Each sub-heuristic contributes weight*risk with risk in [0,100]; with
// weights summing to 1 the total stays in [0,100].
type weightedSum struct {
	score   float64
	details []string
}

// add records one sub-heuristic: the measured value is always reported, the
// flag only when the heuristic found risk.
func (ws *weightedSum) add(weight, risk float64, measured, flag string) {
	risk = clamp(risk, 0, 100)
	ws.score += weight * risk
	if measured != "" {
		ws.details = append(ws.details, measured)
	}
	if risk > 0 && flag != "" {
		ws.details = append(ws.details, flag)
	}
}

func (ws *weightedSum) total() float64 {
	return clamp(ws.score, 0, 100)
}
