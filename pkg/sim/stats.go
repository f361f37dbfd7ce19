package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"poolsizer/pkg/mmc"
)

// stats accumulates warm-up-aware statistics for one run: per-customer
// wait samples and time-weighted state integrals. Customers arriving
// at or after the warm-up instant are sampled; integrals cover only
// the window from warm-up to the end of the run.
type stats struct {
	warmup float64
	prev   float64

	areaQ    float64 // integral of queue length
	areaSys  float64 // integral of number in system
	areaBusy float64 // integral of busy servers

	waits     []float64
	sumSystem float64
	samples   int

	arrivalsSeen int // arrivals inside the window, for empirical lambda
}

func newStats(warmup float64) *stats {
	return &stats{warmup: warmup}
}

// advance integrates the state that held over [prev, to).
func (s *stats) advance(to float64, qlen, busy int) {
	from := s.prev
	s.prev = to
	if to <= s.warmup {
		return
	}
	if from < s.warmup {
		from = s.warmup
	}
	dt := to - from
	s.areaQ += dt * float64(qlen)
	s.areaBusy += dt * float64(busy)
	s.areaSys += dt * float64(qlen+busy)
}

func (s *stats) countArrival(at float64) {
	if at >= s.warmup {
		s.arrivalsSeen++
	}
}

// sampleStart records a customer entering service. The wait is final
// at this instant and the system time follows from the drawn service.
func (s *stats) sampleStart(arrival, start, svc float64) {
	if arrival < s.warmup {
		return
	}
	s.waits = append(s.waits, start-arrival)
	s.sumSystem += (start - arrival) + svc
	s.samples++
}

// finalize folds the accumulators into the result. end is the instant
// the statistics window closed.
func (s *stats) finalize(end float64, servers int, res *Result) {
	if window := end - s.warmup; window > 0 {
		res.Lq = s.areaQ / window
		res.L = s.areaSys / window
		res.Rho = s.areaBusy / (float64(servers) * window)
		res.ArrivalRate = float64(s.arrivalsSeen) / window
	}
	if s.samples == 0 {
		return
	}
	res.Wq = stat.Mean(s.waits, nil)
	res.W = s.sumSystem / float64(s.samples)

	sorted := append([]float64(nil), s.waits...)
	sort.Float64s(sorted)
	res.WaitP50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	res.WaitP95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	res.WaitP99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
}

// Divergence holds the relative error of empirical metrics against
// their analytical steady-state counterparts.
type Divergence struct {
	Wq  float64
	Lq  float64
	L   float64
	Rho float64
}

// Max returns the largest component.
func (d Divergence) Max() float64 {
	return math.Max(math.Max(d.Wq, d.Lq), math.Max(d.L, d.Rho))
}

// Within reports whether every component is at or below tol.
func (d Divergence) Within(tol float64) bool { return d.Max() <= tol }

// RelativeError compares the run against analytical metrics, relative
// to the analytical values.
func (r Result) RelativeError(m mmc.Metrics) Divergence {
	return Divergence{
		Wq:  relTo(r.Wq, m.Wq),
		Lq:  relTo(r.Lq, m.Lq),
		L:   relTo(r.L, m.L),
		Rho: relTo(r.Rho, m.Rho),
	}
}

func relTo(got, want float64) float64 {
	if want == 0 {
		if got == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(got-want) / math.Abs(want)
}
