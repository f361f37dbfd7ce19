// Package optimizer searches server counts for the cheapest stable
// M/M/c configuration under an optional wait-time SLA.
//
// The objective is Z(c) = c*Cs + Lq(c)*Cw. The cost curve is not
// generally unimodal near the stability boundary, so the search
// evaluates every integer candidate in the bounded range instead of
// bisecting. Candidates are independent pure evaluations and run on a
// shared goroutine pool; the audit list they produce is ordered by
// server count no matter how the pool schedules them.
package optimizer

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"poolsizer/pkg/mmc"
)

// CostModel prices a configuration: ServerCost per server per time
// unit, WaitingCost per waiting customer per time unit. Passed by
// value; the search never mutates it.
type CostModel struct {
	ServerCost  float64
	WaitingCost float64
}

// Reason explains why a candidate was rejected.
type Reason int

const (
	// ReasonNone marks feasible candidates.
	ReasonNone Reason = iota
	// ReasonUnstable marks candidates with rho >= 1.
	ReasonUnstable
	// ReasonSLA marks stable candidates whose Wq exceeds the limit.
	ReasonSLA
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "feasible"
	case ReasonUnstable:
		return "unstable"
	case ReasonSLA:
		return "sla"
	default:
		return "unknown"
	}
}

// Evaluation is one row of the search audit: a candidate server count
// with its cost breakdown and feasibility verdict. Infeasible rows
// keep their place in the list so downstream tooling can plot the
// whole cost curve. Cost fields and Metrics are zero for unstable
// candidates, where the steady state does not exist.
type Evaluation struct {
	Servers     int
	Cost        float64 // total objective Z
	ServerCost  float64 // c * CostModel.ServerCost
	WaitingCost float64 // Lq * CostModel.WaitingCost
	Metrics     mmc.Metrics
	Feasible    bool
	Reason      Reason
}

// Result reports the optimum plus the full c-ascending audit list.
// When Feasible is false, Servers holds the highest candidate examined
// and Diagnostic explains what blocked the range.
type Result struct {
	Servers     int
	Cost        float64
	ServerCost  float64
	WaitingCost float64
	Metrics     mmc.Metrics
	Feasible    bool
	Diagnostic  string
	Evaluations []Evaluation
}

// Options bounds and tunes a search.
type Options struct {
	// MinServers is the low end of the range. Zero selects
	// mmc.MinStableServers(lambda, mu).
	MinServers int
	// MaxServers is the search ceiling. Required.
	MaxServers int
	// MaxWait, when positive, is the SLA ceiling on mean queueing
	// wait Wq. Zero disables the filter.
	MaxWait float64
	// Parallelism caps the evaluation pool size. Zero selects
	// GOMAXPROCS. The pool never exceeds the candidate count.
	Parallelism int
	// Logger receives search progress. Nil means silent.
	Logger *zap.Logger
}

var ErrSearchBoundsExceeded = fmt.Errorf("search bounds exceeded")

// BoundsError reports a range with no feasible candidate, with counts
// of what blocked each rejected one.
type BoundsError struct {
	MinServers int
	MaxServers int
	Unstable   int
	SLABlocked int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("no feasible server count in [%d,%d]: %d unstable, %d sla-blocked",
		e.MinServers, e.MaxServers, e.Unstable, e.SLABlocked)
}

func (e *BoundsError) Unwrap() error { return ErrSearchBoundsExceeded }

// Optimize evaluates every server count in the configured range and
// returns the feasible candidate with minimal Z, ties going to the
// smaller count. A single unstable or SLA-violating candidate never
// aborts the search; it is recorded infeasible and the scan moves on.
// When nothing in range is feasible the returned error matches
// ErrSearchBoundsExceeded and the Result still carries the full audit
// list and a diagnostic.
func Optimize(lambda, mu float64, cost CostModel, opts Options) (Result, error) {
	if err := validateRequest(lambda, mu, cost, opts); err != nil {
		return Result{}, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cMin := opts.MinServers
	if cMin == 0 {
		cMin = mmc.MinStableServers(lambda, mu)
	}
	cMax := opts.MaxServers

	if cMin > cMax {
		// Only reachable with the defaulted floor: stability alone
		// needs more servers than the caller allows.
		res := Result{
			Servers:     cMax,
			Diagnostic:  fmt.Sprintf("stability requires at least %d servers, above the MaxServers=%d ceiling", cMin, cMax),
			Evaluations: []Evaluation{},
		}
		log.Warn("search range empty",
			zap.Int("min_servers", cMin),
			zap.Int("max_servers", cMax))
		return res, &BoundsError{MinServers: cMin, MaxServers: cMax}
	}

	evals := make([]Evaluation, cMax-cMin+1)
	parallelism := poolSize(opts.Parallelism, len(evals))

	if parallelism <= 1 {
		for i := range evals {
			evals[i] = evaluate(lambda, mu, cost, cMin+i, opts.MaxWait)
		}
	} else {
		pool, err := ants.NewPool(parallelism, ants.WithPreAlloc(true))
		if err != nil {
			return Result{}, fmt.Errorf("evaluation pool: %w", err)
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for i := range evals {
			wg.Add(1)
			slot := i
			task := func() {
				defer wg.Done()
				evals[slot] = evaluate(lambda, mu, cost, cMin+slot, opts.MaxWait)
			}
			if err := pool.Submit(task); err != nil {
				// Pool refused the task; evaluate on the spot.
				task()
			}
		}
		wg.Wait()
	}

	for i := range evals {
		e := &evals[i]
		log.Debug("candidate evaluated",
			zap.Int("servers", e.Servers),
			zap.Float64("cost", e.Cost),
			zap.Bool("feasible", e.Feasible),
			zap.String("reason", e.Reason.String()))
	}

	best := selectBest(evals)
	if best < 0 {
		res := Result{
			Servers:     cMax,
			Diagnostic:  diagnose(evals, opts.MaxWait),
			Evaluations: evals,
		}
		be := &BoundsError{MinServers: cMin, MaxServers: cMax}
		for _, e := range evals {
			switch e.Reason {
			case ReasonUnstable:
				be.Unstable++
			case ReasonSLA:
				be.SLABlocked++
			}
		}
		log.Warn("no feasible server count",
			zap.Int("min_servers", cMin),
			zap.Int("max_servers", cMax),
			zap.String("diagnostic", res.Diagnostic))
		return res, be
	}

	chosen := evals[best]
	res := Result{
		Servers:     chosen.Servers,
		Cost:        chosen.Cost,
		ServerCost:  chosen.ServerCost,
		WaitingCost: chosen.WaitingCost,
		Metrics:     chosen.Metrics,
		Feasible:    true,
		Evaluations: evals,
	}
	log.Info("search complete",
		zap.Int("servers", chosen.Servers),
		zap.Float64("cost", chosen.Cost),
		zap.Float64("wq", chosen.Metrics.Wq),
		zap.Int("candidates", len(evals)))
	return res, nil
}

func validateRequest(lambda, mu float64, cost CostModel, opts Options) error {
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return &mmc.ParameterError{Name: "lambda", Value: lambda, Constraint: "a positive finite rate"}
	}
	if mu <= 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return &mmc.ParameterError{Name: "mu", Value: mu, Constraint: "a positive finite rate"}
	}
	if cost.ServerCost < 0 {
		return &mmc.ParameterError{Name: "serverCost", Value: cost.ServerCost, Constraint: "non-negative"}
	}
	if cost.WaitingCost < 0 {
		return &mmc.ParameterError{Name: "waitingCost", Value: cost.WaitingCost, Constraint: "non-negative"}
	}
	if opts.MaxServers < 1 {
		return &mmc.ParameterError{Name: "maxServers", Value: float64(opts.MaxServers), Constraint: "an integer >= 1"}
	}
	if opts.MinServers < 0 {
		return &mmc.ParameterError{Name: "minServers", Value: float64(opts.MinServers), Constraint: "non-negative (0 selects the stability floor)"}
	}
	if opts.MinServers > 0 && opts.MinServers > opts.MaxServers {
		return &mmc.ParameterError{Name: "minServers", Value: float64(opts.MinServers), Constraint: fmt.Sprintf("at most maxServers=%d", opts.MaxServers)}
	}
	if opts.MaxWait < 0 || math.IsNaN(opts.MaxWait) {
		return &mmc.ParameterError{Name: "maxWait", Value: opts.MaxWait, Constraint: "non-negative (0 disables the SLA)"}
	}
	return nil
}

func poolSize(requested, candidates int) int {
	p := requested
	if p <= 0 {
		p = runtime.GOMAXPROCS(0)
	}
	if p > candidates {
		p = candidates
	}
	if p < 1 {
		p = 1
	}
	return p
}

// evaluate prices a single candidate. Instability is a verdict here,
// never an error: the search owns that distinction.
func evaluate(lambda, mu float64, cost CostModel, c int, maxWait float64) Evaluation {
	m, err := mmc.Compute(lambda, mu, c)
	if err != nil {
		// Only instability can surface here; parameters were
		// validated before the fan-out.
		return Evaluation{Servers: c, Reason: ReasonUnstable}
	}
	e := Evaluation{
		Servers:     c,
		ServerCost:  float64(c) * cost.ServerCost,
		WaitingCost: m.Lq * cost.WaitingCost,
		Metrics:     m,
		Feasible:    true,
		Reason:      ReasonNone,
	}
	e.Cost = e.ServerCost + e.WaitingCost
	if maxWait > 0 && m.Wq > maxWait {
		e.Feasible = false
		e.Reason = ReasonSLA
	}
	return e
}

// selectBest returns the index of the feasible evaluation with minimal
// cost, or -1. The scan runs in ascending server count and replaces
// the incumbent only on strictly lower cost, so equal-cost ties settle
// on the smaller count.
func selectBest(evals []Evaluation) int {
	best := -1
	for i := range evals {
		if !evals[i].Feasible {
			continue
		}
		if best < 0 || evals[i].Cost < evals[best].Cost {
			best = i
		}
	}
	return best
}

// diagnose explains an infeasible range: whether stability was ever
// reached, and if it was, how close the best stable candidate came to
// the SLA.
func diagnose(evals []Evaluation, maxWait float64) string {
	firstStable := -1
	bestWq := math.Inf(1)
	bestWqAt := 0
	for i := range evals {
		if evals[i].Reason == ReasonUnstable {
			continue
		}
		if firstStable < 0 {
			firstStable = i
		}
		if evals[i].Metrics.Wq < bestWq {
			bestWq = evals[i].Metrics.Wq
			bestWqAt = evals[i].Servers
		}
	}
	if firstStable < 0 {
		return fmt.Sprintf("all %d candidates unstable (rho >= 1); raise MaxServers", len(evals))
	}
	return fmt.Sprintf("stable from c=%d but no candidate meets MaxWait=%g; best Wq=%g at c=%d",
		evals[firstStable].Servers, maxWait, bestWq, bestWqAt)
}
