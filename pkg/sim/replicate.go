package sim

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"poolsizer/pkg/mmc"
)

// Estimate summarizes one metric across replications: sample mean,
// sample standard deviation, and a 95% confidence interval on the
// mean (Student-t).
type Estimate struct {
	Mean   float64
	StdDev float64
	Lo     float64
	Hi     float64
}

// ReplicationSummary aggregates independent runs of one Config.
// Results is seed-ascending: run i used Config.Seed + i.
type ReplicationSummary struct {
	Runs int

	Wq  Estimate
	W   Estimate
	Lq  Estimate
	L   Estimate
	Rho Estimate

	Results []Result
}

// Replicator runs batches of independent simulations of the same
// configuration, differing only in seed.
type Replicator struct {
	// Parallelism caps the pool size. Zero selects GOMAXPROCS; the
	// pool never exceeds the number of runs.
	Parallelism int
	// Logger receives per-run progress. Nil means silent.
	Logger *zap.Logger
}

// RunReplications is the plain-function form of Replicator.Run.
func RunReplications(cfg Config, runs, parallelism int) (ReplicationSummary, error) {
	return Replicator{Parallelism: parallelism}.Run(cfg, runs)
}

// Run executes runs independent simulations and aggregates them.
// Replication i gets seed cfg.Seed+i, so a batch is as reproducible
// as a single run, and the output does not depend on pool scheduling.
func (r Replicator) Run(cfg Config, runs int) (ReplicationSummary, error) {
	if err := validateConfig(cfg); err != nil {
		return ReplicationSummary{}, err
	}
	if runs < 1 {
		return ReplicationSummary{}, &mmc.ParameterError{Name: "runs", Value: float64(runs), Constraint: "an integer >= 1"}
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]Result, runs)
	errs := make([]error, runs)

	parallelism := r.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism > runs {
		parallelism = runs
	}

	execute := func(i int) {
		c := cfg
		c.Seed = cfg.Seed + uint64(i)
		results[i], errs[i] = Run(c)
		log.Debug("replication finished",
			zap.Int("replication", i),
			zap.Uint64("seed", c.Seed),
			zap.Float64("wq", results[i].Wq),
			zap.Int("samples", results[i].Samples))
	}

	if parallelism <= 1 {
		for i := 0; i < runs; i++ {
			execute(i)
		}
	} else {
		pool, err := ants.NewPool(parallelism, ants.WithPreAlloc(true))
		if err != nil {
			return ReplicationSummary{}, fmt.Errorf("replication pool: %w", err)
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for i := 0; i < runs; i++ {
			wg.Add(1)
			slot := i
			task := func() {
				defer wg.Done()
				execute(slot)
			}
			if err := pool.Submit(task); err != nil {
				task()
			}
		}
		wg.Wait()
	}

	for i, err := range errs {
		if err != nil {
			return ReplicationSummary{}, fmt.Errorf("replication %d: %w", i, err)
		}
	}

	sum := ReplicationSummary{Runs: runs, Results: results}
	sum.Wq = estimate(collect(results, func(r Result) float64 { return r.Wq }))
	sum.W = estimate(collect(results, func(r Result) float64 { return r.W }))
	sum.Lq = estimate(collect(results, func(r Result) float64 { return r.Lq }))
	sum.L = estimate(collect(results, func(r Result) float64 { return r.L }))
	sum.Rho = estimate(collect(results, func(r Result) float64 { return r.Rho }))

	log.Info("replications aggregated",
		zap.Int("runs", runs),
		zap.Float64("wq_mean", sum.Wq.Mean),
		zap.Float64("wq_lo", sum.Wq.Lo),
		zap.Float64("wq_hi", sum.Wq.Hi))
	return sum, nil
}

func collect(results []Result, f func(Result) float64) []float64 {
	vals := make([]float64, len(results))
	for i, r := range results {
		vals[i] = f(r)
	}
	return vals
}

// estimate builds the summary for one metric. A single run pins the
// interval to the point estimate; two or more widen it by the
// Student-t quantile for n-1 degrees of freedom.
func estimate(vals []float64) Estimate {
	if len(vals) == 1 {
		return Estimate{Mean: vals[0], Lo: vals[0], Hi: vals[0]}
	}
	mean, sd := stat.MeanStdDev(vals, nil)
	n := float64(len(vals))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	half := t.Quantile(0.975) * sd / math.Sqrt(n)
	return Estimate{Mean: mean, StdDev: sd, Lo: mean - half, Hi: mean + half}
}
