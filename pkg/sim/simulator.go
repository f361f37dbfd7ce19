package sim

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"poolsizer/pkg/mmc"
)

// DefaultSeed keeps ad-hoc runs reproducible out of the box.
const DefaultSeed = 42

// Config bounds one simulation run. Rates share the time unit of the
// analytical model; Duration and Warmup are expressed in that unit.
type Config struct {
	Lambda  float64 // arrival rate
	Mu      float64 // per-server service rate
	Servers int     // c

	// Duration stops the run at a simulated-time horizon. Customers
	// stops it once that many post-warm-up waits have been sampled.
	// At least one must be positive; with both set, whichever trips
	// first ends the run.
	Duration  float64
	Customers int

	// Warmup excludes the transient prefix: customers arriving before
	// it contribute no samples, and time averages start at it.
	Warmup float64

	Seed uint64

	// CaptureTrace keeps a per-customer record of arrival, service
	// start and completion. Costs memory proportional to arrivals.
	CaptureTrace bool
}

// DefaultConfig returns the conventional validation setup: the
// reference workload at five servers, a hundred thousand sampled
// customers after a ten-hour warm-up.
func DefaultConfig() Config {
	return Config{
		Lambda:    120,
		Mu:        30,
		Servers:   5,
		Customers: 100_000,
		Warmup:    10,
		Seed:      DefaultSeed,
	}
}

// Customer is one traced arrival. Times are absolute simulated time.
// Start and Completion hold the scheduled service window once service
// begins; a customer still queued when the run ended keeps Server -1
// and zero times.
type Customer struct {
	ID         int
	Arrival    float64
	Start      float64
	Completion float64
	Server     int
}

// Wait returns the time the customer spent queued.
func (c Customer) Wait() float64 { return c.Start - c.Arrival }

// Result is the frozen outcome of one run. It is never mutated after
// Run returns; comparisons against analytical metrics are read-only.
type Result struct {
	RunID  string
	Config Config

	Arrivals int     // customers admitted before the horizon
	Served   int     // customers whose service completed
	Samples  int     // post-warm-up waits behind Wq, W and the percentiles
	End      float64 // simulated time the statistics window closed

	Wq          float64 // mean wait in queue, per sampled customer
	W           float64 // mean time in system, per sampled customer
	Lq          float64 // time-averaged queue length
	L           float64 // time-averaged number in system
	Rho         float64 // time-averaged per-server utilization
	ArrivalRate float64 // empirical lambda over the window

	WaitP50 float64
	WaitP95 float64
	WaitP99 float64

	Trace []Customer // nil unless Config.CaptureTrace
}

func validateConfig(cfg Config) error {
	if cfg.Lambda <= 0 || math.IsNaN(cfg.Lambda) || math.IsInf(cfg.Lambda, 0) {
		return &mmc.ParameterError{Name: "lambda", Value: cfg.Lambda, Constraint: "a positive finite rate"}
	}
	if cfg.Mu <= 0 || math.IsNaN(cfg.Mu) || math.IsInf(cfg.Mu, 0) {
		return &mmc.ParameterError{Name: "mu", Value: cfg.Mu, Constraint: "a positive finite rate"}
	}
	if cfg.Servers < 1 {
		return &mmc.ParameterError{Name: "servers", Value: float64(cfg.Servers), Constraint: "an integer >= 1"}
	}
	if cfg.Duration < 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return &mmc.ParameterError{Name: "duration", Value: cfg.Duration, Constraint: "non-negative and finite"}
	}
	if cfg.Customers < 0 {
		return &mmc.ParameterError{Name: "customers", Value: float64(cfg.Customers), Constraint: "non-negative"}
	}
	if cfg.Duration == 0 && cfg.Customers == 0 {
		return &mmc.ParameterError{Name: "duration", Value: 0, Constraint: "positive, or Customers set: the run needs a stopping rule"}
	}
	if cfg.Warmup < 0 || math.IsNaN(cfg.Warmup) || math.IsInf(cfg.Warmup, 0) {
		return &mmc.ParameterError{Name: "warmup", Value: cfg.Warmup, Constraint: "non-negative and finite"}
	}
	if cfg.Duration > 0 && cfg.Warmup >= cfg.Duration {
		return &mmc.ParameterError{Name: "warmup", Value: cfg.Warmup, Constraint: "below the duration horizon"}
	}
	return nil
}

// Run executes one simulation to completion and freezes its statistics
// into a Result.
//
// All validation happens before the first event; nothing fails
// mid-run. Unstable configurations (rho >= 1) are legal here, unlike
// in the analytical model: a bounded run observes the transient
// backlog growth, which is sometimes exactly what a caller wants to
// see. The run is internally single-threaded because event order is
// causal; run replications in parallel instead (RunReplications).
func Run(cfg Config) (Result, error) {
	if err := validateConfig(cfg); err != nil {
		return Result{}, err
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	interarrival := distuv.Exponential{Rate: cfg.Lambda, Src: src}
	service := distuv.Exponential{Rate: cfg.Mu, Src: src}

	cal := &calendar{}
	queue := newFifo()

	// Idle stack is seeded in reverse so server 0 is handed out first.
	idle := make([]int, 0, cfg.Servers)
	for s := cfg.Servers - 1; s >= 0; s-- {
		idle = append(idle, s)
	}
	inService := make([]int, cfg.Servers)

	arrivalAt := make([]float64, 0, 1024)
	var trace []Customer
	if cfg.CaptureTrace {
		trace = make([]Customer, 0, 1024)
	}

	acc := newStats(cfg.Warmup)
	served := 0
	done := false

	// startService seats a customer, draws its service time and books
	// the completion. Wait statistics sample at this moment: the wait
	// is known and the system time follows from the drawn service.
	startService := func(id, server int, now float64) {
		svc := service.Rand()
		inService[server] = id
		cal.schedule(now+svc, kindCompletion, server)
		acc.sampleStart(arrivalAt[id], now, svc)
		if cfg.CaptureTrace {
			trace[id].Start = now
			trace[id].Server = server
			trace[id].Completion = now + svc
		}
		if cfg.Customers > 0 && acc.samples >= cfg.Customers {
			done = true
		}
	}

	cal.schedule(interarrival.Rand(), kindArrival, -1)

	end := 0.0
	for cal.Len() > 0 {
		if cfg.Duration > 0 && cal.peek().at > cfg.Duration {
			end = cfg.Duration
			acc.advance(end, queue.len(), cfg.Servers-len(idle))
			break
		}
		ev := cal.next()

		// Integrate the state that held up to this instant, then
		// apply the event.
		acc.advance(ev.at, queue.len(), cfg.Servers-len(idle))

		switch ev.kind {
		case kindArrival:
			id := len(arrivalAt)
			arrivalAt = append(arrivalAt, ev.at)
			if cfg.CaptureTrace {
				trace = append(trace, Customer{ID: id, Arrival: ev.at, Server: -1})
			}
			acc.countArrival(ev.at)
			cal.schedule(ev.at+interarrival.Rand(), kindArrival, -1)

			if len(idle) > 0 {
				server := idle[len(idle)-1]
				idle = idle[:len(idle)-1]
				startService(id, server, ev.at)
			} else {
				queue.push(id)
			}

		case kindCompletion:
			served++
			if queue.len() > 0 {
				startService(queue.pop(), ev.server, ev.at)
			} else {
				idle = append(idle, ev.server)
			}
		}

		if done {
			end = ev.at
			break
		}
	}

	res := Result{
		RunID:    uuid.NewString(),
		Config:   cfg,
		Arrivals: len(arrivalAt),
		Served:   served,
		Samples:  acc.samples,
		End:      end,
		Trace:    trace,
	}
	acc.finalize(end, cfg.Servers, &res)
	return res, nil
}
