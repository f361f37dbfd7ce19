package sim

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"poolsizer/pkg/mmc"
)

func TestCalendarOrdering(t *testing.T) {
	cal := &calendar{}
	cal.schedule(2.0, kindCompletion, 1)
	cal.schedule(2.0, kindArrival, -1)
	cal.schedule(1.0, kindCompletion, 0)
	cal.schedule(2.0, kindArrival, -1)

	first := cal.next()
	if first.at != 1.0 || first.kind != kindCompletion {
		t.Fatalf("first event = %+v, want the t=1.0 completion", first)
	}

	// At t=2.0 both arrivals outrank the completion even though the
	// completion was filed first; between themselves they keep filing
	// order.
	a1 := cal.next()
	a2 := cal.next()
	last := cal.next()
	if a1.kind != kindArrival || a2.kind != kindArrival {
		t.Fatalf("arrivals must precede the completion at an equal timestamp, got %v then %v", a1.kind, a2.kind)
	}
	if a1.seq >= a2.seq {
		t.Fatalf("equal-time arrivals out of filing order: seq %d then %d", a1.seq, a2.seq)
	}
	if last.kind != kindCompletion || last.at != 2.0 {
		t.Fatalf("last event = %+v, want the t=2.0 completion", last)
	}
	if cal.Len() != 0 {
		t.Fatalf("calendar not drained, %d left", cal.Len())
	}
}

func TestFifoOrderAndGrowth(t *testing.T) {
	f := newFifo()
	// Interleave to force wraparound, then overflow the initial ring.
	for i := 0; i < 48; i++ {
		f.push(i)
	}
	for i := 0; i < 40; i++ {
		if got := f.pop(); got != i {
			t.Fatalf("pop = %d, want %d", got, i)
		}
	}
	for i := 48; i < 300; i++ {
		f.push(i)
	}
	if f.len() != 260 {
		t.Fatalf("len = %d, want 260", f.len())
	}
	for i := 40; i < 300; i++ {
		if got := f.pop(); got != i {
			t.Fatalf("pop after growth = %d, want %d", got, i)
		}
	}
	if f.len() != 0 {
		t.Fatalf("len = %d after draining, want 0", f.len())
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := Config{
		Lambda:       120,
		Mu:           30,
		Servers:      5,
		Customers:    2000,
		Warmup:       1,
		Seed:         7,
		CaptureTrace: true,
	}
	a, err := Run(cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Run(cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Run identity is the only field allowed to differ.
	if a.RunID == b.RunID {
		t.Errorf("distinct runs share RunID %q", a.RunID)
	}
	a.RunID, b.RunID = "", ""
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different results:\n%+v\n%+v", a, b)
	}
}

func TestRunSeedChangesOutcome(t *testing.T) {
	cfg := Config{Lambda: 120, Mu: 30, Servers: 5, Customers: 2000, Seed: 7}
	a, err := Run(cfg)
	if err != nil {
		t.Fatalf("seed 7: %v", err)
	}
	cfg.Seed = 8
	b, err := Run(cfg)
	if err != nil {
		t.Fatalf("seed 8: %v", err)
	}
	if a.Wq == b.Wq && a.End == b.End {
		t.Fatalf("different seeds reproduced the identical run (Wq=%v, End=%v)", a.Wq, a.End)
	}
}

func TestRunFIFODiscipline(t *testing.T) {
	res, err := Run(Config{
		Lambda:       120,
		Mu:           30,
		Servers:      5,
		Customers:    5000,
		Seed:         11,
		CaptureTrace: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trace) == 0 {
		t.Fatal("trace empty despite CaptureTrace")
	}
	// Arrival order is ID order; service starts must never overtake.
	maxStart := math.Inf(-1)
	started := 0
	for _, c := range res.Trace {
		if c.Server < 0 {
			continue
		}
		started++
		if c.Start < maxStart {
			t.Fatalf("customer %d started at %v before an earlier arrival that started at %v", c.ID, c.Start, maxStart)
		}
		maxStart = c.Start
		if c.Start < c.Arrival {
			t.Fatalf("customer %d starts before arriving: %+v", c.ID, c)
		}
		if c.Completion < c.Start {
			t.Fatalf("customer %d completes before starting: %+v", c.ID, c)
		}
	}
	if started == 0 {
		t.Fatal("no customer ever reached service")
	}
}

func TestRunWarmupExclusion(t *testing.T) {
	base := Config{
		Lambda:       120,
		Mu:           30,
		Servers:      5,
		Duration:     50,
		Seed:         3,
		CaptureTrace: true,
	}
	cold, err := Run(base)
	if err != nil {
		t.Fatalf("warmup 0: %v", err)
	}
	warm := base
	warm.Warmup = 5
	hot, err := Run(warm)
	if err != nil {
		t.Fatalf("warmup 5: %v", err)
	}

	// Warm-up touches statistics only, never dynamics.
	if cold.Arrivals != hot.Arrivals || cold.Served != hot.Served {
		t.Fatalf("warm-up changed the event stream: %d/%d vs %d/%d arrivals/served",
			cold.Arrivals, cold.Served, hot.Arrivals, hot.Served)
	}
	if hot.Samples >= cold.Samples {
		t.Fatalf("warm-up removed no samples: %d vs %d", hot.Samples, cold.Samples)
	}

	want := 0
	for _, c := range hot.Trace {
		if c.Server >= 0 && c.Arrival >= warm.Warmup {
			want++
		}
	}
	if hot.Samples != want {
		t.Fatalf("samples = %d, want %d (customers arriving after warm-up that reached service)", hot.Samples, want)
	}
}

func TestRunEagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero lambda", Config{Mu: 30, Servers: 5, Duration: 10}},
		{"negative mu", Config{Lambda: 120, Mu: -1, Servers: 5, Duration: 10}},
		{"zero servers", Config{Lambda: 120, Mu: 30, Duration: 10}},
		{"no stopping rule", Config{Lambda: 120, Mu: 30, Servers: 5}},
		{"negative duration", Config{Lambda: 120, Mu: 30, Servers: 5, Duration: -1}},
		{"negative customers", Config{Lambda: 120, Mu: 30, Servers: 5, Customers: -5}},
		{"negative warmup", Config{Lambda: 120, Mu: 30, Servers: 5, Duration: 10, Warmup: -2}},
		{"warmup at horizon", Config{Lambda: 120, Mu: 30, Servers: 5, Duration: 10, Warmup: 10}},
	}
	for _, tc := range cases {
		_, err := Run(tc.cfg)
		if err == nil {
			t.Fatalf("%s: want error, got nil", tc.name)
		}
		if !errors.Is(err, mmc.ErrInvalidParameter) {
			t.Fatalf("%s: error %v is not ErrInvalidParameter", tc.name, err)
		}
		var pe *mmc.ParameterError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: error %v carries no parameter detail", tc.name, err)
		}
	}
}

func TestRunCustomerModeStopsExactly(t *testing.T) {
	res, err := Run(Config{Lambda: 120, Mu: 30, Servers: 5, Customers: 1234, Seed: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Samples != 1234 {
		t.Fatalf("samples = %d, want exactly 1234", res.Samples)
	}
	if res.End <= 0 {
		t.Fatalf("End = %v, want positive", res.End)
	}
}

func TestRunDurationMode(t *testing.T) {
	res, err := Run(Config{Lambda: 30, Mu: 10, Servers: 5, Duration: 100, Seed: 9})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.End != 100 {
		t.Fatalf("End = %v, want the 100 horizon", res.End)
	}
	if res.Arrivals == 0 || res.Served > res.Arrivals {
		t.Fatalf("implausible counts: %d arrivals, %d served", res.Arrivals, res.Served)
	}
	if res.Rho <= 0 || res.Rho >= 1 {
		t.Fatalf("Rho = %v, want inside (0,1) for a stable run", res.Rho)
	}
	if relTo(res.ArrivalRate, 30) > 0.2 {
		t.Fatalf("empirical arrival rate %v too far from 30", res.ArrivalRate)
	}
}

func TestRunUnstableConfigurationIsLegal(t *testing.T) {
	// rho = 50/30: the analytical model refuses this, the simulator
	// observes the backlog growing instead.
	res, err := Run(Config{Lambda: 50, Mu: 10, Servers: 3, Duration: 20, Seed: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Lq < 10 {
		t.Fatalf("Lq = %v, expected a large backlog at rho>1", res.Lq)
	}
	if res.Rho < 0.9 {
		t.Fatalf("Rho = %v, servers should be nearly saturated", res.Rho)
	}
}

func TestRunLittleConsistency(t *testing.T) {
	res, err := Run(Config{Lambda: 120, Mu: 30, Servers: 5, Customers: 50_000, Warmup: 10, Seed: 21})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := relTo(res.Lq, res.ArrivalRate*res.Wq); d > 0.1 {
		t.Errorf("empirical Lq=%v vs lambda*Wq=%v, off by %v", res.Lq, res.ArrivalRate*res.Wq, d)
	}
	if d := relTo(res.L, res.ArrivalRate*res.W); d > 0.1 {
		t.Errorf("empirical L=%v vs lambda*W=%v, off by %v", res.L, res.ArrivalRate*res.W, d)
	}
}

func TestRunConvergesToAnalytical(t *testing.T) {
	if testing.Short() {
		t.Skip("convergence run is long")
	}
	cfg := DefaultConfig()
	cfg.Customers = 120_000

	res, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, err := mmc.Compute(cfg.Lambda, cfg.Mu, cfg.Servers)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	d := res.RelativeError(m)
	if d.Wq > 0.10 {
		t.Errorf("empirical Wq=%v vs analytical %v: off by %.1f%%", res.Wq, m.Wq, d.Wq*100)
	}
	if d.Rho > 0.05 {
		t.Errorf("empirical Rho=%v vs analytical %v: off by %.1f%%", res.Rho, m.Rho, d.Rho*100)
	}
	if d.L > 0.10 {
		t.Errorf("empirical L=%v vs analytical %v: off by %.1f%%", res.L, m.L, d.L*100)
	}
	if res.WaitP50 > res.WaitP95 || res.WaitP95 > res.WaitP99 {
		t.Errorf("percentiles out of order: p50=%v p95=%v p99=%v", res.WaitP50, res.WaitP95, res.WaitP99)
	}
}

func TestRelativeError(t *testing.T) {
	r := Result{Wq: 0.022, Lq: 2.0, L: 6.0, Rho: 0.82}
	m := mmc.Metrics{Wq: 0.02, Lq: 2.0, L: 6.25, Rho: 0.8}
	d := r.RelativeError(m)
	if math.Abs(d.Wq-0.1) > 1e-12 {
		t.Errorf("Wq divergence = %v, want 0.1", d.Wq)
	}
	if d.Lq != 0 {
		t.Errorf("Lq divergence = %v, want 0", d.Lq)
	}
	if d.Within(0.05) {
		t.Error("Within(0.05) true despite a 10%% miss")
	}
	if !d.Within(0.1) {
		t.Error("Within(0.1) false despite all components at or below 10%%")
	}
}

func BenchmarkCalendar(b *testing.B) {
	cal := &calendar{}
	for i := 0; i < 1024; i++ {
		cal.schedule(float64(i), kindArrival, -1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev := cal.next()
		cal.schedule(ev.at+1024, kindCompletion, 0)
	}
}

func BenchmarkRunSmall(b *testing.B) {
	cfg := Config{Lambda: 120, Mu: 30, Servers: 5, Customers: 5_000, Seed: 42}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Run(cfg); err != nil {
			b.Fatalf("Run: %v", err)
		}
	}
}
