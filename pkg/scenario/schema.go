// Package scenario parses the YAML documents that describe a sizing
// study: workload rates, the cost model, search bounds, the simulation
// block and optional named cost scenarios. A parsed Document bridges
// directly into the optimizer and sim configuration types, so the
// callers feeding this engine never restate a parameter by hand.
package scenario

import (
	"fmt"
	"time"

	"poolsizer/pkg/optimizer"
	"poolsizer/pkg/sim"
)

// Unit is the time unit the workload rates are quoted in.
type Unit string

const (
	UnitHour   Unit = "hour"
	UnitMinute Unit = "minute"
	UnitSecond Unit = "second"
)

func (u Unit) base() (time.Duration, bool) {
	switch u {
	case UnitHour:
		return time.Hour, true
	case UnitMinute:
		return time.Minute, true
	case UnitSecond:
		return time.Second, true
	default:
		return 0, false
	}
}

// Span is a stretch of simulated time. YAML accepts either a bare
// number, already in workload time units, or a duration string like
// "30m" or "1h30m" that gets converted through the workload unit.
type Span struct {
	units float64
	d     time.Duration
	isDur bool
	set   bool
}

func (s *Span) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var num float64
	if err := unmarshal(&num); err == nil {
		s.units = num
		s.set = true
		return nil
	}
	var raw string
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("span must be a number or a duration string")
	}
	p, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid span %q: %w", raw, err)
	}
	s.d = p
	s.isDur = true
	s.set = true
	return nil
}

// In returns the span converted into u. Bare numbers pass through
// unchanged, they are already in workload units.
func (s Span) In(u Unit) float64 {
	if !s.isDur {
		return s.units
	}
	base, ok := u.base()
	if !ok {
		return 0
	}
	return float64(s.d) / float64(base)
}

// IsZero reports whether the document never set the span.
func (s Span) IsZero() bool { return !s.set }

// Workload quotes the externally estimated rates.
type Workload struct {
	ArrivalRate float64 `yaml:"arrival_rate"`
	ServiceRate float64 `yaml:"service_rate"`
	TimeUnit    Unit    `yaml:"time_unit"`
}

// Costs prices servers and waiting per workload time unit.
type Costs struct {
	Server  float64 `yaml:"server"`
	Waiting float64 `yaml:"waiting"`
}

// Search bounds the optimizer range. MinServers zero lets the
// stability floor decide.
type Search struct {
	MinServers int  `yaml:"min_servers"`
	MaxServers int  `yaml:"max_servers"`
	MaxWait    Span `yaml:"max_wait"`
}

// Simulation configures the validation runs.
type Simulation struct {
	Duration     Span   `yaml:"duration"`
	Customers    int    `yaml:"customers"`
	Warmup       Span   `yaml:"warmup"`
	Seed         uint64 `yaml:"seed"`
	Replications int    `yaml:"replications"`
}

// CostScenario names an alternative cost model for comparison studies.
type CostScenario struct {
	Name  string `yaml:"name"`
	Costs Costs  `yaml:"costs"`
}

// Document is a full sizing study. Workload is mandatory; the other
// blocks are present only when the study uses them.
type Document struct {
	Workload   Workload       `yaml:"workload"`
	Costs      Costs          `yaml:"costs"`
	Search     Search         `yaml:"search"`
	Simulation Simulation     `yaml:"simulation"`
	Scenarios  []CostScenario `yaml:"scenarios"`
}

func (d *Document) applyDefaults() {
	if d.Workload.TimeUnit == "" {
		d.Workload.TimeUnit = UnitHour
	}
	if d.Simulation.Seed == 0 {
		d.Simulation.Seed = sim.DefaultSeed
	}
	if d.Simulation.Replications == 0 {
		d.Simulation.Replications = 1
	}
}

// HasSearch reports whether the document configures an optimization.
func (d *Document) HasSearch() bool { return d.Search.MaxServers != 0 }

// HasSimulation reports whether the document configures runs.
func (d *Document) HasSimulation() bool {
	return d.Simulation.Customers != 0 || !d.Simulation.Duration.IsZero()
}

// Validate rejects the first ill-formed field. Parse calls it; callers
// constructing Documents in code can call it directly.
func (d *Document) Validate() error {
	if d.Workload.ArrivalRate <= 0 {
		return &ValidationError{Field: "workload.arrival_rate", Reason: "must be a positive rate"}
	}
	if d.Workload.ServiceRate <= 0 {
		return &ValidationError{Field: "workload.service_rate", Reason: "must be a positive rate"}
	}
	if _, ok := d.Workload.TimeUnit.base(); !ok {
		return &ValidationError{Field: "workload.time_unit", Reason: `must be "hour", "minute" or "second"`}
	}
	if d.Costs.Server < 0 || d.Costs.Waiting < 0 {
		return &ValidationError{Field: "costs", Reason: "cost rates cannot be negative"}
	}
	if d.Search.MaxServers < 0 || d.Search.MinServers < 0 {
		return &ValidationError{Field: "search", Reason: "server bounds cannot be negative"}
	}
	if d.HasSearch() && d.Search.MinServers > d.Search.MaxServers {
		return &ValidationError{Field: "search.min_servers", Reason: "cannot exceed search.max_servers"}
	}
	if d.Search.MaxWait.In(d.Workload.TimeUnit) < 0 {
		return &ValidationError{Field: "search.max_wait", Reason: "cannot be negative"}
	}
	if d.Simulation.Customers < 0 {
		return &ValidationError{Field: "simulation.customers", Reason: "cannot be negative"}
	}
	if d.Simulation.Duration.In(d.Workload.TimeUnit) < 0 {
		return &ValidationError{Field: "simulation.duration", Reason: "cannot be negative"}
	}
	if d.Simulation.Warmup.In(d.Workload.TimeUnit) < 0 {
		return &ValidationError{Field: "simulation.warmup", Reason: "cannot be negative"}
	}
	if d.Simulation.Replications < 1 {
		return &ValidationError{Field: "simulation.replications", Reason: "must be at least 1"}
	}
	seen := make(map[string]struct{}, len(d.Scenarios))
	for i, sc := range d.Scenarios {
		if sc.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("scenarios[%d].name", i), Reason: "cannot be empty"}
		}
		if _, dup := seen[sc.Name]; dup {
			return &ValidationError{Field: fmt.Sprintf("scenarios[%d].name", i), Reason: fmt.Sprintf("duplicate name %q", sc.Name)}
		}
		seen[sc.Name] = struct{}{}
		if sc.Costs.Server < 0 || sc.Costs.Waiting < 0 {
			return &ValidationError{Field: fmt.Sprintf("scenarios[%d].costs", i), Reason: "cost rates cannot be negative"}
		}
	}
	return nil
}

// Rates returns lambda and mu in per-time-unit form.
func (d *Document) Rates() (lambda, mu float64) {
	return d.Workload.ArrivalRate, d.Workload.ServiceRate
}

// CostModel bridges the cost block into the optimizer's type.
func (d *Document) CostModel() optimizer.CostModel {
	return optimizer.CostModel{
		ServerCost:  d.Costs.Server,
		WaitingCost: d.Costs.Waiting,
	}
}

// SearchOptions bridges the search block. The SLA span converts into
// workload time units, matching the Wq the optimizer compares against.
func (d *Document) SearchOptions() optimizer.Options {
	return optimizer.Options{
		MinServers: d.Search.MinServers,
		MaxServers: d.Search.MaxServers,
		MaxWait:    d.Search.MaxWait.In(d.Workload.TimeUnit),
	}
}

// SimConfig bridges the simulation block.
func (d *Document) SimConfig() sim.Config {
	return sim.Config{
		Lambda:    d.Workload.ArrivalRate,
		Mu:        d.Workload.ServiceRate,
		Servers:   0, // chosen by the caller, usually the optimizer's pick
		Duration:  d.Simulation.Duration.In(d.Workload.TimeUnit),
		Customers: d.Simulation.Customers,
		Warmup:    d.Simulation.Warmup.In(d.Workload.TimeUnit),
		Seed:      d.Simulation.Seed,
	}
}

// CostScenarios bridges the named scenarios for CompareScenarios.
func (d *Document) CostScenarios() []optimizer.Scenario {
	out := make([]optimizer.Scenario, len(d.Scenarios))
	for i, sc := range d.Scenarios {
		out[i] = optimizer.Scenario{
			Name: sc.Name,
			Cost: optimizer.CostModel{ServerCost: sc.Costs.Server, WaitingCost: sc.Costs.Waiting},
		}
	}
	return out
}
