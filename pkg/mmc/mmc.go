// Package mmc computes steady-state metrics for M/M/c queues: Poisson
// arrivals at rate lambda, exponential service at per-server rate mu,
// c identical servers drawing from one shared FIFO queue.
//
// Everything here is a pure function of its inputs: identical inputs
// produce bit-identical outputs.
package mmc

import (
	"fmt"
	"math"
)

// littleTol bounds the relative drift allowed between the directly
// computed metrics and their Little's Law counterparts.
const littleTol = 1e-9

// Metrics holds the steady-state quantities of a stable M/M/c queue.
// Time-valued fields (Wq, W) are in the unit implied by the rates: a
// lambda in requests per hour yields waits in hours.
type Metrics struct {
	Lambda  float64 // arrival rate
	Mu      float64 // per-server service rate
	Servers int     // c

	Rho   float64 // utilization lambda/(c*mu)
	P0    float64 // probability the system is empty
	Pwait float64 // Erlang-C probability an arrival must wait
	Lq    float64 // mean number waiting in queue
	L     float64 // mean number in system
	Wq    float64 // mean wait in queue
	W     float64 // mean time in system
}

// String renders a single-line summary, handy in logs and examples.
func (m Metrics) String() string {
	return fmt.Sprintf("M/M/%d lambda=%g mu=%g rho=%.4f Pwait=%.4f Lq=%.4f Wq=%.6f L=%.4f W=%.6f",
		m.Servers, m.Lambda, m.Mu, m.Rho, m.Pwait, m.Lq, m.Wq, m.L, m.W)
}

// OfferedLoad returns a = lambda/mu, the offered load in Erlangs.
func OfferedLoad(lambda, mu float64) float64 { return lambda / mu }

// MinStableServers returns the smallest server count the sizing rule
// starts from: ceil(lambda/mu)+1, one server above the offered load.
func MinStableServers(lambda, mu float64) int {
	c := int(math.Ceil(lambda/mu)) + 1
	if c < 1 {
		c = 1
	}
	return c
}

func validate(lambda, mu float64, c int) error {
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return &ParameterError{Name: "lambda", Value: lambda, Constraint: "a positive finite rate"}
	}
	if mu <= 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return &ParameterError{Name: "mu", Value: mu, Constraint: "a positive finite rate"}
	}
	if c < 1 {
		return &ParameterError{Name: "c", Value: float64(c), Constraint: "an integer >= 1"}
	}
	return nil
}

// ErlangC returns the probability that an arriving customer finds all
// c servers busy and must wait.
//
// It is built on the Erlang-B recurrence
//
//	B(0) = 1;  B(n) = a*B(n-1) / (n + a*B(n-1)),  a = lambda/mu
//
// followed by Pwait = B(c) / (1 - rho + rho*B(c)). Every intermediate
// value stays inside [0,1], so the computation cannot overflow no
// matter how large c grows.
func ErlangC(lambda, mu float64, c int) (float64, error) {
	if err := validate(lambda, mu, c); err != nil {
		return 0, err
	}
	rho := lambda / (float64(c) * mu)
	if rho >= 1 {
		return 0, &UnstableQueueError{Lambda: lambda, Mu: mu, Servers: c, Rho: rho}
	}
	return erlangC(lambda/mu, rho, c), nil
}

// erlangC runs the recurrence for pre-validated inputs.
func erlangC(a, rho float64, c int) float64 {
	b := 1.0
	for n := 1; n <= c; n++ {
		b = a * b / (float64(n) + a*b)
	}
	return b / (1 - rho + rho*b)
}

// p0 returns the empty-system probability. The normalizer
// sum_{k<c} a^k/k! + a^c/(c!(1-rho)) is accumulated in log space via
// Lgamma, so large c and large a stay inside float64 range just like
// the Pwait recurrence does.
func p0(a, rho float64, c int) float64 {
	logs := make([]float64, 0, c+1)
	logA := math.Log(a)
	for k := 0; k < c; k++ {
		lg, _ := math.Lgamma(float64(k + 1))
		logs = append(logs, float64(k)*logA-lg)
	}
	lg, _ := math.Lgamma(float64(c + 1))
	logs = append(logs, float64(c)*logA-lg-math.Log(1-rho))

	max := logs[0]
	for _, l := range logs[1:] {
		if l > max {
			max = l
		}
	}
	sum := 0.0
	for _, l := range logs {
		sum += math.Exp(l - max)
	}
	return math.Exp(-(max + math.Log(sum)))
}

// Compute evaluates the full metric set for one configuration.
//
// rho >= 1 yields an UnstableQueueError rather than infinities: no
// steady state exists there, so no metric is defined. Malformed inputs
// yield a ParameterError. The two classes stay distinguishable through
// errors.Is so searches can treat instability as "infeasible, keep
// going" while still surfacing caller bugs.
func Compute(lambda, mu float64, c int) (Metrics, error) {
	if err := validate(lambda, mu, c); err != nil {
		return Metrics{}, err
	}
	rho := lambda / (float64(c) * mu)
	if rho >= 1 {
		return Metrics{}, &UnstableQueueError{Lambda: lambda, Mu: mu, Servers: c, Rho: rho}
	}

	a := lambda / mu
	pw := erlangC(a, rho, c)
	m := Metrics{
		Lambda:  lambda,
		Mu:      mu,
		Servers: c,
		Rho:     rho,
		P0:      p0(a, rho, c),
		Pwait:   pw,
	}
	m.Lq = pw * rho / (1 - rho)
	m.Wq = m.Lq / lambda
	m.W = m.Wq + 1/mu
	m.L = lambda * m.W

	if err := m.checkLittle(); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// checkLittle guards the identities L = lambda*W and Lq = lambda*Wq.
// A violation can only come from a formula regression, so it is an
// internal error, never an expected state.
func (m Metrics) checkLittle() error {
	if relErr(m.L, m.Lambda*m.W) > littleTol {
		return fmt.Errorf("little's law drift: L=%g vs lambda*W=%g (lambda=%g, mu=%g, c=%d)",
			m.L, m.Lambda*m.W, m.Lambda, m.Mu, m.Servers)
	}
	if relErr(m.Lq, m.Lambda*m.Wq) > littleTol {
		return fmt.Errorf("little's law drift: Lq=%g vs lambda*Wq=%g (lambda=%g, mu=%g, c=%d)",
			m.Lq, m.Lambda*m.Wq, m.Lambda, m.Mu, m.Servers)
	}
	return nil
}

func relErr(a, b float64) float64 {
	d := math.Abs(a - b)
	if d == 0 {
		return 0
	}
	return d / math.Max(math.Abs(a), math.Abs(b))
}
